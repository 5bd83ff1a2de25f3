package internal

// SessionSnapshot is a point-in-time view of an open bridge session
type SessionSnapshot struct {
	ID             string         `json:"id" yaml:"id"`
	Key            string         `json:"key" yaml:"key"`
	Artifact       string         `json:"artifact" yaml:"artifact"` // underlying class, e.g. "Demo.Order.cls"
	Proxy          string         `json:"proxy" yaml:"proxy"`       // proxy document, e.g. "Demo.Order.bpl"
	Kind           string         `json:"kind" yaml:"kind"`
	Variant        string         `json:"variant" yaml:"variant"` // "custom" or "direct"
	URL            string         `json:"url" yaml:"url"`         // token redacted
	State          string         `json:"state" yaml:"state"`
	Compatibility  string         `json:"compatibility" yaml:"compatibility"`
	Dirty          bool           `json:"dirty" yaml:"dirty"`
	ConfirmPending bool           `json:"confirm_pending" yaml:"confirm_pending"`
	Active         bool           `json:"active" yaml:"active"`
	OpenedAt       string         `json:"opened_at,omitempty" yaml:"opened_at,omitempty"`
	Events         []SessionEvent `json:"events,omitempty" yaml:"events,omitempty"`
}

// SessionEvent records one message or host event handled by a session
type SessionEvent struct {
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Direction string `json:"direction" yaml:"direction"` // "toEditor", "toVSCode" or "host"
	Kind      string `json:"kind" yaml:"kind"`
	Detail    string `json:"detail,omitempty" yaml:"detail,omitempty"`
}
