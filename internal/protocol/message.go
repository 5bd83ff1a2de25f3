// Package protocol defines the messages exchanged between the host and the
// embedded authoring page.
//
// The vocabulary is fixed. Remote pages send confirm, alert, modified,
// reload and compatibility acknowledgements toward the host; the host sends
// confirm answers, reload instructions and a compatibility probe toward the
// page. Each message carries a direction that the relay inside the surface
// uses to route it.
package protocol

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Direction tells the relay where a message is headed. The wire values are
// the ones the remote editor pages already speak.
type Direction string

const (
	ToContent Direction = "toEditor"
	ToHost    Direction = "toVSCode"
)

// Kind classifies a message by the field it carries.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfirm
	KindAlert
	KindModified
	KindReload
	KindCompatible
	KindAnswer
)

func (k Kind) String() string {
	switch k {
	case KindConfirm:
		return "confirm"
	case KindAlert:
		return "alert"
	case KindModified:
		return "modified"
	case KindReload:
		return "reload"
	case KindCompatible:
		return "compatible"
	case KindAnswer:
		return "answer"
	default:
		return "unknown"
	}
}

// Message is the field-tagged union carried over the bridge.
type Message struct {
	Direction  Direction `json:"direction,omitempty"`
	Confirm    string    `json:"confirm,omitempty"`
	Alert      string    `json:"alert,omitempty"`
	Modified   *bool     `json:"modified,omitempty"`
	Reload     int       `json:"reload,omitempty"`
	Compatible bool      `json:"vscodeCompatible,omitempty"`
	Answer     *bool     `json:"answer,omitempty"`
	UsePort    bool      `json:"usePort,omitempty"`
}

// Kind reports which variant m is. Precedence matches the order the host
// checks fields in: confirm, alert, modified, reload, compatibility.
func (m Message) Kind() Kind {
	switch {
	case m.Confirm != "":
		return KindConfirm
	case m.Alert != "":
		return KindAlert
	case m.Modified != nil:
		return KindModified
	case m.Reload == 1:
		return KindReload
	case m.Compatible:
		return KindCompatible
	case m.Answer != nil:
		return KindAnswer
	default:
		return KindUnknown
	}
}

// AnswerMessage builds the confirm reply sent through the privileged channel.
func AnswerMessage(ok bool) Message {
	return Message{Direction: ToContent, Answer: &ok, UsePort: true}
}

// ReloadMessage instructs the page to refresh after a host-side save.
func ReloadMessage() Message {
	return Message{Direction: ToContent, Reload: 1}
}

// ProbeMessage asks the page to acknowledge compatibility.
func ProbeMessage() Message {
	return Message{Direction: ToContent, Compatible: true}
}

// ModifiedMessage builds a remote dirty-state report.
func ModifiedMessage(modified bool) Message {
	return Message{Direction: ToHost, Modified: &modified}
}

// Encode serializes m.
func Encode(m Message) ([]byte, error) {
	data, err := sonic.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return data, nil
}

// Decode parses a message. Unknown fields are ignored.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := sonic.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("failed to decode message: %w", err)
	}
	return m, nil
}
