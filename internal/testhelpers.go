package internal

import (
	"time"
)

// CreateTestSnapshot creates a test session snapshot with sample events
func CreateTestSnapshot(id string) *SessionSnapshot {
	return &SessionSnapshot{
		ID:            id,
		Key:           "demo.order.bpl",
		Artifact:      "Demo.Order.cls",
		Proxy:         "Demo.Order.bpl",
		Kind:          KindProcess.String(),
		Variant:       "custom",
		URL:           "http://localhost:52773/csp/user/EnsPortal.BPLEditor.zen?BP=Demo.Order.BPL&STUDIO=1&CSPSHARE=1&CSPCHD=xxxxx",
		State:         "active",
		Compatibility: "confirmed",
		OpenedAt:      time.Now().Format(time.RFC3339),
		Events: []SessionEvent{
			{
				Timestamp: time.Now().Format(time.RFC3339),
				Direction: "toVSCode",
				Kind:      "compatible",
			},
			{
				Timestamp: time.Now().Format(time.RFC3339),
				Direction: "toVSCode",
				Kind:      "modified",
				Detail:    "true",
			},
		},
	}
}

// CreateTestSnapshotWithEvents creates a test snapshot with custom events
func CreateTestSnapshotWithEvents(id string, events []SessionEvent) *SessionSnapshot {
	return &SessionSnapshot{
		ID:       id,
		Key:      "demo.order.bpl",
		Artifact: "Demo.Order.cls",
		Proxy:    "Demo.Order.bpl",
		Kind:     KindProcess.String(),
		State:    "active",
		Events:   events,
	}
}
