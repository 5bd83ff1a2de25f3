package protocol

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iksnae/studio-bridge/testutil"
)

func TestMessage_Kind(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Kind
	}{
		{"confirm", `{"direction":"toVSCode","confirm":"Proceed?","usePort":true}`, KindConfirm},
		{"alert", `{"direction":"toVSCode","alert":"Saved"}`, KindAlert},
		{"modified true", `{"direction":"toVSCode","modified":true}`, KindModified},
		{"modified false", `{"direction":"toVSCode","modified":false}`, KindModified},
		{"reload", `{"direction":"toVSCode","reload":1}`, KindReload},
		{"reload other value", `{"direction":"toVSCode","reload":2}`, KindUnknown},
		{"compatible", `{"direction":"toVSCode","vscodeCompatible":true}`, KindCompatible},
		{"empty confirm falls through", `{"confirm":"","alert":"x"}`, KindAlert},
		{"confirm wins over modified", `{"confirm":"a","modified":true}`, KindConfirm},
		{"unknown", `{"direction":"toVSCode","other":1}`, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode([]byte(tt.raw))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got := m.Kind(); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEncode_HostMessages(t *testing.T) {
	tests := []struct {
		name     string
		msg      Message
		contains []string
		excludes []string
	}{
		{
			name:     "answer",
			msg:      AnswerMessage(false),
			contains: []string{`"direction":"toEditor"`, `"answer":false`, `"usePort":true`},
			excludes: []string{`reload`},
		},
		{
			name:     "reload",
			msg:      ReloadMessage(),
			contains: []string{`"direction":"toEditor"`, `"reload":1`},
			excludes: []string{`usePort`, `answer`},
		},
		{
			name:     "probe",
			msg:      ProbeMessage(),
			contains: []string{`"vscodeCompatible":true`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.msg)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			s := string(data)
			for _, c := range tt.contains {
				if !strings.Contains(s, c) {
					t.Errorf("Encode() = %s, missing %s", s, c)
				}
			}
			for _, e := range tt.excludes {
				if strings.Contains(s, e) {
					t.Errorf("Encode() = %s, should not contain %s", s, e)
				}
			}
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode([]byte("{not json")); err == nil {
		t.Error("Decode() expected error for invalid JSON")
	}
}

func TestDecode_RecordedSession(t *testing.T) {
	data := testutil.LoadFixture(t, "editor_session.jsonl")

	want := []struct {
		dir  Direction
		kind Kind
	}{
		{ToHost, KindCompatible},
		{ToHost, KindModified},
		{ToHost, KindConfirm},
		{ToContent, KindAnswer},
		{ToHost, KindAlert},
		{ToHost, KindModified},
		{ToContent, KindReload},
		{ToHost, KindReload},
	}

	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	if len(lines) != len(want) {
		t.Fatalf("fixture has %d messages, want %d", len(lines), len(want))
	}
	for i, line := range lines {
		m, err := Decode(line)
		if err != nil {
			t.Fatalf("message %d: Decode() error = %v", i, err)
		}
		if m.Direction != want[i].dir || m.Kind() != want[i].kind {
			t.Errorf("message %d = %s %v, want %s %v", i, m.Direction, m.Kind(), want[i].dir, want[i].kind)
		}
	}
}

func TestDecode_IgnoresUnknownFields(t *testing.T) {
	raw := testutil.JSONMarshal(t, map[string]any{
		"direction": "toVSCode",
		"modified":  true,
		"extra":     map[string]any{"nested": 1},
	})

	m, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if m.Kind() != KindModified || m.Modified == nil || !*m.Modified {
		t.Errorf("Decode() = %+v", m)
	}
}
