package webhost

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/iksnae/studio-bridge/internal/protocol"
)

// FrameType identifies a websocket frame exchanged with the page shim.
type FrameType string

const (
	// FrameMessage carries a message the editor page posted (page to host).
	FrameMessage FrameType = "message"
	// FramePost asks the shim to post a message (host to page).
	FramePost FrameType = "post"
	// FrameFocus reports the panel gaining or losing focus.
	FrameFocus FrameType = "focus"
	// FrameClose reports the user closing the panel.
	FrameClose FrameType = "close"
)

// Target selects where the shim posts a FramePost message.
type Target string

const (
	TargetContent Target = "content" // the editor iframe
	TargetPort    Target = "port"    // the captured privileged port
)

// Frame is one websocket frame.
type Frame struct {
	Type    FrameType         `json:"type"`
	Target  Target            `json:"target,omitempty"`
	Message *protocol.Message `json:"message,omitempty"`
	Port    bool              `json:"port,omitempty"` // a port was transferred with Message
	Active  bool              `json:"active,omitempty"`
}

func encodeFrame(f Frame) ([]byte, error) {
	data, err := sonic.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return data, nil
}

func decodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := sonic.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("failed to decode frame: %w", err)
	}
	return f, nil
}
