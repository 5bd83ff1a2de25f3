// Package relay forwards bridge messages between the host and the embedded
// remote page.
//
// A Relay sits inside the embedded surface. It routes each message by its
// direction and owns a single piece of state: the privileged reply channel
// captured from the last remote message that asked for one. That channel is
// used once, for the next host message flagged usePort, and then dropped.
// Nothing is queued.
package relay

import (
	"errors"
	"fmt"
	"sync"

	"github.com/iksnae/studio-bridge/internal"
	"github.com/iksnae/studio-bridge/internal/protocol"
)

var (
	// ErrNoChannel is returned when a host message asks for the privileged
	// channel but none is captured. The message is dropped.
	ErrNoChannel = errors.New("no privileged channel captured")

	// ErrUnknownDirection is returned for messages without a routable direction.
	ErrUnknownDirection = errors.New("message has no routable direction")
)

// Endpoint receives routed messages.
type Endpoint interface {
	PostMessage(msg protocol.Message) error
}

// EndpointFunc adapts a function to Endpoint.
type EndpointFunc func(msg protocol.Message) error

func (f EndpointFunc) PostMessage(msg protocol.Message) error { return f(msg) }

// Relay routes messages between a host endpoint and a content endpoint.
type Relay struct {
	host    Endpoint
	content Endpoint

	mu   sync.Mutex
	port Endpoint
}

// New creates a relay between host and content.
func New(host, content Endpoint) *Relay {
	return &Relay{host: host, content: content}
}

// Route forwards msg according to its direction. port is the channel
// supplied alongside a remote message, if any; it is ignored for host
// messages.
func (r *Relay) Route(msg protocol.Message, port Endpoint) error {
	switch msg.Direction {
	case protocol.ToContent:
		return r.toContent(msg)
	case protocol.ToHost:
		return r.toHost(msg, port)
	default:
		internal.LogDebug("relay: dropping %s message with direction %q", msg.Kind(), msg.Direction)
		return ErrUnknownDirection
	}
}

func (r *Relay) toContent(msg protocol.Message) error {
	if !msg.UsePort {
		return r.content.PostMessage(msg)
	}

	r.mu.Lock()
	port := r.port
	r.port = nil
	r.mu.Unlock()

	if port == nil {
		internal.LogWarn("relay: dropping %s message, no privileged channel", msg.Kind())
		return ErrNoChannel
	}
	if err := port.PostMessage(msg); err != nil {
		return fmt.Errorf("privileged channel: %w", err)
	}
	return nil
}

func (r *Relay) toHost(msg protocol.Message, port Endpoint) error {
	// Capture before forwarding so a fast host reply finds the channel.
	if msg.UsePort {
		r.mu.Lock()
		if r.port != nil {
			internal.LogDebug("relay: replacing unanswered privileged channel")
		}
		r.port = port
		r.mu.Unlock()
	}
	return r.host.PostMessage(msg)
}

// Captured reports whether a privileged channel is waiting to be used.
func (r *Relay) Captured() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.port != nil
}
