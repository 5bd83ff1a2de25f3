// Package surface implements the embedded authoring surface that hosts a
// remote editor page.
//
// A Surface owns the relay that sits between the host and the page. Host
// code posts messages to it and subscribes to what the page sends back;
// transports (the web host, tests) deliver page messages with Deliver and
// receive page-bound frames through the Content endpoint they attach.
package surface

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/iksnae/studio-bridge/internal"
	"github.com/iksnae/studio-bridge/internal/event"
	"github.com/iksnae/studio-bridge/internal/protocol"
	"github.com/iksnae/studio-bridge/internal/relay"
	"github.com/iksnae/studio-bridge/internal/urlbuilder"
)

// ErrClosed is returned by operations on a disposed surface.
var ErrClosed = errors.New("surface is closed")

// Surface is one embedded editor panel.
type Surface struct {
	id    string
	title string
	relay *relay.Relay

	messages event.Emitter[protocol.Message]
	focus    event.Emitter[bool]
	disposed event.Emitter[struct{}]

	mu     sync.Mutex
	url    urlbuilder.RemoteURL
	active bool
	closed bool
}

// New creates a surface whose page-bound messages go to content.
func New(title string, content relay.Endpoint) *Surface {
	s := &Surface{
		id:    uuid.NewString(),
		title: title,
	}
	s.relay = relay.New(relay.EndpointFunc(s.toHost), content)
	return s
}

func (s *Surface) ID() string    { return s.id }
func (s *Surface) Title() string { return s.title }

// URL returns the page URL, zero until Load is called.
func (s *Surface) URL() urlbuilder.RemoteURL {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Load points the surface at the remote page.
func (s *Surface) Load(u urlbuilder.RemoteURL) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.url = u
	internal.LogDebug("surface %s: loading %s", s.id, u.Redacted())
	return nil
}

// PostMessage sends a host message toward the page through the relay.
func (s *Surface) PostMessage(msg protocol.Message) error {
	if s.isClosed() {
		return ErrClosed
	}
	return s.relay.Route(msg, nil)
}

// Deliver routes a message posted by the page. port is the privileged
// channel transferred with it, if any.
func (s *Surface) Deliver(msg protocol.Message, port relay.Endpoint) error {
	if s.isClosed() {
		return ErrClosed
	}
	return s.relay.Route(msg, port)
}

func (s *Surface) toHost(msg protocol.Message) error {
	s.messages.Emit(msg)
	return nil
}

// OnMessage subscribes to page messages headed for the host.
func (s *Surface) OnMessage(fn func(protocol.Message)) event.Subscription {
	return s.messages.Subscribe(fn)
}

// OnFocus subscribes to focus changes.
func (s *Surface) OnFocus(fn func(active bool)) event.Subscription {
	return s.focus.Subscribe(fn)
}

// OnDispose subscribes to the surface closing.
func (s *Surface) OnDispose(fn func()) event.Subscription {
	return s.disposed.Subscribe(func(struct{}) { fn() })
}

// Active reports whether the surface currently has focus.
func (s *Surface) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActive records a focus change and notifies subscribers when it differs
// from the current state.
func (s *Surface) SetActive(active bool) {
	s.mu.Lock()
	if s.closed || s.active == active {
		s.mu.Unlock()
		return
	}
	s.active = active
	s.mu.Unlock()
	s.focus.Emit(active)
}

// Dispose closes the surface. Subscribers are notified once.
func (s *Surface) Dispose() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.active = false
	s.mu.Unlock()
	s.disposed.Emit(struct{}{})
}

// Closed reports whether Dispose was called.
func (s *Surface) Closed() bool { return s.isClosed() }

func (s *Surface) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
