// Package bridge keeps a host document, an embedded remote editor page and
// the remote source artifact consistent while the page is open.
//
// Each open proxy document gets a Session. The session runs a small state
// machine on its own serial Loop: it waits for the page to acknowledge the
// bridge protocol, mirrors the page's dirty state onto the host document,
// relays confirm and alert dialogs, asks the remote system to reload the
// underlying class when the page saved it, and tells the page to reload
// when the host saved the class. Sessions are tracked in a Registry.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iksnae/studio-bridge/internal"
	"github.com/iksnae/studio-bridge/internal/clock"
	"github.com/iksnae/studio-bridge/internal/event"
	"github.com/iksnae/studio-bridge/internal/protocol"
	"github.com/iksnae/studio-bridge/internal/urlbuilder"
)

// ErrDisposed is returned by operations on a disposed session.
var ErrDisposed = errors.New("session is disposed")

const maxEvents = 50

// State is the lifecycle state of a session.
type State int

const (
	StateInitializing State = iota
	StateAwaitingCompatibility
	StateActive
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAwaitingCompatibility:
		return "awaiting-compatibility"
	case StateActive:
		return "active"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Compatibility records the outcome of the handshake with the page.
type Compatibility int

const (
	CompatibilityPending Compatibility = iota
	CompatibilityConfirmed
	CompatibilityTimedOut
)

func (c Compatibility) String() string {
	switch c {
	case CompatibilityConfirmed:
		return "confirmed"
	case CompatibilityTimedOut:
		return "timed-out"
	default:
		return "pending"
	}
}

// Variant names the opener strategy that created a session.
type Variant string

const (
	VariantCustom Variant = "custom"
	VariantDirect Variant = "direct"
)

// Config carries everything a session needs.
type Config struct {
	Variant  Variant
	Kind     internal.ArtifactKind
	Artifact internal.Artifact // underlying class
	Proxy    internal.Artifact // proxy document shown by the panel
	URL      urlbuilder.RemoteURL

	Panel    Panel
	Document Document // may be nil; dirty reports are then only tracked
	Marker   DirtyMarker

	Timeout time.Duration
	Probe   bool

	Dialogs  Dialogs
	Reloader Reloader
	Saves    SaveObserver
	Registry *Registry
	Clock    clock.Clock
}

// Session is one open bridge between a panel and a remote artifact.
type Session struct {
	id       string
	key      string
	variant  Variant
	kind     internal.ArtifactKind
	artifact internal.Artifact
	proxy    internal.Artifact
	url      urlbuilder.RemoteURL
	openedAt time.Time

	panel    Panel
	marker   DirtyMarker
	timeout  time.Duration
	probe    bool
	dialogs  Dialogs
	reloader Reloader
	saves    SaveObserver
	registry *Registry
	clock    clock.Clock

	loop   *Loop
	subs   event.Group
	ctx    context.Context
	cancel context.CancelFunc
	timer  clock.Timer

	// Written only on the loop; mu guards reads from other goroutines.
	mu       sync.Mutex
	state    State
	compat   Compatibility
	dirty    bool
	confirms int // open confirm dialogs
	events   []internal.SessionEvent
}

// NewSession creates a session in the Initializing state. Start wires it up.
func NewSession(cfg Config) *Session {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Marker == nil {
		cfg.Marker = NewDirtyMarker(cfg.Document)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:       uuid.NewString(),
		key:      cfg.Proxy.Key(),
		variant:  cfg.Variant,
		kind:     cfg.Kind,
		artifact: cfg.Artifact,
		proxy:    cfg.Proxy,
		url:      cfg.URL,
		panel:    cfg.Panel,
		marker:   cfg.Marker,
		timeout:  cfg.Timeout,
		probe:    cfg.Probe,
		dialogs:  cfg.Dialogs,
		reloader: cfg.Reloader,
		saves:    cfg.Saves,
		registry: cfg.Registry,
		clock:    cfg.Clock,
		loop:     NewLoop(),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.openedAt = s.clock.Now()
	if cfg.Document != nil {
		s.dirty = cfg.Document.IsDirty()
	}
	return s
}

func (s *Session) ID() string { return s.id }
func (s *Session) Key() string { return s.key }
func (s *Session) Kind() internal.ArtifactKind { return s.kind }
func (s *Session) Artifact() internal.Artifact { return s.artifact }
func (s *Session) Proxy() internal.Artifact { return s.proxy }
func (s *Session) URL() urlbuilder.RemoteURL { return s.url }
func (s *Session) Panel() Panel { return s.panel }
func (s *Session) Variant() Variant { return s.variant }
func (s *Session) Done() <-chan struct{} { return s.loop.Done() }
func (s *Session) Loop() *Loop { return s.loop }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Compatibility() Compatibility {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compat
}

func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Session) ConfirmPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirms > 0
}

// Start loads the page, subscribes to panel and host events, registers the
// session and arms the compatibility timer. It returns once the session is
// AwaitingCompatibility.
func (s *Session) Start() error {
	if err := s.panel.Load(s.url); err != nil {
		s.abort()
		return fmt.Errorf("failed to load %s: %w", s.proxy.Name, err)
	}

	started := make(chan struct{})
	ok := s.loop.Post(func() {
		defer close(started)
		s.setState(StateAwaitingCompatibility)

		s.subs.Add(s.panel.OnMessage(func(msg protocol.Message) {
			s.loop.Post(func() { s.handleMessage(msg) })
		}))
		s.subs.Add(s.panel.OnFocus(func(active bool) {
			s.loop.Post(func() { s.handleFocus(active) })
		}))
		s.subs.Add(s.panel.OnDispose(s.Dispose))
		if s.saves != nil {
			s.subs.Add(s.saves.OnSave(func(a internal.Artifact) {
				s.loop.Post(func() { s.handleSave(a) })
			}))
		}

		if s.registry != nil {
			s.registry.Register(s)
			if s.panel.Active() {
				s.registry.SetActive(s)
			}
		}

		if s.probe {
			s.post(protocol.ProbeMessage())
		}
		s.timer = s.clock.AfterFunc(s.timeout, func() {
			s.loop.Post(s.handleTimeout)
		})
	})
	if !ok {
		return ErrDisposed
	}
	<-started
	return nil
}

// Dispose tears the session down: cancels the timer, releases every
// subscription and unregisters it. Safe to call more than once and from any
// goroutine. Done is closed once teardown has run.
func (s *Session) Dispose() {
	if s.loop.Post(s.dispose) {
		s.loop.Close()
	}
}

func (s *Session) abort() {
	s.mu.Lock()
	s.state = StateDisposed
	s.mu.Unlock()
	s.cancel()
	s.loop.Close()
}

func (s *Session) dispose() {
	if s.isDisposed() {
		return
	}
	s.setState(StateDisposed)
	if s.timer != nil {
		s.timer.Stop()
	}
	s.cancel()
	s.subs.Dispose()
	if s.registry != nil {
		s.registry.Unregister(s)
	}
	internal.LogDebug("session %s: disposed %s", s.id, s.proxy.Name)
}

func (s *Session) handleMessage(msg protocol.Message) {
	if s.isDisposed() {
		return
	}
	kind := msg.Kind()
	s.record(string(msg.Direction), kind.String(), detail(msg))

	switch kind {
	case protocol.KindConfirm:
		s.handleConfirm(msg.Confirm)
	case protocol.KindAlert:
		text := msg.Alert
		s.loop.Go(func() func() {
			if err := s.dialogs.Alert(s.ctx, text); err != nil {
				internal.LogDebug("session %s: alert: %v", s.id, err)
			}
			return nil
		})
	case protocol.KindModified:
		s.handleModified(*msg.Modified)
	case protocol.KindReload:
		s.handleReload()
	case protocol.KindCompatible:
		s.handleCompatible()
	default:
		internal.LogDebug("session %s: ignoring %s message", s.id, kind)
	}
}

func (s *Session) handleConfirm(text string) {
	s.mu.Lock()
	s.confirms++
	s.mu.Unlock()

	s.loop.Go(func() func() {
		ok, err := s.dialogs.Confirm(s.ctx, text)
		if err != nil {
			internal.LogDebug("session %s: confirm: %v", s.id, err)
			ok = false
		}
		return func() {
			if s.isDisposed() {
				return
			}
			s.mu.Lock()
			s.confirms--
			s.mu.Unlock()
			s.post(protocol.AnswerMessage(ok))
		}
	})
}

func (s *Session) handleModified(modified bool) {
	s.mu.Lock()
	changed := s.dirty != modified
	if changed {
		s.dirty = modified
	}
	s.mu.Unlock()
	if !changed || s.marker == nil {
		return
	}

	var err error
	if modified {
		err = s.marker.MarkDirty()
	} else {
		err = s.marker.MarkClean()
	}
	if err != nil {
		internal.LogWarn("session %s: failed to mirror dirty=%t: %v", s.id, modified, err)
	}
}

func (s *Session) handleReload() {
	if s.reloader == nil {
		return
	}
	a := s.artifact
	s.loop.Go(func() func() {
		if err := s.reloader.Reload(s.ctx, a); err != nil {
			internal.LogWarn("session %s: reload of %s failed: %v", s.id, a.Name, err)
		}
		return nil
	})
}

func (s *Session) handleCompatible() {
	s.mu.Lock()
	if s.compat != CompatibilityPending {
		s.mu.Unlock()
		internal.LogDebug("session %s: late compatibility acknowledgement ignored", s.id)
		return
	}
	s.compat = CompatibilityConfirmed
	s.state = StateActive
	s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
}

func (s *Session) handleTimeout() {
	if s.isDisposed() {
		return
	}
	s.mu.Lock()
	if s.compat != CompatibilityPending {
		s.mu.Unlock()
		return
	}
	s.compat = CompatibilityTimedOut
	s.state = StateActive
	s.mu.Unlock()

	s.record("host", "timeout", s.timeout.String())
	s.dialogs.Warn(fmt.Sprintf(
		"This %s editor did not confirm it supports the bridge protocol. Dirty state, dialogs and reloads may not be synchronized.",
		s.kind.Label()))
}

func (s *Session) handleSave(a internal.Artifact) {
	if s.isDisposed() || a.Key() != s.artifact.Key() {
		return
	}
	s.record("host", "save", a.Name)
	s.post(protocol.ReloadMessage())
}

func (s *Session) handleFocus(active bool) {
	if s.isDisposed() || !active || s.registry == nil {
		return
	}
	s.registry.SetActive(s)
}

func (s *Session) post(msg protocol.Message) {
	s.record(string(msg.Direction), msg.Kind().String(), detail(msg))
	if err := s.panel.PostMessage(msg); err != nil {
		internal.LogWarn("session %s: failed to post %s: %v", s.id, msg.Kind(), err)
	}
}

func (s *Session) record(direction, kind, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, internal.SessionEvent{
		Timestamp: s.clock.Now().Format(time.RFC3339),
		Direction: direction,
		Kind:      kind,
		Detail:    detail,
	})
	if len(s.events) > maxEvents {
		s.events = s.events[len(s.events)-maxEvents:]
	}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) isDisposed() bool {
	return s.State() == StateDisposed
}

// Snapshot returns a copy of the session's observable state.
func (s *Session) Snapshot() *internal.SessionSnapshot {
	active := s.registry != nil && s.registry.IsActive(s)

	s.mu.Lock()
	defer s.mu.Unlock()
	return &internal.SessionSnapshot{
		ID:             s.id,
		Key:            s.key,
		Artifact:       s.artifact.Name,
		Proxy:          s.proxy.Name,
		Kind:           s.kind.String(),
		Variant:        string(s.variant),
		URL:            s.url.Redacted(),
		State:          s.state.String(),
		Compatibility:  s.compat.String(),
		Dirty:          s.dirty,
		ConfirmPending: s.confirms > 0,
		Active:         active,
		OpenedAt:       s.openedAt.Format(time.RFC3339),
		Events:         append([]internal.SessionEvent(nil), s.events...),
	}
}

func detail(msg protocol.Message) string {
	switch msg.Kind() {
	case protocol.KindConfirm:
		return msg.Confirm
	case protocol.KindAlert:
		return msg.Alert
	case protocol.KindModified:
		return strconv.FormatBool(*msg.Modified)
	case protocol.KindAnswer:
		return strconv.FormatBool(*msg.Answer)
	default:
		return ""
	}
}
