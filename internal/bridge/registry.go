package bridge

import (
	"sort"
	"sync"

	"github.com/iksnae/studio-bridge/internal"
)

// Registry tracks open sessions by key and remembers the most recently
// focused one. It is safe for concurrent use; sessions call into it from
// their own loops.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	active   *Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register adds s under its key, replacing any previous entry.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.sessions[s.Key()]; ok && prev != s {
		internal.LogWarn("registry: replacing session %s for %s", prev.ID(), s.Key())
		if r.active == prev {
			r.active = nil
		}
	}
	r.sessions[s.Key()] = s
}

// Unregister removes s if it is still the entry for its key. It clears the
// active pointer when it referenced s.
func (r *Registry) Unregister(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == s {
		r.active = nil
	}
	if cur, ok := r.sessions[s.Key()]; !ok || cur != s {
		return false
	}
	delete(r.sessions, s.Key())
	return true
}

// Get returns the session registered under key.
func (r *Registry) Get(key string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Lookup returns the session paired with a, whether a names the proxy
// document or its underlying class.
func (r *Registry) Lookup(a internal.Artifact) (*Session, bool) {
	if s, ok := r.Get(a.Key()); ok {
		return s, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.Artifact().Key() == a.Key() {
			return s, true
		}
	}
	return nil, false
}

// SetActive marks s as the focused session. Unregistered sessions are
// ignored.
func (r *Registry) SetActive(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.Key()]; ok && cur == s {
		r.active = s
	}
}

// Active returns the most recently focused session, or nil.
func (r *Registry) Active() *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// IsActive reports whether s is the focused session.
func (r *Registry) IsActive(s *Session) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active == s
}

// Sessions returns the registered sessions ordered by key.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Snapshots returns a snapshot of every registered session.
func (r *Registry) Snapshots() []*internal.SessionSnapshot {
	sessions := r.Sessions()
	out := make([]*internal.SessionSnapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	return out
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
