// Package event provides typed in-process emitters whose subscriptions are
// explicit handles, so owners can release them deterministically.
package event

import "sync"

// Subscription is returned by Subscribe. Dispose is idempotent.
type Subscription interface {
	Dispose()
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Dispose() { f() }

// Emitter fans a value out to its current listeners in subscription order.
type Emitter[T any] struct {
	mu        sync.Mutex
	next      int
	listeners map[int]func(T)
	order     []int
}

// Subscribe registers fn until the returned subscription is disposed.
func (e *Emitter[T]) Subscribe(fn func(T)) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = map[int]func(T){}
	}
	id := e.next
	e.next++
	e.listeners[id] = fn
	e.order = append(e.order, id)

	var once sync.Once
	return SubscriptionFunc(func() {
		once.Do(func() { e.remove(id) })
	})
}

func (e *Emitter[T]) remove(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.listeners, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Emit calls every listener with v. Listeners may dispose themselves.
func (e *Emitter[T]) Emit(v T) {
	e.mu.Lock()
	fns := make([]func(T), 0, len(e.order))
	for _, id := range e.order {
		fns = append(fns, e.listeners[id])
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of live listeners.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.order)
}

// Group disposes a set of subscriptions together.
type Group struct {
	mu   sync.Mutex
	subs []Subscription
	done bool
}

// Add tracks s. Adding to a disposed group disposes s immediately.
func (g *Group) Add(s Subscription) {
	g.mu.Lock()
	if g.done {
		g.mu.Unlock()
		s.Dispose()
		return
	}
	g.subs = append(g.subs, s)
	g.mu.Unlock()
}

// Dispose releases every tracked subscription in reverse order.
func (g *Group) Dispose() {
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.done = true
	g.mu.Unlock()

	for i := len(subs) - 1; i >= 0; i-- {
		subs[i].Dispose()
	}
}
