package bridge

import (
	"sync"

	"github.com/iksnae/studio-bridge/internal"
)

// Loop runs tasks one at a time in the order they were posted. Each session
// owns one, so its handlers never interleave.
type Loop struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []func()
	running  bool
	inflight int
	closed   bool
	done     chan struct{}
}

// NewLoop starts a loop.
func NewLoop() *Loop {
	l := &Loop{done: make(chan struct{})}
	l.cond = sync.NewCond(&l.mu)
	go l.run()
	return l
}

// Post queues fn. It returns false once the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.queue = append(l.queue, fn)
	l.cond.Broadcast()
	return true
}

// Go runs work on its own goroutine and posts the continuation it returns,
// if any, back to the loop. Blocking calls such as modal dialogs go here so
// the loop keeps serving other events meanwhile. Continuations arriving
// after Close are dropped.
func (l *Loop) Go(work func() func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.inflight++
	l.mu.Unlock()

	go func() {
		cont := work()
		l.mu.Lock()
		l.inflight--
		if cont != nil && !l.closed {
			l.queue = append(l.queue, cont)
		}
		l.cond.Broadcast()
		l.mu.Unlock()
	}()
	return true
}

// Flush blocks until no task is queued, running or in flight. It must not
// be called from a task.
func (l *Loop) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for len(l.queue) > 0 || l.running || l.inflight > 0 {
		l.cond.Wait()
	}
}

// Close stops accepting tasks. Tasks already queued still run.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.cond.Broadcast()
	l.mu.Unlock()
}

// Done is closed when the loop has exited.
func (l *Loop) Done() <-chan struct{} { return l.done }

func (l *Loop) run() {
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			close(l.done)
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.running = true
		l.mu.Unlock()

		l.exec(fn)

		l.mu.Lock()
		l.running = false
		l.cond.Broadcast()
		l.mu.Unlock()
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			internal.LogError("bridge: task panicked: %v", r)
		}
	}()
	fn()
}
