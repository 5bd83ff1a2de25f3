package termhost

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/iksnae/studio-bridge/internal"
	"github.com/iksnae/studio-bridge/internal/clock"
	"github.com/iksnae/studio-bridge/internal/event"
)

// DefaultDebounce coalesces the burst of events an editor produces for one
// save.
const DefaultDebounce = 50 * time.Millisecond

// SaveWatcher reports saves of artifact files in a directory. It implements
// bridge.SaveObserver.
type SaveWatcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	clock    clock.Clock
	debounce time.Duration

	saves event.Emitter[internal.Artifact]

	mu      sync.Mutex
	pending map[string]clock.Timer
}

// NewSaveWatcher starts watching dir. Call Run to process events.
func NewSaveWatcher(dir string, clk clock.Clock, debounce time.Duration) (*SaveWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &SaveWatcher{
		watcher:  w,
		dir:      dir,
		clock:    clk,
		debounce: debounce,
		pending:  make(map[string]clock.Timer),
	}, nil
}

// OnSave subscribes to saves.
func (w *SaveWatcher) OnSave(fn func(internal.Artifact)) event.Subscription {
	return w.saves.Subscribe(fn)
}

// Run processes file events until ctx is done or the watcher is closed.
func (w *SaveWatcher) Run(ctx context.Context) {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !isArtifactFile(name) {
				continue
			}
			w.schedule(name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			internal.LogWarn("watcher: %v", err)
		case <-ctx.Done():
			return
		}
	}
}

func (w *SaveWatcher) schedule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[name]; ok {
		t.Stop()
	}
	w.pending[name] = w.clock.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, name)
		w.mu.Unlock()

		internal.LogDebug("watcher: %s saved", name)
		w.saves.Emit(internal.Artifact{Name: name})
	})
}

// Close stops watching and drops pending notifications.
func (w *SaveWatcher) Close() error {
	w.mu.Lock()
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func isArtifactFile(name string) bool {
	a := internal.Artifact{Name: name}
	return a.IsClass() || a.ProxyKind() != internal.KindNone
}
