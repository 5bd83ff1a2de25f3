package termhost

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/iksnae/studio-bridge/internal"
	"github.com/iksnae/studio-bridge/internal/bridge"
)

// Documents opens proxy documents as buffers backed by mirrored files. A
// document stays open, and is returned again, until Close.
type Documents struct {
	mirror *Mirror

	mu   sync.Mutex
	open map[string]*Buffer
}

// NewDocuments creates a provider over mirror.
func NewDocuments(mirror *Mirror) *Documents {
	return &Documents{mirror: mirror, open: make(map[string]*Buffer)}
}

// Open returns the buffer for a, mirroring it first if needed.
func (d *Documents) Open(ctx context.Context, a internal.Artifact) (bridge.Document, error) {
	return d.Buffer(ctx, a)
}

// Buffer is Open with the concrete type.
func (d *Documents) Buffer(ctx context.Context, a internal.Artifact) (*Buffer, error) {
	key := a.Key()

	d.mu.Lock()
	if b, ok := d.open[key]; ok {
		d.mu.Unlock()
		return b, nil
	}
	d.mu.Unlock()

	path, err := d.mirror.Fetch(ctx, a.Name)
	if err != nil {
		return nil, err
	}
	b, err := OpenBuffer(a.Name, path)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	// Another caller may have opened it meanwhile
	if existing, ok := d.open[key]; ok {
		return existing, nil
	}
	d.open[key] = b
	return b, nil
}

// Lookup returns an open buffer.
func (d *Documents) Lookup(a internal.Artifact) (*Buffer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.open[a.Key()]
	return b, ok
}

// Refresh reloads an open buffer from its file after a save on disk. It is
// a no-op for documents that are not open.
func (d *Documents) Refresh(a internal.Artifact) {
	b, ok := d.Lookup(a)
	if !ok {
		return
	}
	if err := b.Revert(); err != nil {
		internal.LogWarn("Failed to refresh %s: %v", a.Name, err)
	}
}

// Close forgets an open buffer.
func (d *Documents) Close(a internal.Artifact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.open, a.Key())
}

// Viewer shows documents by mirroring them and printing where they are.
type Viewer struct {
	docs    *Documents
	console *Console
	preview int // lines of content to print
}

// NewViewer creates a viewer printing up to preview lines of each document.
func NewViewer(docs *Documents, console *Console, preview int) *Viewer {
	return &Viewer{docs: docs, console: console, preview: preview}
}

// Show opens name and prints its location and first lines.
func (v *Viewer) Show(ctx context.Context, name string) error {
	b, err := v.docs.Buffer(ctx, internal.Artifact{Name: name})
	if err != nil {
		return err
	}

	v.console.Success(fmt.Sprintf("%s %s", name, v.console.Dim(b.Path())))
	if v.preview <= 0 {
		return nil
	}

	lines := strings.Split(b.Text(), "\n")
	more := 0
	if len(lines) > v.preview {
		more = len(lines) - v.preview
		lines = lines[:v.preview]
	}
	for _, line := range lines {
		v.console.Println("  " + line)
	}
	if more > 0 {
		v.console.Println(v.console.Dim(fmt.Sprintf("  ... %d more lines", more)))
	}
	return nil
}
