package termhost

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrNothingToUndo is returned by Undo on a buffer without edit history.
var ErrNothingToUndo = errors.New("nothing to undo")

// edit is one reversible change: the text before it was applied.
type edit struct {
	before []rune
}

// Buffer is an open proxy document. It keeps the text, the last saved text
// and an undo history. A buffer is dirty while its text differs from what
// was last saved, so an edit followed by its undo leaves it clean.
type Buffer struct {
	name string
	path string // backing file, empty for memory-only buffers

	mu      sync.Mutex
	text    []rune
	saved   string
	history []edit
}

// NewBuffer creates a clean memory-only buffer.
func NewBuffer(name, text string) *Buffer {
	return &Buffer{name: name, text: []rune(text), saved: text}
}

// OpenBuffer loads a buffer from a file.
func OpenBuffer(name, path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	b := NewBuffer(name, string(data))
	b.path = path
	return b, nil
}

func (b *Buffer) Name() string { return b.name }
func (b *Buffer) Path() string { return b.path }

// Text returns the current content.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.text)
}

// IsDirty reports whether the content differs from the saved content.
func (b *Buffer) IsDirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.text) != b.saved
}

// Insert adds text at a rune offset and records the edit.
func (b *Buffer) Insert(offset int, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if offset < 0 || offset > len(b.text) {
		return fmt.Errorf("offset %d out of range [0,%d]", offset, len(b.text))
	}
	b.record()

	ins := []rune(text)
	next := make([]rune, 0, len(b.text)+len(ins))
	next = append(next, b.text[:offset]...)
	next = append(next, ins...)
	next = append(next, b.text[offset:]...)
	b.text = next
	return nil
}

// Replace swaps the whole content and records the edit.
func (b *Buffer) Replace(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record()
	b.text = []rune(text)
}

// Undo reverts the most recent edit.
func (b *Buffer) Undo() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.history) == 0 {
		return ErrNothingToUndo
	}
	last := b.history[len(b.history)-1]
	b.history = b.history[:len(b.history)-1]
	b.text = last.before
	return nil
}

// Save writes the content to the backing file, if any, and marks it clean.
func (b *Buffer) Save() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	text := string(b.text)
	if b.path != "" {
		if err := os.WriteFile(b.path, []byte(text), 0644); err != nil {
			return fmt.Errorf("failed to save %s: %w", b.name, err)
		}
	}
	b.saved = text
	return nil
}

// Revert reloads the backing file, dropping unsaved edits and history.
func (b *Buffer) Revert() error {
	if b.path == "" {
		b.mu.Lock()
		b.text = []rune(b.saved)
		b.history = nil
		b.mu.Unlock()
		return nil
	}

	data, err := os.ReadFile(b.path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", b.path, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = []rune(string(data))
	b.saved = string(data)
	b.history = nil
	return nil
}

func (b *Buffer) record() {
	before := make([]rune, len(b.text))
	copy(before, b.text)
	b.history = append(b.history, edit{before: before})
}
