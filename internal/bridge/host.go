package bridge

import (
	"context"

	"github.com/iksnae/studio-bridge/internal"
	"github.com/iksnae/studio-bridge/internal/event"
	"github.com/iksnae/studio-bridge/internal/protocol"
	"github.com/iksnae/studio-bridge/internal/urlbuilder"
)

// Document is the host's model of an open proxy document.
type Document interface {
	Name() string
	Text() string
	IsDirty() bool

	// Insert applies an edit at a rune offset. It becomes part of the undo
	// history like any user edit.
	Insert(offset int, text string) error

	// Undo reverts the most recent edit, whatever it was.
	Undo() error
}

// ForceDirtier is implemented by documents that can be flagged dirty
// without a content change.
type ForceDirtier interface {
	SetDirty(dirty bool) error
}

// Dialogs shows user-facing notices. Confirm and Alert are modal and may
// block until the user responds.
type Dialogs interface {
	Confirm(ctx context.Context, text string) (bool, error)
	Alert(ctx context.Context, text string) error
	Warn(text string)
	Error(text string)
}

// Panel is the embedded surface a session drives. PostMessage goes toward
// the page; OnMessage delivers what the page sends to the host.
type Panel interface {
	ID() string
	Title() string
	Load(u urlbuilder.RemoteURL) error
	PostMessage(msg protocol.Message) error
	OnMessage(fn func(protocol.Message)) event.Subscription
	OnFocus(fn func(active bool)) event.Subscription
	OnDispose(fn func()) event.Subscription
	Active() bool
	Dispose()
}

// SurfaceFactory creates panels.
type SurfaceFactory interface {
	NewSurface(title string) (Panel, error)
}

// SaveObserver notifies about host saves of remote artifacts.
type SaveObserver interface {
	OnSave(fn func(internal.Artifact)) event.Subscription
}

// Reloader recompiles and reloads an artifact on the remote system.
type Reloader interface {
	Reload(ctx context.Context, a internal.Artifact) error
}

// Classifier resolves the kind of a class from its superclass chain.
type Classifier interface {
	Classify(ctx context.Context, class internal.Artifact) (internal.ArtifactKind, error)
}

// DocumentProvider opens proxy documents in the host.
type DocumentProvider interface {
	Open(ctx context.Context, a internal.Artifact) (Document, error)
}

// WebAppResolver finds the default web application of the namespace.
type WebAppResolver interface {
	DefaultWebApp(ctx context.Context) (string, error)
}

// URLBuilder builds authenticated embed URLs.
type URLBuilder interface {
	FromProxyDocument(ctx context.Context, source, text string) (urlbuilder.RemoteURL, error)
	FromDescriptor(ctx context.Context, d urlbuilder.Descriptor) (urlbuilder.RemoteURL, error)
}
