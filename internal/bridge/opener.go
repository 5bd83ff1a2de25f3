package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/iksnae/studio-bridge/internal"
	"github.com/iksnae/studio-bridge/internal/clock"
	"github.com/iksnae/studio-bridge/internal/urlbuilder"
)

// Opener opens the visual editor for an artifact. a may name a class or its
// proxy document. Opening an artifact that already has a session focuses
// and returns the existing one.
type Opener interface {
	Open(ctx context.Context, a internal.Artifact) (*Session, error)
}

// Deps are the collaborators shared by both openers.
type Deps struct {
	Builder    URLBuilder
	Classifier Classifier
	Documents  DocumentProvider
	Surfaces   SurfaceFactory
	Dialogs    Dialogs
	Reloader   Reloader
	Saves      SaveObserver
	Registry   *Registry
	Clock      clock.Clock
	WebApps    WebAppResolver
	Connection internal.ConnectionConfig
}

func (d Deps) validate() error {
	switch {
	case d.Builder == nil:
		return errors.New("bridge: no URL builder")
	case d.Surfaces == nil:
		return errors.New("bridge: no surface factory")
	case d.Dialogs == nil:
		return errors.New("bridge: no dialogs")
	case d.Registry == nil:
		return errors.New("bridge: no registry")
	}
	return nil
}

func (d Deps) existing(proxy internal.Artifact) (*Session, bool) {
	s, ok := d.Registry.Get(proxy.Key())
	if ok {
		d.Registry.SetActive(s)
		internal.LogDebug("bridge: %s already open in session %s", proxy.Name, s.ID())
	}
	return s, ok
}

func (d Deps) start(cfg Config, title string) (*Session, error) {
	panel, err := d.Surfaces.NewSurface(title)
	if err != nil {
		return nil, fmt.Errorf("failed to create surface for %s: %w", cfg.Proxy.Name, err)
	}
	cfg.Panel = panel
	cfg.Dialogs = d.Dialogs
	cfg.Reloader = d.Reloader
	cfg.Saves = d.Saves
	cfg.Registry = d.Registry
	cfg.Clock = d.Clock

	s := NewSession(cfg)
	if err := s.Start(); err != nil {
		panel.Dispose()
		return nil, err
	}
	internal.LogInfo("Opened %s editor for %s (%s)", cfg.Kind.Label(), cfg.Artifact.Name, cfg.URL.Redacted())
	return s, nil
}

// CustomSurfaceOpener opens proxy documents in a custom surface. The embed
// URL is the first line of the proxy document. Artifacts that are neither a
// process nor a transform are reported to the user.
type CustomSurfaceOpener struct {
	deps   Deps
	policy internal.EditorConfig
}

// NewCustomSurfaceOpener creates the custom-surface opener.
func NewCustomSurfaceOpener(deps Deps, policy internal.EditorConfig) (*CustomSurfaceOpener, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Documents == nil {
		return nil, errors.New("bridge: no document provider")
	}
	return &CustomSurfaceOpener{deps: deps, policy: policy}, nil
}

func (o *CustomSurfaceOpener) Open(ctx context.Context, a internal.Artifact) (*Session, error) {
	kind, class, proxy, err := o.resolve(ctx, a)
	if err != nil {
		return nil, err
	}
	if s, ok := o.deps.existing(proxy); ok {
		return s, nil
	}

	doc, err := o.deps.Documents.Open(ctx, proxy)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", proxy.Name, err)
	}

	u, err := o.deps.Builder.FromProxyDocument(ctx, proxy.Name, doc.Text())
	if err != nil {
		internal.LogError("Failed to build editor URL for %s: %v", proxy.Name, err)
		return nil, err
	}

	return o.deps.start(Config{
		Variant:  VariantCustom,
		Kind:     kind,
		Artifact: class,
		Proxy:    proxy,
		URL:      u,
		Document: doc,
		Timeout:  o.policy.CompatibilityTimeout,
		Probe:    o.policy.Probe,
	}, proxy.Name)
}

func (o *CustomSurfaceOpener) resolve(ctx context.Context, a internal.Artifact) (internal.ArtifactKind, internal.Artifact, internal.Artifact, error) {
	if !a.IsClass() {
		kind := a.ProxyKind()
		if kind == internal.KindNone {
			return o.unclassified(a)
		}
		return kind, a.Class(), a, nil
	}

	if o.deps.Classifier == nil {
		return internal.KindNone, internal.Artifact{}, internal.Artifact{}, errors.New("bridge: no classifier")
	}
	kind, err := o.deps.Classifier.Classify(ctx, a)
	if err != nil {
		return internal.KindNone, internal.Artifact{}, internal.Artifact{}, err
	}
	if kind == internal.KindNone {
		return o.unclassified(a)
	}
	return kind, a, a.Proxy(kind), nil
}

func (o *CustomSurfaceOpener) unclassified(a internal.Artifact) (internal.ArtifactKind, internal.Artifact, internal.Artifact, error) {
	err := &internal.ClassificationError{Name: a.Name}
	o.deps.Dialogs.Error(fmt.Sprintf(
		"To open in a BPL/DTL editor, the class must extend either %s or %s respectively.",
		internal.SuperBusinessProcess, internal.SuperDataTransform))
	return internal.KindNone, internal.Artifact{}, internal.Artifact{}, err
}

// DirectEmbedOpener embeds the editor page of a class directly. The embed
// URL is built from the connection settings. Artifacts that are neither a
// process nor a transform are skipped silently: Open returns a nil session
// and a nil error.
type DirectEmbedOpener struct {
	deps   Deps
	policy internal.EditorConfig
}

// NewDirectEmbedOpener creates the direct-embed opener.
func NewDirectEmbedOpener(deps Deps, policy internal.EditorConfig) (*DirectEmbedOpener, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Classifier == nil {
		return nil, errors.New("bridge: no classifier")
	}
	return &DirectEmbedOpener{deps: deps, policy: policy}, nil
}

func (o *DirectEmbedOpener) Open(ctx context.Context, a internal.Artifact) (*Session, error) {
	class := a.Class()
	kind, err := o.deps.Classifier.Classify(ctx, class)
	if err != nil {
		return nil, err
	}
	if kind == internal.KindNone {
		internal.LogDebug("bridge: %s is neither a process nor a transform, nothing to open", class.Name)
		return nil, nil
	}

	proxy := class.Proxy(kind)
	if s, ok := o.deps.existing(proxy); ok {
		return s, nil
	}

	conn := o.deps.Connection
	webapp := conn.WebApp
	if webapp == "" && o.deps.WebApps != nil {
		if webapp, err = o.deps.WebApps.DefaultWebApp(ctx); err != nil {
			return nil, fmt.Errorf("failed to find the default web application: %w", err)
		}
	}

	u, err := o.deps.Builder.FromDescriptor(ctx, urlbuilder.Descriptor{
		HTTPS:      conn.HTTPS,
		Host:       conn.Host,
		Port:       conn.Port,
		PathPrefix: conn.PathPrefix,
		WebApp:     webapp,
		Namespace:  conn.Namespace,
		Name:       class.Name,
		Kind:       kind,
	})
	if err != nil {
		return nil, err
	}

	var doc Document
	if o.deps.Documents != nil {
		if doc, err = o.deps.Documents.Open(ctx, proxy); err != nil {
			internal.LogDebug("bridge: no host document for %s, dirty state not mirrored: %v", proxy.Name, err)
			doc = nil
		}
	}

	return o.deps.start(Config{
		Variant:  VariantDirect,
		Kind:     kind,
		Artifact: class,
		Proxy:    proxy,
		URL:      u,
		Document: doc,
		Timeout:  o.policy.CompatibilityTimeout,
		Probe:    o.policy.Probe,
	}, kind.Title())
}
