package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/iksnae/studio-bridge/internal"
	"github.com/iksnae/studio-bridge/internal/event"
	"github.com/iksnae/studio-bridge/internal/protocol"
	"github.com/iksnae/studio-bridge/internal/surface"
	"github.com/iksnae/studio-bridge/internal/urlbuilder"
)

type fakeDoc struct {
	mu    sync.Mutex
	name  string
	text  string
	dirty bool
	edits []string
	undos int
}

func (d *fakeDoc) Name() string { return d.name }
func (d *fakeDoc) Text() string { return d.text }

func (d *fakeDoc) IsDirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty
}

func (d *fakeDoc) Insert(offset int, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.edits = append(d.edits, text)
	d.dirty = true
	return nil
}

func (d *fakeDoc) Undo() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.undos++
	return nil
}

func (d *fakeDoc) counts() (edits, undos int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.edits), d.undos
}

type forceDoc struct {
	fakeDoc
	flags []bool
}

func (d *forceDoc) SetDirty(dirty bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flags = append(d.flags, dirty)
	return nil
}

type fakeDialogs struct {
	mu       sync.Mutex
	answer   bool
	block    chan struct{}
	gates    map[string]chan struct{}
	confirms []string
	alerts   []string
	warns    []string
	errors   []string
}

func (d *fakeDialogs) Confirm(ctx context.Context, text string) (bool, error) {
	d.mu.Lock()
	d.confirms = append(d.confirms, text)
	block := d.block
	if gate, ok := d.gates[text]; ok {
		block = gate
	}
	answer := d.answer
	d.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return answer, nil
}

func (d *fakeDialogs) Alert(_ context.Context, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alerts = append(d.alerts, text)
	return nil
}

func (d *fakeDialogs) Warn(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.warns = append(d.warns, text)
}

func (d *fakeDialogs) Error(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errors = append(d.errors, text)
}

func (d *fakeDialogs) snapshot() (confirms, alerts, warns, errs []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := func(s []string) []string { return append([]string(nil), s...) }
	return cp(d.confirms), cp(d.alerts), cp(d.warns), cp(d.errors)
}

// endpoint records messages posted to a page or a privileged port.
type endpoint struct {
	mu   sync.Mutex
	msgs []protocol.Message
}

func (e *endpoint) PostMessage(msg protocol.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
	return nil
}

func (e *endpoint) messages() []protocol.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]protocol.Message(nil), e.msgs...)
}

func (e *endpoint) count(kind protocol.Kind) int {
	n := 0
	for _, m := range e.messages() {
		if m.Kind() == kind {
			n++
		}
	}
	return n
}

type fakeSurfaces struct {
	mu       sync.Mutex
	surfaces []*surface.Surface
	pages    []*endpoint
	loadErr  error
}

func (f *fakeSurfaces) NewSurface(title string) (Panel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := &endpoint{}
	s := surface.New(title, page)
	f.surfaces = append(f.surfaces, s)
	f.pages = append(f.pages, page)
	if f.loadErr != nil {
		return &unloadablePanel{Surface: s, err: f.loadErr}, nil
	}
	return s, nil
}

func (f *fakeSurfaces) get(i int) *surface.Surface {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.surfaces[i]
}

// unloadablePanel is a surface whose page never loads.
type unloadablePanel struct {
	*surface.Surface
	err error
}

func (p *unloadablePanel) Load(urlbuilder.RemoteURL) error { return p.err }

func (f *fakeSurfaces) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.surfaces)
}

type fakeSaves struct {
	emitter event.Emitter[internal.Artifact]
}

func (f *fakeSaves) OnSave(fn func(internal.Artifact)) event.Subscription {
	return f.emitter.Subscribe(fn)
}

func (f *fakeSaves) save(name string) {
	f.emitter.Emit(internal.Artifact{Name: name})
}

type fakeReloader struct {
	mu       sync.Mutex
	reloaded []string
	done     chan string
}

func (r *fakeReloader) Reload(_ context.Context, a internal.Artifact) error {
	r.mu.Lock()
	r.reloaded = append(r.reloaded, a.Name)
	r.mu.Unlock()
	if r.done != nil {
		r.done <- a.Name
	}
	return nil
}

type fakeClassifier map[string]internal.ArtifactKind

func (f fakeClassifier) Classify(_ context.Context, class internal.Artifact) (internal.ArtifactKind, error) {
	kind, ok := f[class.Name]
	if !ok {
		return internal.KindNone, nil
	}
	return kind, nil
}

type fakeDocuments map[string]*fakeDoc

func (f fakeDocuments) Open(_ context.Context, a internal.Artifact) (Document, error) {
	doc, ok := f[a.Name]
	if !ok {
		return nil, errors.New("no such document: " + a.Name)
	}
	return doc, nil
}

type fakeWebApps struct {
	webapp string
	calls  int
}

func (f *fakeWebApps) DefaultWebApp(context.Context) (string, error) {
	f.calls++
	return f.webapp, nil
}

type tokenQuerier struct {
	token string
	err   error
	keys  []string
}

func (q *tokenQuerier) Query(_ context.Context, _ string, params ...any) ([]internal.Row, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.keys = append(q.keys, params[0].(string))
	if q.token == "" {
		return nil, nil
	}
	return []internal.Row{{"csptoken": q.token}}, nil
}
