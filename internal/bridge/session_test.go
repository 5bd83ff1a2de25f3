package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/studio-bridge/internal"
	"github.com/iksnae/studio-bridge/internal/clock"
	"github.com/iksnae/studio-bridge/internal/protocol"
	"github.com/iksnae/studio-bridge/internal/relay"
	"github.com/iksnae/studio-bridge/internal/surface"
)

type harness struct {
	clock    *clock.Fake
	dialogs  *fakeDialogs
	page     *endpoint
	panel    *surface.Surface
	doc      *fakeDoc
	saves    *fakeSaves
	reloader *fakeReloader
	registry *Registry
	session  *Session
}

func newHarness(t *testing.T, configure ...func(*Config)) *harness {
	t.Helper()
	h := &harness{
		clock:    clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		dialogs:  &fakeDialogs{answer: true},
		page:     &endpoint{},
		doc:      &fakeDoc{name: "Demo.Order.bpl", text: "http://h/p\n"},
		saves:    &fakeSaves{},
		reloader: &fakeReloader{},
		registry: NewRegistry(),
	}
	h.panel = surface.New("Demo.Order.bpl", h.page)

	cfg := Config{
		Variant:  VariantCustom,
		Kind:     internal.KindProcess,
		Artifact: internal.Artifact{Name: "Demo.Order.cls"},
		Proxy:    internal.Artifact{Name: "Demo.Order.bpl"},
		Panel:    h.panel,
		Document: h.doc,
		Timeout:  3 * time.Second,
		Dialogs:  h.dialogs,
		Reloader: h.reloader,
		Saves:    h.saves,
		Registry: h.registry,
		Clock:    h.clock,
	}
	for _, c := range configure {
		c(&cfg)
	}

	h.session = NewSession(cfg)
	require.NoError(t, h.session.Start())
	t.Cleanup(func() {
		h.session.Dispose()
		<-h.session.Done()
	})
	return h
}

// fromPage delivers a page message and waits until the session handled it.
func (h *harness) fromPage(t *testing.T, msg protocol.Message) {
	t.Helper()
	msg.Direction = protocol.ToHost
	require.NoError(t, h.panel.Deliver(msg, nil))
	h.session.Loop().Flush()
}

func (h *harness) modified(t *testing.T, v bool) {
	t.Helper()
	h.fromPage(t, protocol.ModifiedMessage(v))
}

func TestSessionStart(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, StateAwaitingCompatibility, h.session.State())
	assert.Equal(t, CompatibilityPending, h.session.Compatibility())
	assert.Equal(t, "demo.order.bpl", h.session.Key())
	assert.Equal(t, 1, h.clock.Pending())

	got, ok := h.registry.Get("demo.order.bpl")
	require.True(t, ok)
	assert.Same(t, h.session, got)
	assert.Nil(t, h.registry.Active())
	assert.Empty(t, h.page.messages(), "no probe without the probe policy")
}

func TestSessionProbe(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.Probe = true })

	msgs := h.page.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.ToContent, msgs[0].Direction)
	assert.True(t, msgs[0].Compatible)
}

func TestSessionStartRegistersActivePanel(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		p := surface.New("x", &endpoint{})
		p.SetActive(true)
		c.Panel = p
	})
	assert.Same(t, h.session, h.registry.Active())
}

func TestModifiedMarksDirtyOnce(t *testing.T) {
	h := newHarness(t)

	h.modified(t, true)
	edits, undos := h.doc.counts()
	assert.Equal(t, 1, edits)
	assert.Equal(t, 0, undos)
	assert.True(t, h.session.Dirty())
	assert.Equal(t, []string{" "}, h.doc.edits)

	h.modified(t, true)
	edits, _ = h.doc.counts()
	assert.Equal(t, 1, edits, "repeated modified=true must not edit again")
}

func TestModifiedFalseUndoesOnce(t *testing.T) {
	h := newHarness(t)

	h.modified(t, false)
	_, undos := h.doc.counts()
	assert.Equal(t, 0, undos, "modified=false while clean is a no-op")

	h.modified(t, true)
	h.modified(t, false)
	h.modified(t, false)

	edits, undos := h.doc.counts()
	assert.Equal(t, 1, edits)
	assert.Equal(t, 1, undos)
	assert.False(t, h.session.Dirty())
}

func TestInitialDirtyStateComesFromDocument(t *testing.T) {
	doc := &fakeDoc{name: "Demo.Order.bpl", dirty: true}
	h := newHarness(t, func(c *Config) { c.Document = doc })

	assert.True(t, h.session.Dirty())
	h.modified(t, true)
	h.modified(t, false)

	edits, undos := doc.counts()
	assert.Equal(t, 0, edits)
	assert.Equal(t, 1, undos)
}

func TestForceDirtierSkipsEditAndUndo(t *testing.T) {
	doc := &forceDoc{fakeDoc: fakeDoc{name: "Demo.Order.bpl"}}
	h := newHarness(t, func(c *Config) { c.Document = doc })

	h.modified(t, true)
	h.modified(t, false)

	edits, undos := doc.counts()
	assert.Zero(t, edits)
	assert.Zero(t, undos)
	assert.Equal(t, []bool{true, false}, doc.flags)
}

func TestModifiedWithoutDocumentOnlyTracks(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.Document = nil })

	h.modified(t, true)
	assert.True(t, h.session.Dirty())
}

func TestCompatibilityAckBeforeTimeout(t *testing.T) {
	h := newHarness(t)

	h.fromPage(t, protocol.Message{Compatible: true})
	assert.Equal(t, CompatibilityConfirmed, h.session.Compatibility())
	assert.Equal(t, StateActive, h.session.State())
	assert.Zero(t, h.clock.Pending(), "timer must be cancelled")

	h.clock.Advance(10 * time.Second)
	h.session.Loop().Flush()
	_, _, warns, _ := h.dialogs.snapshot()
	assert.Empty(t, warns)
}

func TestCompatibilityTimeoutWarnsOnce(t *testing.T) {
	h := newHarness(t)

	h.clock.Advance(2 * time.Second)
	h.session.Loop().Flush()
	assert.Equal(t, CompatibilityPending, h.session.Compatibility())

	h.clock.Advance(time.Second)
	h.session.Loop().Flush()
	assert.Equal(t, CompatibilityTimedOut, h.session.Compatibility())
	assert.Equal(t, StateActive, h.session.State())

	_, _, warns, _ := h.dialogs.snapshot()
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0], "BPL")

	h.fromPage(t, protocol.Message{Compatible: true})
	assert.Equal(t, CompatibilityTimedOut, h.session.Compatibility(), "late ack is ignored")
	_, _, warns, _ = h.dialogs.snapshot()
	assert.Len(t, warns, 1)
}

func TestSessionUsableAfterTimeout(t *testing.T) {
	h := newHarness(t)
	h.clock.Advance(3 * time.Second)
	h.session.Loop().Flush()

	h.modified(t, true)
	edits, _ := h.doc.counts()
	assert.Equal(t, 1, edits)
}

func TestConfirmAnswersThroughPrivilegedChannel(t *testing.T) {
	h := newHarness(t)
	port := &endpoint{}

	msg := protocol.Message{Direction: protocol.ToHost, Confirm: "Proceed?", UsePort: true}
	require.NoError(t, h.panel.Deliver(msg, port))
	h.session.Loop().Flush()

	confirms, _, _, _ := h.dialogs.snapshot()
	assert.Equal(t, []string{"Proceed?"}, confirms)

	answers := port.messages()
	require.Len(t, answers, 1)
	require.NotNil(t, answers[0].Answer)
	assert.True(t, *answers[0].Answer)
	assert.True(t, answers[0].UsePort)
	assert.Equal(t, protocol.ToContent, answers[0].Direction)
	assert.Zero(t, h.page.count(protocol.KindAnswer), "answers never reach the page broadcast")
	assert.False(t, h.session.ConfirmPending())

	assert.ErrorIs(t, h.panel.PostMessage(protocol.AnswerMessage(true)), relay.ErrNoChannel)
	assert.Len(t, port.messages(), 1)
}

func TestConfirmCancelAnswersFalse(t *testing.T) {
	h := newHarness(t)
	h.dialogs.answer = false
	port := &endpoint{}

	require.NoError(t, h.panel.Deliver(protocol.Message{Direction: protocol.ToHost, Confirm: "Delete?", UsePort: true}, port))
	h.session.Loop().Flush()

	answers := port.messages()
	require.Len(t, answers, 1)
	assert.False(t, *answers[0].Answer)
}

func TestEventsFlowWhileConfirmIsOpen(t *testing.T) {
	h := newHarness(t)
	h.dialogs.block = make(chan struct{})
	port := &endpoint{}

	require.NoError(t, h.panel.Deliver(protocol.Message{Direction: protocol.ToHost, Confirm: "Proceed?", UsePort: true}, port))
	require.NoError(t, h.panel.Deliver(protocol.ModifiedMessage(true), nil))

	require.Eventually(t, func() bool {
		edits, _ := h.doc.counts()
		return edits == 1
	}, time.Second, time.Millisecond)
	assert.True(t, h.session.ConfirmPending())
	assert.Empty(t, port.messages())

	close(h.dialogs.block)
	h.session.Loop().Flush()
	assert.Len(t, port.messages(), 1)
	assert.False(t, h.session.ConfirmPending())
}

func TestOverlappingConfirmsStayPendingUntilLastAnswer(t *testing.T) {
	h := newHarness(t)
	first, second := make(chan struct{}), make(chan struct{})
	h.dialogs.mu.Lock()
	h.dialogs.gates = map[string]chan struct{}{"First?": first, "Second?": second}
	h.dialogs.mu.Unlock()
	port := &endpoint{}

	require.NoError(t, h.panel.Deliver(protocol.Message{Direction: protocol.ToHost, Confirm: "First?", UsePort: true}, port))
	require.NoError(t, h.panel.Deliver(protocol.Message{Direction: protocol.ToHost, Confirm: "Second?", UsePort: true}, port))
	require.Eventually(t, func() bool {
		confirms, _, _, _ := h.dialogs.snapshot()
		return len(confirms) == 2
	}, time.Second, time.Millisecond)
	assert.True(t, h.session.ConfirmPending())

	close(first)
	require.Eventually(t, func() bool { return len(port.messages()) == 1 }, time.Second, time.Millisecond)
	h.session.Loop().Flush()
	assert.True(t, h.session.ConfirmPending(), "second confirm is still open")
	assert.True(t, h.session.Snapshot().ConfirmPending)

	// The channel was spent on the first answer, so only the count changes.
	close(second)
	require.Eventually(t, func() bool { return !h.session.ConfirmPending() }, time.Second, time.Millisecond)
	assert.False(t, h.session.Snapshot().ConfirmPending)
	assert.Len(t, port.messages(), 1)
}

func TestAlertShowsNotice(t *testing.T) {
	h := newHarness(t)

	h.fromPage(t, protocol.Message{Alert: "Saved"})

	_, alerts, _, _ := h.dialogs.snapshot()
	assert.Equal(t, []string{"Saved"}, alerts)
	assert.Empty(t, h.page.messages(), "alerts get no reply")
}

func TestReloadFromPageReloadsUnderlyingClass(t *testing.T) {
	h := newHarness(t)

	h.fromPage(t, protocol.Message{Reload: 1})

	h.reloader.mu.Lock()
	defer h.reloader.mu.Unlock()
	assert.Equal(t, []string{"Demo.Order.cls"}, h.reloader.reloaded)
}

func TestHostSaveSendsOneReloadPerSave(t *testing.T) {
	h := newHarness(t)

	h.saves.save("Demo.Order.cls")
	h.session.Loop().Flush()
	assert.Equal(t, 1, h.page.count(protocol.KindReload))

	h.saves.save("Other.Class.cls")
	h.session.Loop().Flush()
	assert.Equal(t, 1, h.page.count(protocol.KindReload))

	h.saves.save("demo.order.CLS")
	h.session.Loop().Flush()
	assert.Equal(t, 2, h.page.count(protocol.KindReload))

	for _, m := range h.page.messages() {
		assert.Equal(t, protocol.ToContent, m.Direction)
		assert.False(t, m.UsePort)
	}
}

func TestFocusSetsActiveSession(t *testing.T) {
	h := newHarness(t)

	h.panel.SetActive(true)
	h.session.Loop().Flush()
	assert.Same(t, h.session, h.registry.Active())

	h.panel.SetActive(false)
	h.session.Loop().Flush()
	assert.Same(t, h.session, h.registry.Active(), "losing focus keeps the last active session")
}

func TestDisposeReleasesEverything(t *testing.T) {
	h := newHarness(t)
	h.panel.SetActive(true)
	h.session.Loop().Flush()

	h.session.Dispose()
	<-h.session.Done()

	assert.Equal(t, StateDisposed, h.session.State())
	assert.Zero(t, h.registry.Len())
	assert.Nil(t, h.registry.Active())
	assert.Zero(t, h.clock.Pending())
	assert.Zero(t, h.saves.emitter.Len())

	h.saves.save("Demo.Order.cls")
	assert.Zero(t, h.page.count(protocol.KindReload))

	h.clock.Advance(time.Minute)
	_, _, warns, _ := h.dialogs.snapshot()
	assert.Empty(t, warns)

	h.session.Dispose()
}

func TestPanelDisposeDisposesSession(t *testing.T) {
	h := newHarness(t)

	h.panel.Dispose()
	select {
	case <-h.session.Done():
	case <-time.After(time.Second):
		t.Fatal("session not disposed")
	}
	assert.Zero(t, h.registry.Len())
}

func TestConfirmAnswerAfterDisposeIsDropped(t *testing.T) {
	h := newHarness(t)
	h.dialogs.block = make(chan struct{})
	port := &endpoint{}

	require.NoError(t, h.panel.Deliver(protocol.Message{Direction: protocol.ToHost, Confirm: "Proceed?", UsePort: true}, port))
	require.Eventually(t, func() bool {
		confirms, _, _, _ := h.dialogs.snapshot()
		return len(confirms) == 1
	}, time.Second, time.Millisecond)

	h.session.Dispose()
	<-h.session.Done()
	h.session.Loop().Flush()
	assert.Empty(t, port.messages())
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t)
	h.modified(t, true)
	h.panel.SetActive(true)
	h.session.Loop().Flush()

	snap := h.session.Snapshot()
	assert.Equal(t, h.session.ID(), snap.ID)
	assert.Equal(t, "Demo.Order.cls", snap.Artifact)
	assert.Equal(t, "Demo.Order.bpl", snap.Proxy)
	assert.Equal(t, "process", snap.Kind)
	assert.Equal(t, "custom", snap.Variant)
	assert.Equal(t, "awaiting-compatibility", snap.State)
	assert.Equal(t, "pending", snap.Compatibility)
	assert.True(t, snap.Dirty)
	assert.True(t, snap.Active)
	require.NotEmpty(t, snap.Events)
	assert.Equal(t, "modified", snap.Events[0].Kind)
	assert.Equal(t, "true", snap.Events[0].Detail)
}
