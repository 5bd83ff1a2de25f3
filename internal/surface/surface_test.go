package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/studio-bridge/internal/protocol"
	"github.com/iksnae/studio-bridge/internal/relay"
	"github.com/iksnae/studio-bridge/internal/urlbuilder"
)

type recorder struct {
	msgs []protocol.Message
}

func (r *recorder) PostMessage(msg protocol.Message) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

func TestSurfaceRoutesBothWays(t *testing.T) {
	page := &recorder{}
	s := New("Demo.Order.bpl", page)

	var host []protocol.Message
	sub := s.OnMessage(func(m protocol.Message) { host = append(host, m) })
	defer sub.Dispose()

	require.NoError(t, s.PostMessage(protocol.ReloadMessage()))
	require.Len(t, page.msgs, 1)
	assert.Equal(t, protocol.KindReload, page.msgs[0].Kind())

	require.NoError(t, s.Deliver(protocol.Message{Direction: protocol.ToHost, Alert: "hi"}, nil))
	require.Len(t, host, 1)
	assert.Equal(t, "hi", host[0].Alert)
}

func TestSurfaceAnswersThroughCapturedPort(t *testing.T) {
	page := &recorder{}
	port := &recorder{}
	s := New("x", page)

	require.NoError(t, s.Deliver(protocol.Message{Direction: protocol.ToHost, Confirm: "Proceed?", UsePort: true}, port))
	require.NoError(t, s.PostMessage(protocol.AnswerMessage(true)))
	assert.ErrorIs(t, s.PostMessage(protocol.AnswerMessage(true)), relay.ErrNoChannel)

	require.Len(t, port.msgs, 1)
	assert.True(t, *port.msgs[0].Answer)
	assert.Empty(t, page.msgs)
}

func TestSurfaceFocusAndDispose(t *testing.T) {
	s := New("x", &recorder{})
	assert.NotEmpty(t, s.ID())

	var focus []bool
	s.OnFocus(func(a bool) { focus = append(focus, a) })
	disposed := 0
	s.OnDispose(func() { disposed++ })

	s.SetActive(true)
	s.SetActive(true)
	s.SetActive(false)
	assert.Equal(t, []bool{true, false}, focus)

	s.SetActive(true)
	assert.True(t, s.Active())

	s.Dispose()
	s.Dispose()
	assert.Equal(t, 1, disposed)
	assert.False(t, s.Active())
	assert.True(t, s.Closed())
	assert.ErrorIs(t, s.PostMessage(protocol.ReloadMessage()), ErrClosed)
	assert.ErrorIs(t, s.Load(urlbuilder.RemoteURL{}), ErrClosed)
}
