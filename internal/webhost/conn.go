package webhost

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iksnae/studio-bridge/internal"
)

const (
	sendBufferSize = 64
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxFrameSize   = 512 * 1024
)

var (
	errConnClosed = errors.New("page connection closed")
	errSlowPage   = errors.New("page is not keeping up, frame dropped")
)

// pageConn is the websocket connection of one page shim.
type pageConn struct {
	conn *websocket.Conn
	send chan Frame
	done chan struct{}
	once sync.Once
}

func newPageConn(conn *websocket.Conn) *pageConn {
	return &pageConn{
		conn: conn,
		send: make(chan Frame, sendBufferSize),
		done: make(chan struct{}),
	}
}

// enqueue queues f without blocking.
func (c *pageConn) enqueue(f Frame) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.send <- f:
		return nil
	case <-c.done:
		return errConnClosed
	default:
		return errSlowPage
	}
}

// close signals the pumps to stop. Safe to call more than once.
func (c *pageConn) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *pageConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case f := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			data, err := encodeFrame(f)
			if err != nil {
				internal.LogWarn("webhost: %v", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				internal.LogDebug("webhost: write error: %v", err)
				c.close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// readPump decodes frames and hands them to handle until the connection
// drops.
func (c *pageConn) readPump(handle func(Frame)) {
	defer c.close()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				internal.LogDebug("webhost: read error: %v", err)
			}
			return
		}
		f, err := decodeFrame(data)
		if err != nil {
			internal.LogWarn("webhost: %v", err)
			continue
		}
		handle(f)
	}
}
