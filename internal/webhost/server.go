// Package webhost serves embedded editor surfaces to a local browser.
//
// Each surface is an HTML page that frames the remote editor and runs a small
// shim. The shim talks to the host over a websocket: editor messages come up
// as "message" frames and host messages go down as "post" frames aimed at
// the iframe or at the port the editor handed over.
package webhost

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/iksnae/studio-bridge/internal"
	"github.com/iksnae/studio-bridge/internal/bridge"
	"github.com/iksnae/studio-bridge/internal/export"
	"github.com/iksnae/studio-bridge/internal/protocol"
	"github.com/iksnae/studio-bridge/internal/relay"
	"github.com/iksnae/studio-bridge/internal/surface"
)

const (
	maxOutbox       = 256
	shutdownTimeout = 5 * time.Second
)

// ErrStopped is returned when creating surfaces on a stopped server.
var ErrStopped = errors.New("web host is stopped")

// hosted is a surface plus the page connection currently attached to it.
// Frames posted before the page connects wait in outbox.
type hosted struct {
	surface *surface.Surface

	mu     sync.Mutex
	conn   *pageConn
	outbox []Frame
}

func (h *hosted) send(f Frame) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conn == nil {
		if len(h.outbox) >= maxOutbox {
			internal.LogWarn("webhost: surface %s outbox full, dropping oldest frame", h.surface.ID())
			h.outbox = h.outbox[1:]
		}
		h.outbox = append(h.outbox, f)
		return nil
	}
	return h.conn.enqueue(f)
}

// attach makes c the page connection, replacing any earlier one, and flushes
// frames queued while no page was connected.
func (h *hosted) attach(c *pageConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conn != nil {
		h.conn.close()
	}
	h.conn = c
	for _, f := range h.outbox {
		if err := c.enqueue(f); err != nil {
			internal.LogWarn("webhost: surface %s: %v", h.surface.ID(), err)
		}
	}
	h.outbox = nil
}

func (h *hosted) detach(c *pageConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == c {
		h.conn = nil
	}
}

func (h *hosted) closeConn() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn != nil {
		h.conn.close()
		h.conn = nil
	}
}

func (h *hosted) endpoint(target Target) relay.Endpoint {
	return relay.EndpointFunc(func(msg protocol.Message) error {
		return h.send(Frame{Type: FramePost, Target: target, Message: &msg})
	})
}

// Server hosts surfaces over HTTP and websockets. It implements
// bridge.SurfaceFactory.
type Server struct {
	addr     string
	registry *bridge.Registry
	upgrader websocket.Upgrader

	mu         sync.Mutex
	surfaces   map[string]*hosted
	httpServer *http.Server
	listener   net.Listener
	stopped    bool
}

// NewServer creates a server that will listen on addr. registry backs the
// session API and may be nil.
func NewServer(addr string, registry *bridge.Registry) *Server {
	return &Server{
		addr:     addr,
		registry: registry,
		surfaces: make(map[string]*hosted),
		upgrader: websocket.Upgrader{
			CheckOrigin:     sameOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// sameOrigin accepts websocket upgrades from pages this server rendered.
// Requests without an Origin header come from non-browser clients.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && strings.EqualFold(u.Host, r.Host)
}

// NewSurface creates a hosted surface. The page is reachable at
// SurfaceURL(panel.ID()) once the surface is loaded.
func (s *Server) NewSurface(title string) (bridge.Panel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, ErrStopped
	}

	h := &hosted{}
	h.surface = surface.New(title, h.endpoint(TargetContent))
	id := h.surface.ID()
	s.surfaces[id] = h

	h.surface.OnDispose(func() {
		s.mu.Lock()
		delete(s.surfaces, id)
		s.mu.Unlock()
		h.closeConn()
		internal.LogDebug("webhost: surface %s removed", id)
	})

	return h.surface, nil
}

func (s *Server) lookup(id string) (*hosted, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.surfaces[id]
	return h, ok
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /surface/{id}", s.handlePage)
	mux.HandleFunc("DELETE /surface/{id}", s.handleClose)
	mux.HandleFunc("GET /surface/{id}/ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/sessions", s.handleSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleSession)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// StartAsync starts listening and serving in the background. The returned
// channel yields nil once the listener is up, or the listen error.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		errCh <- fmt.Errorf("failed to listen on %s: %w", s.addr, err)
		close(errCh)
		return errCh
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.listener = ln
	s.httpServer = srv
	s.mu.Unlock()

	go func() {
		internal.LogInfo("Web host listening on %s", ln.Addr())
		errCh <- nil
		close(errCh)

		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			internal.LogError("Web host error: %v", err)
		}
	}()

	return errCh
}

// Addr returns the bound address, or the configured one before StartAsync.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// SurfaceURL returns the browser URL of a surface page.
func (s *Server) SurfaceURL(id string) string {
	return fmt.Sprintf("http://%s/surface/%s", s.Addr(), id)
}

// Stop disposes every hosted surface and shuts the HTTP server down.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	surfaces := make([]*hosted, 0, len(s.surfaces))
	for _, h := range s.surfaces {
		surfaces = append(surfaces, h)
	}
	srv := s.httpServer
	s.mu.Unlock()

	for _, h := range surfaces {
		h.surface.Dispose()
	}

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	u := h.surface.URL()
	if u.IsZero() {
		http.Error(w, "surface is not loaded yet", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	data := pageData{ID: h.surface.ID(), Title: h.surface.Title(), URL: u.String()}
	if err := renderPage(w, data); err != nil {
		internal.LogError("webhost: failed to render surface %s: %v", data.ID, err)
	}
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.surface.Dispose()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		internal.LogWarn("webhost: websocket upgrade failed: %v", err)
		return
	}

	c := newPageConn(conn)
	h.attach(c)
	internal.LogDebug("webhost: page attached to surface %s", h.surface.ID())

	go c.writePump()
	c.readPump(func(f Frame) { s.handleFrame(h, f) })
	h.detach(c)
}

func (s *Server) handleFrame(h *hosted, f Frame) {
	switch f.Type {
	case FrameMessage:
		if f.Message == nil {
			return
		}
		var port relay.Endpoint
		if f.Port {
			port = h.endpoint(TargetPort)
		}
		if err := h.surface.Deliver(*f.Message, port); err != nil {
			internal.LogWarn("webhost: surface %s: %v", h.surface.ID(), err)
		}
	case FrameFocus:
		h.surface.SetActive(f.Active)
	case FrameClose:
		h.surface.Dispose()
	default:
		internal.LogDebug("webhost: ignoring frame type %q", f.Type)
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	snapshots := []*internal.SessionSnapshot{}
	if s.registry != nil {
		snapshots = s.registry.Snapshots()
	}

	data, err := sonic.Marshal(snapshots)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		http.NotFound(w, r)
		return
	}

	id := r.PathValue("id")
	var found *bridge.Session
	for _, sess := range s.registry.Sessions() {
		if sess.ID() == id || sess.Key() == id {
			found = sess
			break
		}
	}
	if found == nil {
		http.NotFound(w, r)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	exporter, err := export.NewExporter(format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", exporter.ContentType())
	if err := exporter.Export(found.Snapshot(), w); err != nil {
		internal.LogError("webhost: failed to export session %s: %v", id, err)
	}
}
