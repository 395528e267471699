// Package ws accepts controller connections over WebSocket. Every text or
// binary message is one command payload.
package ws

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Alia5/PadBridge/internal/server/link"
)

type Server struct {
	config    ServerConfig
	hub       *link.Hub
	logger    *slog.Logger
	upgrader  websocket.Upgrader
	http      *http.Server
	ln        net.Listener
	ready     chan struct{}
	readyOnce sync.Once
}

func New(config ServerConfig, hub *link.Hub, logger *slog.Logger) *Server {
	if config.Path == "" {
		config.Path = "/"
	}
	s := &Server{
		config: config,
		hub:    hub,
		logger: logger,
		ready:  make(chan struct{}),
		upgrader: websocket.Upgrader{
			// phone clients do not send a browser origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc(config.Path, s.handleUpgrade)
	s.http = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return s
}

// ListenAndServe binds the configured address and serves until Close.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.readyOnce.Do(func() { close(s.ready) })
	s.logger.Info("WebSocket server listening", "addr", ln.Addr().String(), "path", s.config.Path)
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("WebSocket server stopped")
	return nil
}

// Ready returns a channel that is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound listen address. Only valid after Ready.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Port returns the bound TCP port, or 0 before Ready.
func (s *Server) Port() int {
	a, ok := s.Addr().(*net.TCPAddr)
	if !ok {
		return 0
	}
	return a.Port
}

// Close stops accepting new connections. Established connections are owned
// by the hub and closed through it.
func (s *Server) Close() error {
	return s.http.Close()
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	wc, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Info("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	if s.config.ReadLimit > 0 {
		wc.SetReadLimit(s.config.ReadLimit)
	}
	c := s.hub.Open(&transport{conn: wc})
	go s.readLoop(wc, c)
}

func (s *Server) readLoop(wc *websocket.Conn, c *link.Conn) {
	for {
		mt, data, err := wc.ReadMessage()
		if err != nil {
			c.Close(closeReason(err))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		c.Handle(data)
	}
}

func closeReason(err error) string {
	var ce *websocket.CloseError
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		return "message too large"
	case errors.As(err, &ce):
		if ce.Text != "" {
			return "closed by client: " + ce.Text
		}
		return "closed by client (" + strconv.Itoa(ce.Code) + ")"
	case errors.Is(err, net.ErrClosed):
		return "closed"
	}
	return "read error: " + err.Error()
}

type transport struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	err       error
}

func (t *transport) Kind() string       { return "ws" }
func (t *transport) RemoteAddr() string { return t.conn.RemoteAddr().String() }

func (t *transport) Close() error {
	t.closeOnce.Do(func() {
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		t.err = t.conn.Close()
	})
	return t.err
}
