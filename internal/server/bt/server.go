// Package bt accepts controller connections over Bluetooth RFCOMM (serial
// port profile). The stream carries JSON command objects back to back.
package bt

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Alia5/PadBridge/internal/server/link"
)

// listener is the platform RFCOMM socket.
type listener interface {
	Accept() (io.ReadWriteCloser, string, error)
	Close() error
}

type Server struct {
	config    ServerConfig
	hub       *link.Hub
	logger    *slog.Logger
	mu        sync.Mutex
	ln        listener
	closed    atomic.Bool
	ready     chan struct{}
	readyOnce sync.Once
}

func New(config ServerConfig, hub *link.Hub, logger *slog.Logger) *Server {
	return &Server{
		config: config,
		hub:    hub,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// ListenAndServe binds the configured RFCOMM channel and accepts until Close.
func (s *Server) ListenAndServe() error {
	ln, err := listen(s.config.Channel)
	if err != nil {
		return err
	}
	return s.serve(ln)
}

func (s *Server) serve(ln listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	if s.closed.Load() {
		_ = ln.Close()
	}
	s.readyOnce.Do(func() { close(s.ready) })
	s.logger.Info("Bluetooth server listening", "channel", s.config.Channel)
	for {
		rwc, remote, err := ln.Accept()
		if err != nil {
			if s.closed.Load() {
				s.logger.Info("Bluetooth server stopped")
				return nil
			}
			s.logger.Error("Bluetooth accept error", "error", err)
			return err
		}
		go s.serveStream(rwc, remote)
	}
}

// Ready returns a channel that is closed once the channel is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Close stops accepting new connections.
func (s *Server) Close() error {
	s.closed.Store(true)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

func (s *Server) serveStream(rwc io.ReadWriteCloser, remote string) {
	c := s.hub.Open(&transport{rwc: rwc, remote: remote})
	fr := newFramer(rwc, s.config.ReadLimit)
	for {
		payload, err := fr.Next()
		if err != nil {
			c.Close(closeReason(err))
			return
		}
		c.Handle(payload)
	}
}

func closeReason(err error) string {
	switch {
	case errors.Is(err, io.EOF):
		return "closed by client"
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "closed by client mid-message"
	}
	return "read error: " + err.Error()
}

type transport struct {
	rwc    io.ReadWriteCloser
	remote string
}

func (t *transport) Kind() string       { return "bt" }
func (t *transport) RemoteAddr() string { return t.remote }
func (t *transport) Close() error       { return t.rwc.Close() }
