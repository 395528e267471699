package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Alia5/PadBridge/internal/auth"
	apierror "github.com/Alia5/PadBridge/internal/server/api/error"
)

var wsRegex = regexp.MustCompile(`\s`)

// Server implements the management API: one `<path>[ payload]\x00` request
// per TCP connection, answered by a single JSON line.
type Server struct {
	addr   string
	logger *slog.Logger
	router *Router
	config ServerConfig
	key    []byte

	mu sync.Mutex
	ln net.Listener
}

// New creates a new API server. Handlers are added through Router before Start.
func New(addr string, config ServerConfig, logger *slog.Logger) *Server {
	return &Server{
		addr:   addr,
		logger: logger,
		config: config,
		router: NewRouter(),
	}
}

// Router returns the router used by the API server so callers can register handlers.
func (a *Server) Router() *Router { return a.router }

// Config returns the server configuration.
func (a *Server) Config() ServerConfig { return a.config }

// Addr returns the bound address once started.
func (a *Server) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ln == nil {
		return a.addr
	}
	return a.ln.Addr().String()
}

// Start listens on the configured address and serves incoming API commands.
func (a *Server) Start() error {
	if a.config.RequireAuth && a.config.Password == "" {
		return errors.New("api: authentication required but no password configured")
	}
	if a.config.Password != "" {
		key, err := auth.DeriveKey(a.config.Password)
		if err != nil {
			return fmt.Errorf("api: derive key: %w", err)
		}
		a.key = key
	}
	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.ln = ln
	a.mu.Unlock()
	a.logger.Info("API listening", "addr", ln.Addr().String(), "requireAuth", a.config.RequireAuth)
	go a.serve(ln)
	return nil
}

// Close stops the API server.
func (a *Server) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ln != nil {
		_ = a.ln.Close()
	}
}

func (a *Server) serve(ln net.Listener) {
	for {
		c, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				a.logger.Info("API server stopped")
				return
			}
			a.logger.Info("API accept error", "error", err)
			return
		}
		go a.handleConn(c)
	}
}

func (a *Server) writeError(w io.Writer, err error) {
	problemJSON, _ := json.Marshal(apierror.WrapError(err))
	fmt.Fprintf(w, "%s\n", string(problemJSON))
}

func (a *Server) writeOK(w io.Writer, rest string) {
	if rest == "" {
		fmt.Fprintln(w)
	} else {
		fmt.Fprintf(w, "%s\n", rest)
	}
}

func (a *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	connCtx, connCancel := context.WithCancel(context.Background())
	defer connCancel()

	connLogger := a.logger.With("remote", conn.RemoteAddr().String())
	if a.config.ConnectionTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(a.config.ConnectionTimeout))
	}

	r := bufio.NewReader(conn)
	var w io.Writer = conn
	if a.key != nil {
		isAuth, err := auth.IsHandshake(r)
		if err != nil && r.Buffered() == 0 {
			connLogger.Debug("api read", "error", err)
			return
		}
		switch {
		case isAuth:
			sc, err := auth.Accept(conn, r, a.key)
			if err != nil {
				connLogger.Warn("api authentication failed", "error", err)
				if errors.Is(err, auth.ErrInvalidPassword) {
					a.writeError(conn, apierror.ErrUnauthorized("invalid password"))
				}
				return
			}
			r = bufio.NewReader(sc)
			w = sc
		case a.config.RequireAuth:
			connLogger.Warn("api unauthenticated request rejected")
			a.writeError(w, apierror.ErrUnauthorized("authentication required"))
			return
		}
	}

	reqData, err := r.ReadString('\x00')
	if err != nil {
		if err == io.EOF {
			connLogger.Error("api incomplete request (no null terminator)")
		} else {
			connLogger.Error("read api data", "error", err)
		}
		return
	}
	reqData = strings.TrimSuffix(reqData, "\x00")
	if reqData == "" {
		connLogger.Error("api empty command")
		a.writeError(w, apierror.ErrBadRequest("empty request"))
		return
	}

	path, payload := reqData, ""
	if loc := wsRegex.FindStringIndex(reqData); loc != nil {
		path = reqData[:loc[0]]
		payload = reqData[loc[1]:]
	}
	if path == "" {
		connLogger.Error("api empty path")
		a.writeError(w, apierror.ErrBadRequest("empty path"))
		return
	}

	path = strings.ToLower(path)
	connLogger.Info("api cmd", "path", path)

	h, params := a.router.Match(path)
	if h == nil {
		connLogger.Error("api unknown path", "path", path)
		a.writeError(w, apierror.ErrNotFound(fmt.Sprintf("unknown path: %s", path)))
		return
	}
	req := &Request{Ctx: connCtx, Params: params, Payload: payload}
	res := &Response{}
	if err := h(req, res, connLogger); err != nil {
		connLogger.Error("api handler error", "path", path, "error", err)
		a.writeError(w, err)
		return
	}
	connLogger.Debug("api handler success", "path", path)
	a.writeOK(w, res.JSON)
}
