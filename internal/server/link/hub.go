// Package link owns per-connection lifecycle and the table of active
// connections by controller id.
//
// Listeners call Hub.Open for every accepted connection, Conn.Handle for
// every payload, and Conn.Close when the transport ends. Close is idempotent
// so a remote EOF racing an explicit Kick unbinds exactly once.
package link

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/Alia5/PadBridge/dispatch"
	"github.com/Alia5/PadBridge/internal/log"
	"github.com/Alia5/PadBridge/session"
)

// Hub tracks open connections and which connection owns each controller id.
type Hub struct {
	registry   *session.Registry
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	raw        log.RawLogger
	clock      clock.Clock

	mu      sync.Mutex
	drained *sync.Cond
	closing bool
	conns   map[uuid.UUID]*Conn
	active  map[string]*Conn
}

// Option configures a Hub.
type Option func(*Hub)

// WithRawLogger records every inbound payload.
func WithRawLogger(r log.RawLogger) Option {
	return func(h *Hub) { h.raw = r }
}

// WithClock sets the clock used for connection timestamps.
func WithClock(c clock.Clock) Option {
	return func(h *Hub) { h.clock = c }
}

// NewHub returns a Hub feeding registry and dispatcher.
func NewHub(registry *session.Registry, dispatcher *dispatch.Dispatcher, logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		registry:   registry,
		dispatcher: dispatcher,
		logger:     logger,
		raw:        log.NewRaw(nil),
		clock:      clock.New(),
		conns:      make(map[uuid.UUID]*Conn),
		active:     make(map[string]*Conn),
	}
	h.drained = sync.NewCond(&h.mu)
	for _, o := range opts {
		o(h)
	}
	return h
}

// Open registers a newly accepted connection. After CloseAll the returned
// connection is already closed.
func (h *Hub) Open(t Transport) *Conn {
	c := &Conn{
		hub:       h,
		id:        uuid.New(),
		transport: t,
		opened:    h.clock.Now(),
		state:     StateOpened,
	}
	c.logger = h.logger.With("conn", c.id.String(), "transport", t.Kind(), "remote", t.RemoteAddr())

	h.mu.Lock()
	h.conns[c.id] = c
	closing := h.closing
	h.mu.Unlock()

	c.logger.Info("client connected, waiting for identification")
	if closing {
		c.Close("server shutting down")
	}
	return c
}

// bind points id at c. The newest connection identifying with an id wins;
// the previous owner stays open but no longer owns the binding.
func (h *Hub) bind(c *Conn, id, name string, created bool) {
	h.mu.Lock()
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		// closed while identifying; do not leave an unowned session behind
		if _, owned := h.active[id]; !owned {
			h.registry.Remove(id)
		}
		h.mu.Unlock()
		return
	}
	// the previous owner may have closed since Dispatch upserted the record
	if !h.registry.Exists(id) {
		h.registry.Upsert(id, name)
	}
	prevID := c.controllerID
	c.controllerID = id
	c.name = name
	c.state = StateIdentified
	c.mu.Unlock()

	if prevID != "" && prevID != id && h.active[prevID] == c {
		delete(h.active, prevID)
		h.registry.Remove(prevID)
	}
	prev := h.active[id]
	h.active[id] = c
	h.mu.Unlock()

	logger := c.logger.With("controller", id, "name", name)
	if created {
		logger.Info("controller identified")
	} else {
		logger.Info("controller re-identified")
	}
	if prev != nil && prev != c {
		logger.Info("controller id taken over from another connection", "previous", prev.id.String())
	}
}

// owned returns the controller id c currently owns, or "" when c never
// identified or another connection took its id over.
func (h *Hub) owned(c *Conn) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := c.ControllerID()
	if id == "" || h.active[id] != c {
		return ""
	}
	return id
}

// closed runs once per connection from Conn.Close. Only the connection that
// currently owns a controller id removes its session.
func (h *Hub) closed(c *Conn, reason string) {
	h.mu.Lock()
	id := c.ControllerID()
	if id != "" && h.active[id] == c {
		delete(h.active, id)
		h.registry.Remove(id)
	}
	delete(h.conns, c.id)
	h.drained.Broadcast()
	h.mu.Unlock()

	args := []any{"reason", reason, "duration", h.clock.Since(c.opened).Round(time.Millisecond)}
	if id != "" {
		c.logger.Info("controller disconnected", append(args, "controller", id, "name", c.Name())...)
	} else {
		c.logger.Info("client disconnected", args...)
	}
}

// Kick closes the connection bound to controller id.
func (h *Hub) Kick(id string) error {
	h.mu.Lock()
	c, ok := h.active[id]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("controller %q is not connected", id)
	}
	c.Close("kicked")
	return nil
}

// Lookup returns the connection currently bound to id.
func (h *Hub) Lookup(id string) (*Conn, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.active[id]
	return c, ok
}

// Active returns the bound connections ordered by controller id.
func (h *Hub) Active() []*Conn {
	h.mu.Lock()
	out := make([]*Conn, 0, len(h.active))
	for _, c := range h.active {
		out = append(out, c)
	}
	h.mu.Unlock()
	slices.SortFunc(out, func(a, b *Conn) int {
		return strings.Compare(a.ControllerID(), b.ControllerID())
	})
	return out
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// CloseAll closes every open connection and every connection opened later.
func (h *Hub) CloseAll(reason string) {
	h.mu.Lock()
	h.closing = true
	all := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		all = append(all, c)
	}
	h.mu.Unlock()
	for _, c := range all {
		c.Close(reason)
	}
}

// Wait blocks until no connection is open.
func (h *Hub) Wait() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for len(h.conns) > 0 {
		h.drained.Wait()
	}
}
