package link

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Alia5/PadBridge/command"
)

// State is the lifecycle stage of a connection.
type State uint8

const (
	StateOpened State = iota
	StateIdentified
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpened:
		return "opened"
	case StateIdentified:
		return "identified"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Transport is the listener side of one accepted connection.
type Transport interface {
	// Kind names the transport, e.g. "ws" or "bt".
	Kind() string
	RemoteAddr() string
	// Close tears down the underlying connection so the listener's read loop ends.
	Close() error
}

// Conn is the per-connection controller. Payloads must be handed to it by a
// single read loop; Handle is additionally serialized so a misbehaving
// listener cannot interleave two payloads.
type Conn struct {
	hub       *Hub
	id        uuid.UUID
	transport Transport
	logger    *slog.Logger
	opened    time.Time

	handleMu sync.Mutex

	mu           sync.Mutex
	state        State
	controllerID string
	name         string

	closeOnce sync.Once
}

// ID is the connection handle.
func (c *Conn) ID() uuid.UUID { return c.id }

// Transport returns the transport the connection arrived on.
func (c *Conn) Transport() Transport { return c.transport }

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ControllerID returns the bound controller id, or "" before identification.
func (c *Conn) ControllerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controllerID
}

// Name returns the last display name the controller identified with.
func (c *Conn) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// Handle decodes and dispatches one payload. It never fails: malformed input
// is reported and dropped.
func (c *Conn) Handle(payload []byte) {
	c.handleMu.Lock()
	defer c.handleMu.Unlock()

	if c.State() == StateClosed {
		return
	}
	c.hub.raw.Log(c.transport.Kind()+" "+c.id.String(), payload)

	a := command.Decode(payload)
	// only the current owner of an id refreshes its session
	res := c.hub.dispatcher.Dispatch(a, c.hub.owned(c))
	if res.Identified {
		c.hub.bind(c, res.ControllerID, a.ControllerName, res.Created)
		return
	}

	c.mu.Lock()
	if c.state == StateIdentified {
		c.state = StateActive
	}
	c.mu.Unlock()
}

// Close tears the connection down exactly once, whichever path calls it first.
// reason is reported with the disconnect.
func (c *Conn) Close(reason string) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		if err := c.transport.Close(); err != nil {
			c.logger.Debug("transport close", "error", err)
		}
		c.hub.closed(c, reason)
	})
}
