// Package session tracks which remote controllers are attached.
//
// A Registry is keyed by the caller-supplied controller id. Every call is
// atomic with respect to every other call; snapshots are copies so readers
// never hold the lock while they iterate.
package session

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Session is a controller identity and liveness record.
type Session struct {
	ID          string
	DisplayName string
	LastSeen    time.Time
}

type entry struct {
	Session
	seq uint64
}

// Registry holds the known controller sessions.
type Registry struct {
	mu       sync.Mutex
	clock    clock.Clock
	sessions map[string]*entry
	seq      uint64
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces the clock used for LastSeen and expiry.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// NewRegistry returns an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		clock:    clock.New(),
		sessions: make(map[string]*entry),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Exists reports whether id is registered.
func (r *Registry) Exists(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	return ok
}

// Upsert creates the session if absent, otherwise replaces its display name
// and refreshes LastSeen. It reports whether a new session was created.
func (r *Registry) Upsert(id, displayName string) (created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	if e, ok := r.sessions[id]; ok {
		e.DisplayName = displayName
		e.LastSeen = now
		return false
	}
	r.seq++
	r.sessions[id] = &entry{
		Session: Session{ID: id, DisplayName: displayName, LastSeen: now},
		seq:     r.seq,
	}
	return true
}

// Touch refreshes LastSeen of an existing session, and its display name when
// displayName is not empty. Unknown ids are ignored.
func (r *Registry) Touch(id, displayName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return false
	}
	if displayName != "" {
		e.DisplayName = displayName
	}
	e.LastSeen = r.clock.Now()
	return true
}

// Remove deletes id. Removing an unknown id is a no-op; the result reports
// whether anything was removed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Get returns a copy of the session for id.
func (r *Registry) Get(id string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	return e.Session, true
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// SweepExpired removes every session whose LastSeen is more than timeout ago
// and returns the removed ids in ascending order.
func (r *Registry) SweepExpired(timeout time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	var removed []string
	for id, e := range r.sessions {
		if now.Sub(e.LastSeen) > timeout {
			delete(r.sessions, id)
			removed = append(removed, id)
		}
	}
	slices.Sort(removed)
	return removed
}

// Snapshot returns all sessions in the order they were first registered.
func (r *Registry) Snapshot() []Session {
	r.mu.Lock()
	entries := make([]entry, 0, len(r.sessions))
	for _, e := range r.sessions {
		entries = append(entries, *e)
	}
	r.mu.Unlock()

	slices.SortFunc(entries, func(a, b entry) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
	out := make([]Session, len(entries))
	for i, e := range entries {
		out[i] = e.Session
	}
	return out
}

// RunSweeper calls SweepExpired every interval until ctx is done. onExpired,
// if set, receives each non-empty batch of removed ids.
func (r *Registry) RunSweeper(ctx context.Context, interval, timeout time.Duration, onExpired func([]string)) {
	if interval <= 0 {
		return
	}
	t := r.clock.Ticker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if removed := r.SweepExpired(timeout); len(removed) > 0 && onExpired != nil {
				onExpired(removed)
			}
		}
	}
}
