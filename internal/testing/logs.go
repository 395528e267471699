package testing

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Record is a captured log record with its attributes flattened.
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogCapture is a slog.Handler that keeps every record it sees.
type LogCapture struct {
	mu      *sync.Mutex
	records *[]Record
	attrs   []slog.Attr
}

// NewLogCapture returns a logger enabled at every level and its capture.
func NewLogCapture() (*slog.Logger, *LogCapture) {
	c := &LogCapture{mu: &sync.Mutex{}, records: &[]Record{}}
	return slog.New(c), c
}

func (c *LogCapture) Enabled(context.Context, slog.Level) bool { return true }

func (c *LogCapture) Handle(_ context.Context, r slog.Record) error {
	rec := Record{Level: r.Level, Message: r.Message, Attrs: map[string]any{}}
	for _, a := range c.attrs {
		rec.Attrs[a.Key] = a.Value.Resolve().Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs[a.Key] = a.Value.Resolve().Any()
		return true
	})
	c.mu.Lock()
	*c.records = append(*c.records, rec)
	c.mu.Unlock()
	return nil
}

func (c *LogCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogCapture{mu: c.mu, records: c.records, attrs: append(slices.Clone(c.attrs), attrs...)}
}

// WithGroup is flattened; groups are not used by the code under test.
func (c *LogCapture) WithGroup(string) slog.Handler { return c }

// Records returns a copy of everything captured so far.
func (c *LogCapture) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(*c.records)
}

// Find returns captured records with the given message.
func (c *LogCapture) Find(msg string) []Record {
	var out []Record
	for _, r := range c.Records() {
		if r.Message == msg {
			out = append(out, r)
		}
	}
	return out
}

// Has reports whether a record with msg was captured.
func (c *LogCapture) Has(msg string) bool { return len(c.Find(msg)) > 0 }

// Reset drops captured records.
func (c *LogCapture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.records = nil
}
