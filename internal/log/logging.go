// Package log builds the process slog.Logger.
//
// Without a log file, records below error go to stdout and errors go to
// stderr, so stderr can be redirected on its own. With a log file, everything
// goes to stderr and to the file.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LevelTrace is below Debug and is used for per-message output.
const LevelTrace slog.Level = -8

// Config is the logging section of the CLI.
type Config struct {
	Level   string `help:"Log level" enum:"trace,debug,info,warn,error" default:"info" env:"PADBRIDGE_LOG_LEVEL"`
	Format  string `help:"Log format" enum:"text,json" default:"text" env:"PADBRIDGE_LOG_FORMAT"`
	File    string `help:"Also write logs to this file" env:"PADBRIDGE_LOG_FILE"`
	RawFile string `help:"Write every inbound payload to this file" env:"PADBRIDGE_LOG_RAW_FILE"`
}

func ParseLevel(s string) slog.Level {
	switch s {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MultiHandler fans out records to multiple handlers.
type MultiHandler []slog.Handler

func (m MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (m MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(MultiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (m MultiHandler) WithGroup(name string) slog.Handler {
	out := make(MultiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithGroup(name)
	}
	return out
}

// LevelFilter passes only records whose level satisfies Pass to H.
type LevelFilter struct {
	Pass func(slog.Level) bool
	H    slog.Handler
}

func (f LevelFilter) Enabled(ctx context.Context, level slog.Level) bool {
	return f.Pass(level) && f.H.Enabled(ctx, level)
}

func (f LevelFilter) Handle(ctx context.Context, r slog.Record) error {
	if !f.Pass(r.Level) {
		return nil
	}
	return f.H.Handle(ctx, r)
}

func (f LevelFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return LevelFilter{Pass: f.Pass, H: f.H.WithAttrs(attrs)}
}

func (f LevelFilter) WithGroup(name string) slog.Handler {
	return LevelFilter{Pass: f.Pass, H: f.H.WithGroup(name)}
}

// NewHandler returns a text or json handler writing to w.
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: renameTrace}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func renameTrace(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if l, ok := a.Value.Any().(slog.Level); ok && l <= LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

// SetupLogger builds the logger described by cfg. The returned closers must
// be closed on exit.
func SetupLogger(cfg Config) (*slog.Logger, []io.Closer, error) {
	level := ParseLevel(cfg.Level)
	var hs MultiHandler
	var closers []io.Closer

	if cfg.File == "" {
		hs = append(hs,
			LevelFilter{Pass: func(l slog.Level) bool { return l < slog.LevelError }, H: NewHandler(os.Stdout, cfg.Format, level)},
			LevelFilter{Pass: func(l slog.Level) bool { return l >= slog.LevelError }, H: NewHandler(os.Stderr, cfg.Format, slog.LevelError)},
		)
	} else {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, f)
		hs = append(hs, NewHandler(os.Stderr, cfg.Format, level), NewHandler(f, cfg.Format, level))
	}
	return slog.New(hs), closers, nil
}
