package log

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLevelFilterSplitsStreams(t *testing.T) {
	var low, high bytes.Buffer
	logger := slog.New(MultiHandler{
		LevelFilter{Pass: func(l slog.Level) bool { return l < slog.LevelError }, H: NewHandler(&low, "text", slog.LevelDebug)},
		LevelFilter{Pass: func(l slog.Level) bool { return l >= slog.LevelError }, H: NewHandler(&high, "text", slog.LevelError)},
	}).With("conn", "c1")

	logger.Debug("dbg")
	logger.Info("hello")
	logger.Error("bad")

	assert.Contains(t, low.String(), "msg=dbg")
	assert.Contains(t, low.String(), "msg=hello conn=c1")
	assert.NotContains(t, low.String(), "bad")
	assert.Contains(t, high.String(), "msg=bad conn=c1")
	assert.NotContains(t, high.String(), "hello")
}

func TestTraceLevelName(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "json", LevelTrace))
	logger.Log(context.Background(), LevelTrace, "payload")
	assert.Contains(t, buf.String(), `"level":"TRACE"`)

	buf.Reset()
	slog.New(NewHandler(&buf, "text", slog.LevelDebug)).Log(context.Background(), LevelTrace, "hidden")
	assert.Empty(t, buf.String())
}

func TestSetupLoggerWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "padbridge.log")
	logger, closers, err := SetupLogger(Config{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)
	logger.Debug("to file", "k", "v")
	for _, c := range closers {
		require.NoError(t, c.Close())
	}

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"to file"`)
	assert.Contains(t, string(b), `"k":"v"`)
}

func TestRawLogger(t *testing.T) {
	var buf bytes.Buffer
	r := NewRaw(&buf)
	r.Log("ws 1", []byte(`{"action":"x"}`))
	r.Log("bt 2", []byte{0xff, 0x00})
	r.Log("ws 1", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `C->S [ws 1] 14 bytes, text: "{\"action\":\"x\"}"`)
	assert.Contains(t, lines[1], "C->S [bt 2] 2 bytes, hex: ff 00")

	// a nil writer discards
	NewRaw(nil).Log("ws", []byte("x"))
}
