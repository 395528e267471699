package ws_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/PadBridge/dispatch"
	"github.com/Alia5/PadBridge/gamepad"
	padtest "github.com/Alia5/PadBridge/internal/testing"
	"github.com/Alia5/PadBridge/internal/server/link"
	"github.com/Alia5/PadBridge/internal/server/ws"
	"github.com/Alia5/PadBridge/session"
)

type env struct {
	srv      *ws.Server
	hub      *link.Hub
	registry *session.Registry
	driver   *padtest.RecordingDriver
	logs     *padtest.LogCapture
	url      string
}

func start(t *testing.T, cfg ws.ServerConfig) *env {
	t.Helper()
	logger, logs := padtest.NewLogCapture()
	drv := padtest.NewRecordingDriver()
	dev := gamepad.New(drv, logger)
	require.NoError(t, dev.Connect(context.Background()))
	reg := session.NewRegistry()
	hub := link.NewHub(reg, dispatch.New(reg, dev, logger, 0), logger)

	cfg.Addr = "127.0.0.1:0"
	srv := ws.New(cfg, hub, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("ws server failed to start: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("ws server did not become ready")
	}
	t.Cleanup(func() {
		_ = srv.Close()
		hub.CloseAll("test done")
		hub.Wait()
	})
	path := cfg.Path
	if path == "" {
		path = "/"
	}
	return &env{srv: srv, hub: hub, registry: reg, driver: drv, logs: logs, url: "ws://" + srv.Addr().String() + path}
}

func (e *env) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(e.url, nil)
	require.NoError(t, err)
	return c
}

func TestMessagesReachTheDevice(t *testing.T) {
	e := start(t, ws.ServerConfig{ReadLimit: 4096})
	c := e.dial(t)
	defer c.Close()

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{"action":"connect","controllerId":"p1","controllerName":"Alice"}`)))
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{"action":"finesse_shot_pressed"}`)))

	assert.Eventually(t, func() bool { return e.driver.Count("press B") == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, e.registry.Exists("p1"))
	owner, ok := e.hub.Lookup("p1")
	require.True(t, ok)
	assert.Equal(t, "ws", owner.Transport().Kind())
}

func TestClientCloseRemovesSession(t *testing.T) {
	e := start(t, ws.ServerConfig{})
	c := e.dial(t)
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{"action":"connect","controllerId":"p1"}`)))
	assert.Eventually(t, func() bool { return e.registry.Exists("p1") }, 2*time.Second, 5*time.Millisecond)

	_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	_ = c.Close()
	assert.Eventually(t, func() bool { return !e.registry.Exists("p1") }, 2*time.Second, 5*time.Millisecond)
	recs := e.logs.Find("controller disconnected")
	require.Len(t, recs, 1)
	assert.Equal(t, "closed by client: bye", recs[0].Attrs["reason"])
}

func TestMalformedMessageKeepsConnection(t *testing.T) {
	e := start(t, ws.ServerConfig{})
	c := e.dial(t)
	defer c.Close()

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{{not json`)))
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{"action":"short_pass_pressed"}`)))
	assert.Eventually(t, func() bool { return e.driver.Count("press A") == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, e.logs.Has("unknown action"))
}

func TestOversizedMessageClosesConnection(t *testing.T) {
	e := start(t, ws.ServerConfig{ReadLimit: 64})
	c := e.dial(t)
	defer c.Close()

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{"action":"connect","controllerId":"p1"}`)))
	assert.Eventually(t, func() bool { return e.registry.Exists("p1") }, 2*time.Second, 5*time.Millisecond)

	_ = c.WriteMessage(websocket.TextMessage, []byte(`{"action":"`+strings.Repeat("x", 128)+`"}`))
	assert.Eventually(t, func() bool { return !e.registry.Exists("p1") }, 2*time.Second, 5*time.Millisecond)
	recs := e.logs.Find("controller disconnected")
	require.Len(t, recs, 1)
	assert.Equal(t, "message too large", recs[0].Attrs["reason"])
}

func TestCustomPath(t *testing.T) {
	e := start(t, ws.ServerConfig{Path: "/pad"})
	c := e.dial(t)
	_ = c.Close()

	_, _, err := websocket.DefaultDialer.Dial(strings.TrimSuffix(e.url, "pad"), nil)
	assert.Error(t, err)
}

func TestShutdownClosesConnections(t *testing.T) {
	e := start(t, ws.ServerConfig{})
	c := e.dial(t)
	defer c.Close()
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{"action":"connect","controllerId":"p1"}`)))
	assert.Eventually(t, func() bool { return e.registry.Exists("p1") }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, e.srv.Close())
	e.hub.CloseAll("server shutting down")
	e.hub.Wait()
	assert.False(t, e.registry.Exists("p1"))

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := c.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
