package link_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/PadBridge/dispatch"
	"github.com/Alia5/PadBridge/gamepad"
	padtest "github.com/Alia5/PadBridge/internal/testing"
	"github.com/Alia5/PadBridge/internal/server/link"
	"github.com/Alia5/PadBridge/session"
)

type fakeTransport struct {
	closes atomic.Int32
}

func (t *fakeTransport) Kind() string       { return "fake" }
func (t *fakeTransport) RemoteAddr() string { return "test" }
func (t *fakeTransport) Close() error {
	t.closes.Add(1)
	return nil
}

type fixture struct {
	hub      *link.Hub
	registry *session.Registry
	device   *gamepad.Device
	driver   *padtest.RecordingDriver
	logs     *padtest.LogCapture
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, logs := padtest.NewLogCapture()
	drv := padtest.NewRecordingDriver()
	dev := gamepad.New(drv, logger)
	require.NoError(t, dev.Connect(context.Background()))
	drv.Reset()
	reg := session.NewRegistry()
	return &fixture{
		hub:      link.NewHub(reg, dispatch.New(reg, dev, logger, 0), logger),
		registry: reg,
		device:   dev,
		driver:   drv,
		logs:     logs,
	}
}

func identify(id, name string) []byte {
	return []byte(`{"action":"connect","controllerId":"` + id + `","controllerName":"` + name + `"}`)
}

func TestLifecycle(t *testing.T) {
	f := newFixture(t)
	tr := &fakeTransport{}
	c := f.hub.Open(tr)
	assert.Equal(t, link.StateOpened, c.State())
	assert.True(t, f.logs.Has("client connected, waiting for identification"))

	// actions before identification are dispatched but attributed to nobody
	c.Handle([]byte(`{"action":"short_pass_pressed","controllerId":"p1"}`))
	assert.Equal(t, 1, f.driver.Count("press A"))
	assert.Equal(t, link.StateOpened, c.State())
	assert.False(t, f.registry.Exists("p1"))

	c.Handle(identify("p1", "Alice"))
	assert.Equal(t, link.StateIdentified, c.State())
	assert.Equal(t, "p1", c.ControllerID())
	assert.True(t, f.registry.Exists("p1"))
	assert.True(t, f.logs.Has("controller identified"))

	c.Handle([]byte(`{"action":"short_pass_released"}`))
	assert.Equal(t, link.StateActive, c.State())

	c.Handle(identify("p1", "Alicia"))
	assert.True(t, f.logs.Has("controller re-identified"))
	assert.Equal(t, "Alicia", c.Name())

	c.Close("closed by client")
	assert.Equal(t, link.StateClosed, c.State())
	assert.False(t, f.registry.Exists("p1"))
	assert.Equal(t, int32(1), tr.closes.Load())
	recs := f.logs.Find("controller disconnected")
	require.Len(t, recs, 1)
	assert.Equal(t, "closed by client", recs[0].Attrs["reason"])
	assert.Equal(t, "p1", recs[0].Attrs["controller"])

	// closed connections ignore further payloads
	c.Handle([]byte(`{"action":"short_pass_pressed"}`))
	assert.Equal(t, 1, f.driver.Count("press A"))
}

func TestAnonymousDisconnect(t *testing.T) {
	f := newFixture(t)
	c := f.hub.Open(&fakeTransport{})
	c.Close("closed by client")
	assert.True(t, f.logs.Has("client disconnected"))
	assert.False(t, f.logs.Has("controller disconnected"))
	assert.Equal(t, 0, f.hub.Len())
}

func TestReidentifyWithNewIDDropsOldSession(t *testing.T) {
	f := newFixture(t)
	c := f.hub.Open(&fakeTransport{})
	c.Handle(identify("p1", "Alice"))
	c.Handle(identify("p2", "Alice"))
	assert.False(t, f.registry.Exists("p1"))
	assert.True(t, f.registry.Exists("p2"))
	_, ok := f.hub.Lookup("p1")
	assert.False(t, ok)
}

func TestDuplicateIdentityNewestWins(t *testing.T) {
	f := newFixture(t)
	older := f.hub.Open(&fakeTransport{})
	newer := f.hub.Open(&fakeTransport{})
	older.Handle(identify("p1", "phone"))
	newer.Handle(identify("p1", "tablet"))

	owner, ok := f.hub.Lookup("p1")
	require.True(t, ok)
	assert.Same(t, newer, owner)
	assert.True(t, f.logs.Has("controller id taken over from another connection"))

	// the stale connection closing leaves the live session alone
	older.Close("closed by client")
	assert.True(t, f.registry.Exists("p1"))
	newer.Close("closed by client")
	assert.False(t, f.registry.Exists("p1"))
}

func TestPreviousOwnerClosingDuringTakeoverKeepsSession(t *testing.T) {
	f := newFixture(t)
	older := f.hub.Open(&fakeTransport{})
	older.Handle(identify("p1", "phone"))
	newer := f.hub.Open(&fakeTransport{})

	// identify on newer has upserted p1 but not bound it yet when older goes away
	f.registry.Upsert("p1", "tablet")
	older.Close("closed by client")
	require.False(t, f.registry.Exists("p1"))
	f.hub.Bind(newer, "p1", "tablet", false)

	owner, ok := f.hub.Lookup("p1")
	require.True(t, ok)
	assert.Same(t, newer, owner)
	s, ok := f.registry.Get("p1")
	require.True(t, ok)
	assert.Equal(t, "tablet", s.DisplayName)

	newer.Close("closed by client")
	assert.False(t, f.registry.Exists("p1"))
}

func TestReplacedConnectionDoesNotTouchNewOwner(t *testing.T) {
	logger, _ := padtest.NewLogCapture()
	mock := clock.NewMock()
	f := newFixture(t)
	reg := session.NewRegistry(session.WithClock(mock))
	hub := link.NewHub(reg, dispatch.New(reg, f.device, logger, 0), logger)

	older := hub.Open(&fakeTransport{})
	newer := hub.Open(&fakeTransport{})
	older.Handle(identify("p1", "phone"))
	newer.Handle(identify("p1", "tablet"))
	before, _ := reg.Get("p1")

	mock.Add(time.Minute)
	older.Handle([]byte(`{"action":"short_pass_pressed","controllerName":"phone"}`))
	assert.Equal(t, 1, f.driver.Count("press A"), "input from the replaced connection still drives the pad")

	after, ok := reg.Get("p1")
	require.True(t, ok)
	assert.Equal(t, "tablet", after.DisplayName)
	assert.Equal(t, before.LastSeen, after.LastSeen)

	newer.Handle([]byte(`{"action":"short_pass_released"}`))
	after, _ = reg.Get("p1")
	assert.True(t, after.LastSeen.After(before.LastSeen))
}

func TestKickRacingCloseUnbindsOnce(t *testing.T) {
	for range 50 {
		f := newFixture(t)
		tr := &fakeTransport{}
		c := f.hub.Open(tr)
		c.Handle(identify("p1", ""))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = f.hub.Kick("p1")
		}()
		go func() {
			defer wg.Done()
			c.Close("closed by client")
		}()
		wg.Wait()

		assert.Equal(t, int32(1), tr.closes.Load())
		assert.Len(t, f.logs.Find("controller disconnected"), 1)
		assert.False(t, f.registry.Exists("p1"))
		assert.Empty(t, f.hub.Active())
	}
}

func TestKickUnknown(t *testing.T) {
	f := newFixture(t)
	assert.Error(t, f.hub.Kick("nobody"))
}

func TestKickReason(t *testing.T) {
	f := newFixture(t)
	c := f.hub.Open(&fakeTransport{})
	c.Handle(identify("p1", ""))
	require.NoError(t, f.hub.Kick("p1"))
	recs := f.logs.Find("controller disconnected")
	require.Len(t, recs, 1)
	assert.Equal(t, "kicked", recs[0].Attrs["reason"])
}

func TestActiveSortedByID(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"c", "a", "b"} {
		f.hub.Open(&fakeTransport{}).Handle(identify(id, ""))
	}
	f.hub.Open(&fakeTransport{})

	var ids []string
	for _, c := range f.hub.Active() {
		ids = append(ids, c.ControllerID())
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, 4, f.hub.Len())
}

func TestCloseAllAndWait(t *testing.T) {
	f := newFixture(t)
	var conns []*link.Conn
	for _, id := range []string{"p1", "p2", "p3"} {
		c := f.hub.Open(&fakeTransport{})
		c.Handle(identify(id, ""))
		conns = append(conns, c)
	}

	done := make(chan struct{})
	go func() {
		f.hub.Wait()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("Wait returned with open connections")
	case <-time.After(20 * time.Millisecond):
	}

	f.hub.CloseAll("server shutting down")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after CloseAll")
	}
	for _, c := range conns {
		assert.Equal(t, link.StateClosed, c.State())
	}
	assert.Equal(t, 0, f.registry.Len())

	// connections accepted after CloseAll are closed right away
	late := f.hub.Open(&fakeTransport{})
	assert.Equal(t, link.StateClosed, late.State())
}

func TestConcurrentConnectionsShareOneDevice(t *testing.T) {
	f := newFixture(t)
	var wg sync.WaitGroup
	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := f.hub.Open(&fakeTransport{})
			c.Handle(identify(id, id))
			for range 20 {
				c.Handle([]byte(`{"action":"chip_shot_pressed"}`))
				c.Handle([]byte(`{"action":"chip_shot_released"}`))
			}
			c.Close("closed by client")
		}()
	}
	wg.Wait()
	assert.Empty(t, f.device.State().Held)
	assert.Equal(t, 0, f.registry.Len())
	assert.Equal(t, f.driver.Count("press B"), f.driver.Count("release B"))
}
