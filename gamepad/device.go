// Package gamepad owns the canonical state of the single shared virtual pad.
//
// Every mutation of held buttons, stick axes and triggers goes through Device,
// which is also the only caller of the Driver binding. All public operations
// are serialized by one mutex; driver failures are logged and swallowed so a
// lost device never takes down connection handling.
package gamepad

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
)

const axisScale = 32767

// Device is the virtual pad state machine.
type Device struct {
	mu        sync.Mutex
	driver    Driver
	logger    *slog.Logger
	clock     clock.Clock
	connected bool
	closed    bool
	held      map[Button]struct{}
	stale     map[Button]struct{}
	taps      map[Button]*clock.Timer
	axes      [4]int16
	sliders   [2]uint8
}

// Option configures a Device.
type Option func(*Device)

// WithClock replaces the clock used for tap auto-release timers.
func WithClock(c clock.Clock) Option {
	return func(d *Device) { d.clock = c }
}

// New returns a Device bound to driver. The device is unavailable until Connect succeeds.
func New(driver Driver, logger *slog.Logger, opts ...Option) *Device {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Device{
		driver: driver,
		logger: logger,
		clock:  clock.New(),
		held:   make(map[Button]struct{}),
		stale:  make(map[Button]struct{}),
		taps:   make(map[Button]*clock.Timer),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Connect attaches the driver. It may be called again after the driver
// reported the device as unavailable.
func (d *Device) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("connect: %w", ErrDeviceUnavailable)
	}
	if d.connected {
		return nil
	}
	if err := d.driver.Connect(ctx); err != nil {
		d.logger.Warn("virtual device connect failed", "error", err)
		return fmt.Errorf("connect: %w", err)
	}
	if err := d.neutralize(); err != nil {
		d.logger.Warn("virtual device reset failed", "error", err)
		return fmt.Errorf("connect: %w", multierr.Append(err, d.driver.Disconnect()))
	}
	d.connected = true
	d.logger.Info("virtual device connected")
	return nil
}

// PressHold marks b as held and sets it on the driver. No-op if already held.
func (d *Device) PressHold(b Button) {
	d.PressHoldAll(b)
}

// PressHoldAll presses every button in order while holding the device lock,
// so concurrent compound presses never interleave. A button still down from
// a tap becomes held and loses its pending auto-release.
func (d *Device) PressHoldAll(buttons ...Button) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.usable("press") {
		return
	}
	for _, b := range buttons {
		d.cancelTap(b)
		d.press(b)
	}
}

// Release clears b and unsets it on the driver. No-op if not held.
// A pending tap auto-release for b is cancelled.
func (d *Device) Release(b Button) {
	d.ReleaseAll(b)
}

// ReleaseAll releases every button in order under a single lock acquisition.
func (d *Device) ReleaseAll(buttons ...Button) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.usable("release") {
		return
	}
	for _, b := range buttons {
		d.cancelTap(b)
		d.release(b)
	}
}

// ReleaseHeld releases every currently held button without disconnecting.
func (d *Device) ReleaseHeld() []Button {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.usable("release held") {
		return nil
	}
	held := d.heldSorted()
	for _, b := range held {
		d.cancelTap(b)
		d.release(b)
	}
	return held
}

// Tap presses b and schedules its release after hold without blocking the caller.
// Tapping a button whose tap is still pending extends the hold; tapping a
// button held by PressHold does nothing.
func (d *Device) Tap(b Button, hold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.usable("tap") {
		return
	}
	if t, ok := d.taps[b]; ok {
		t.Reset(hold)
		return
	}
	if _, ok := d.held[b]; ok {
		return
	}
	if !d.press(b) {
		return
	}
	var t *clock.Timer
	t = d.clock.AfterFunc(hold, func() { d.endTap(b, t) })
	d.taps[b] = t
}

func (d *Device) endTap(b Button, t *clock.Timer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.taps[b] != t {
		return
	}
	delete(d.taps, b)
	if !d.usable("tap release") {
		return
	}
	d.release(b)
}

// SetAxis moves a stick. x and y are clamped to [-1,1]; y is inverted
// because clients send positive-up while the device expects positive-down.
// Values are always sent, even when unchanged.
func (d *Device) SetAxis(s Stick, x, y float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.usable("set axis") {
		return
	}
	ax, ay := stickAxes(s)
	d.setAxis(ax, scaleAxis(x))
	d.setAxis(ay, scaleAxis(-y))
}

// SetTrigger sets an analog trigger. Values are always sent.
func (d *Device) SetTrigger(s Side, value uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.usable("set trigger") {
		return
	}
	sl := sideSlider(s)
	if err := d.driver.SetSlider(sl, value); err != nil {
		d.fail("set trigger", err, "slider", sl.String())
		return
	}
	d.sliders[sl] = value
}

// Shutdown releases every held button and disconnects the driver.
// Subsequent operations are silent no-ops. Calling Shutdown twice is safe.
func (d *Device) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	for b, t := range d.taps {
		t.Stop()
		delete(d.taps, b)
	}

	var err error
	held := d.heldSorted()
	clear(d.held)
	if !d.connected {
		return nil
	}
	for _, b := range held {
		if e := d.driver.SetButton(b, false); e != nil {
			err = multierr.Append(err, fmt.Errorf("release %s: %w", b, e))
		}
	}
	d.connected = false
	if e := d.driver.Disconnect(); e != nil {
		err = multierr.Append(err, fmt.Errorf("disconnect: %w", e))
	}
	if err != nil {
		d.logger.Warn("virtual device shutdown incomplete", "error", err)
	} else {
		d.logger.Info("virtual device disconnected", "released", len(held))
	}
	return err
}

// State is a point-in-time copy of the device state.
type State struct {
	Connected    bool
	Held         []Button
	LeftX        int16
	LeftY        int16
	RightX       int16
	RightY       int16
	LeftTrigger  uint8
	RightTrigger uint8
}

// State returns a snapshot of the logical device state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{
		Connected:    d.connected && !d.closed,
		Held:         d.heldSorted(),
		LeftX:        d.axes[AxisLeftX],
		LeftY:        d.axes[AxisLeftY],
		RightX:       d.axes[AxisRightX],
		RightY:       d.axes[AxisRightY],
		LeftTrigger:  d.sliders[SliderLeftTrigger],
		RightTrigger: d.sliders[SliderRightTrigger],
	}
}

// IsHeld reports whether b is logically held.
func (d *Device) IsHeld(b Button) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.held[b]
	return ok
}

// usable must be called with mu held.
func (d *Device) usable(op string) bool {
	if d.closed {
		return false
	}
	if !d.connected {
		d.logger.Warn("virtual device unavailable", "op", op)
		return false
	}
	return true
}

// neutralize brings a freshly attached driver to the neutral state after a
// loss: inputs that were active when the device went away are cleared so
// nothing comes back stuck. Must be called with mu held.
func (d *Device) neutralize() error {
	stale := make([]Button, 0, len(d.stale))
	for b := range d.stale {
		stale = append(stale, b)
	}
	slices.Sort(stale)
	for _, b := range stale {
		if err := d.driver.SetButton(b, false); err != nil {
			return fmt.Errorf("release %s: %w", b, err)
		}
		delete(d.stale, b)
	}
	for a, v := range d.axes {
		if v == 0 {
			continue
		}
		if err := d.driver.SetAxis(Axis(a), 0); err != nil {
			return fmt.Errorf("center %s: %w", Axis(a), err)
		}
		d.axes[a] = 0
	}
	for s, v := range d.sliders {
		if v == 0 {
			continue
		}
		if err := d.driver.SetSlider(Slider(s), 0); err != nil {
			return fmt.Errorf("zero %s: %w", Slider(s), err)
		}
		d.sliders[s] = 0
	}
	if len(stale) > 0 {
		d.logger.Info("virtual device reset after reconnect", "released", len(stale))
	}
	return nil
}

// lost forgets every hold and pending tap. The buttons are remembered as
// stale until the next Connect releases them on the driver.
func (d *Device) lost() {
	d.connected = false
	for b := range d.held {
		d.stale[b] = struct{}{}
	}
	clear(d.held)
	for b, t := range d.taps {
		t.Stop()
		delete(d.taps, b)
	}
}

func (d *Device) press(b Button) bool {
	if !d.connected {
		return false
	}
	if _, ok := d.held[b]; ok {
		return false
	}
	if err := d.driver.SetButton(b, true); err != nil {
		d.fail("press", err, "button", b.String())
		return false
	}
	d.held[b] = struct{}{}
	return true
}

func (d *Device) release(b Button) {
	if _, ok := d.held[b]; !ok || !d.connected {
		return
	}
	if err := d.driver.SetButton(b, false); err != nil {
		d.fail("release", err, "button", b.String())
		return
	}
	delete(d.held, b)
}

func (d *Device) cancelTap(b Button) {
	if t, ok := d.taps[b]; ok {
		t.Stop()
		delete(d.taps, b)
	}
}

func (d *Device) setAxis(a Axis, v int16) {
	if !d.connected {
		return
	}
	if err := d.driver.SetAxis(a, v); err != nil {
		d.fail("set axis", err, "axis", a.String())
		return
	}
	d.axes[a] = v
}

func (d *Device) fail(op string, err error, args ...any) {
	if errors.Is(err, ErrDeviceUnavailable) && d.connected {
		d.lost()
	}
	d.logger.Warn("virtual device operation failed", append([]any{"op", op, "error", err}, args...)...)
}

func (d *Device) heldSorted() []Button {
	out := make([]Button, 0, len(d.held))
	for b := range d.held {
		out = append(out, b)
	}
	slices.Sort(out)
	return out
}

func scaleAxis(v float64) int16 {
	if math.IsNaN(v) {
		return 0
	}
	v = max(-1, min(1, v))
	return int16(math.Round(v * axisScale))
}
