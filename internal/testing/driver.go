package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/Alia5/PadBridge/gamepad"
)

// Call is one recorded driver invocation, e.g. "press A", "axis LX 32767".
type Call string

// RecordingDriver is a gamepad.Driver that records every call. Setting Err
// makes every subsequent call fail with it.
type RecordingDriver struct {
	mu        sync.Mutex
	calls     []Call
	err       error
	connected bool
}

func NewRecordingDriver() *RecordingDriver { return &RecordingDriver{} }

// Fail makes every later call return err; nil restores normal operation.
func (d *RecordingDriver) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *RecordingDriver) Connect(ctx context.Context) error {
	return d.record("connect", func() { d.connected = true })
}

func (d *RecordingDriver) Disconnect() error {
	return d.record("disconnect", func() { d.connected = false })
}

func (d *RecordingDriver) SetButton(b gamepad.Button, pressed bool) error {
	verb := "release"
	if pressed {
		verb = "press"
	}
	return d.record(Call(verb+" "+b.String()), nil)
}

func (d *RecordingDriver) SetAxis(a gamepad.Axis, v int16) error {
	return d.record(Call(fmt.Sprintf("axis %s %d", a, v)), nil)
}

func (d *RecordingDriver) SetSlider(s gamepad.Slider, v uint8) error {
	return d.record(Call(fmt.Sprintf("slider %s %d", s, v)), nil)
}

func (d *RecordingDriver) record(c Call, apply func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.calls = append(d.calls, c)
	if apply != nil {
		apply()
	}
	return nil
}

// Calls returns a copy of the recorded calls.
func (d *RecordingDriver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Count returns how many times c was recorded.
func (d *RecordingDriver) Count(c Call) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, x := range d.calls {
		if x == c {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls.
func (d *RecordingDriver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}

func (d *RecordingDriver) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}
