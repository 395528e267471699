package gamepad

import (
	"context"
	"errors"
)

// ErrDeviceUnavailable is returned (wrapped) by drivers when the underlying
// virtual device was never connected or went away.
var ErrDeviceUnavailable = errors.New("device unavailable")

// Driver is the binding to the OS- or network-level virtual pad.
// Implementations do not need to be safe for concurrent use; Device
// serializes every call.
type Driver interface {
	Connect(ctx context.Context) error
	Disconnect() error
	SetButton(b Button, pressed bool) error
	SetAxis(a Axis, value int16) error
	SetSlider(s Slider, value uint8) error
}
