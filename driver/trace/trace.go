// Package trace is a gamepad.Driver that only logs. It backs dry runs on
// machines without a VIIPER server.
package trace

import (
	"context"
	"log/slog"

	"github.com/Alia5/PadBridge/gamepad"
)

type Driver struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{logger: logger.With("driver", "trace")}
}

func (d *Driver) Connect(ctx context.Context) error {
	d.logger.Info("trace device connected")
	return nil
}

func (d *Driver) Disconnect() error {
	d.logger.Info("trace device disconnected")
	return nil
}

func (d *Driver) SetButton(b gamepad.Button, pressed bool) error {
	d.logger.Info("button", "button", b.String(), "pressed", pressed)
	return nil
}

func (d *Driver) SetAxis(a gamepad.Axis, value int16) error {
	d.logger.Info("axis", "axis", a.String(), "value", value)
	return nil
}

func (d *Driver) SetSlider(s gamepad.Slider, value uint8) error {
	d.logger.Info("slider", "slider", s.String(), "value", value)
	return nil
}
