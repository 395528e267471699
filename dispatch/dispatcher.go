// Package dispatch applies decoded actions to the session registry and the
// shared virtual pad.
package dispatch

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/Alia5/PadBridge/command"
	"github.com/Alia5/PadBridge/gamepad"
	"github.com/Alia5/PadBridge/internal/log"
	"github.com/Alia5/PadBridge/keymap"
	"github.com/Alia5/PadBridge/session"
)

// DefaultTapDuration is how long a tap-style button stays pressed.
const DefaultTapDuration = 50 * time.Millisecond

// Result describes the session side effects of a dispatched action.
type Result struct {
	// Identified is set when an Identify action registered ControllerID.
	Identified   bool
	Created      bool
	ControllerID string
}

// Dispatcher maps actions onto Registry and Device operations.
type Dispatcher struct {
	registry    *session.Registry
	device      *gamepad.Device
	logger      *slog.Logger
	tapDuration time.Duration
}

// New returns a Dispatcher. A non-positive tapDuration selects DefaultTapDuration.
func New(registry *session.Registry, device *gamepad.Device, logger *slog.Logger, tapDuration time.Duration) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if tapDuration <= 0 {
		tapDuration = DefaultTapDuration
	}
	return &Dispatcher{
		registry:    registry,
		device:      device,
		logger:      logger,
		tapDuration: tapDuration,
	}
}

// Dispatch applies a. attributedID is the controller the action is credited
// to; when it names a known session its LastSeen is refreshed.
func (d *Dispatcher) Dispatch(a command.Action, attributedID string) Result {
	if a.Kind == command.KindIdentify {
		return d.identify(a)
	}
	if attributedID != "" {
		d.registry.Touch(attributedID, a.ControllerName)
	}
	d.logger.Log(context.Background(), log.LevelTrace, "command received", "action", a.String(), "controller", attributedID)

	switch a.Kind {
	case command.KindAxisMove:
		d.device.SetAxis(a.Stick, a.X, a.Y)
	case command.KindTrigger:
		d.device.SetTrigger(a.Side, a.Value)
	case command.KindButton:
		d.button(a, attributedID)
	default:
		d.unknown(a.Raw, attributedID)
	}
	return Result{}
}

func (d *Dispatcher) identify(a command.Action) Result {
	if a.ControllerID == "" {
		d.logger.Info("identify without controllerId ignored", "name", a.ControllerName)
		return Result{}
	}
	created := d.registry.Upsert(a.ControllerID, a.ControllerName)
	return Result{Identified: true, Created: created, ControllerID: a.ControllerID}
}

func (d *Dispatcher) button(a command.Action, attributedID string) {
	b, ok := keymap.Lookup(a.Control)
	if !ok {
		d.unknown(a.Raw, attributedID)
		return
	}
	switch {
	case a.Edge == command.EdgeTapped,
		b.Kind == keymap.TapOnPress && a.Edge == command.EdgePressed:
		for _, btn := range b.Buttons {
			d.device.Tap(btn, d.tapDuration)
		}
	case a.Edge == command.EdgePressed:
		d.device.PressHoldAll(b.Buttons...)
	case a.Edge == command.EdgeReleased:
		// release in reverse press order so modifiers are let go last
		rev := slices.Clone(b.Buttons)
		slices.Reverse(rev)
		d.device.ReleaseAll(rev...)
	}
}

func (d *Dispatcher) unknown(raw, attributedID string) {
	if raw == command.ActionConnect {
		return
	}
	d.logger.Info("unknown action", "raw", raw, "controller", attributedID)
}
