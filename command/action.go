package command

import (
	"fmt"

	"github.com/Alia5/PadBridge/gamepad"
)

// Kind is the decoded action type.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindIdentify
	KindAxisMove
	KindButton
	KindTrigger
)

func (k Kind) String() string {
	switch k {
	case KindIdentify:
		return "Identify"
	case KindAxisMove:
		return "AxisMove"
	case KindButton:
		return "ButtonEvent"
	case KindTrigger:
		return "TriggerSet"
	}
	return "Unknown"
}

// Edge is the transition a button event requests.
type Edge uint8

const (
	EdgePressed Edge = iota
	EdgeReleased
	// EdgeTapped is a single-shot press that releases on its own.
	EdgeTapped
)

func (e Edge) String() string {
	switch e {
	case EdgeReleased:
		return "Released"
	case EdgeTapped:
		return "Tapped"
	}
	return "Pressed"
}

// Action is one decoded inbound message. Only the fields relevant to Kind are set.
type Action struct {
	Kind Kind

	// Control is the control name of a button or trigger event, e.g. "chip_shot".
	Control string
	Edge    Edge

	Stick gamepad.Stick
	X, Y  float64

	Side  gamepad.Side
	Value uint8

	// Raw is the action keyword, or the (possibly truncated) payload when
	// the message itself could not be parsed.
	Raw string

	ControllerID   string
	ControllerName string
	Timestamp      int64
}

func (a Action) String() string {
	switch a.Kind {
	case KindIdentify:
		return fmt.Sprintf("Identify{%s %q}", a.ControllerID, a.ControllerName)
	case KindAxisMove:
		return fmt.Sprintf("AxisMove{%s %.3f %.3f}", a.Stick, a.X, a.Y)
	case KindButton:
		return fmt.Sprintf("ButtonEvent{%s %s}", a.Control, a.Edge)
	case KindTrigger:
		return fmt.Sprintf("TriggerSet{%s %d}", a.Side, a.Value)
	}
	return fmt.Sprintf("Unknown{%q}", a.Raw)
}
