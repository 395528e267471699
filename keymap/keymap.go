// Package keymap is the static table from protocol control names to pad inputs.
//
// A control name is the action keyword without its edge suffix, e.g. the
// actions "chip_shot_pressed" and "chip_shot_released" both use "chip_shot".
// Adding a control is a one-line table entry.
package keymap

import "github.com/Alia5/PadBridge/gamepad"

// Kind tells how a control drives the pad.
type Kind uint8

const (
	// Hold presses on "_pressed" and releases on "_released".
	Hold Kind = iota
	// Tap is a single event with no suffix; the buttons auto-release.
	Tap
	// TapOnPress taps on "_pressed"; "_released" releases any remaining hold.
	TapOnPress
	// Trigger sets an analog trigger to full on "_pressed" and zero on "_released".
	Trigger
)

// Binding is what one control maps to.
type Binding struct {
	Kind    Kind
	Buttons []gamepad.Button
	Side    gamepad.Side
}

const (
	TriggerFull uint8 = 255
	TriggerOff  uint8 = 0
)

var (
	lb = gamepad.ButtonLShoulder
	rb = gamepad.ButtonRShoulder
)

func hold(b ...gamepad.Button) Binding { return Binding{Kind: Hold, Buttons: b} }
func tap(b ...gamepad.Button) Binding { return Binding{Kind: Tap, Buttons: b} }
func trigger(s gamepad.Side) Binding { return Binding{Kind: Trigger, Side: s} }

var bindings = map[string]Binding{
	"short_pass":            hold(gamepad.ButtonA),
	"standard_shot":         hold(gamepad.ButtonB),
	"power_shot":            hold(gamepad.ButtonB),
	"chip_shot":             hold(lb, gamepad.ButtonB),
	"finesse_shot":          hold(rb, gamepad.ButtonB),
	"stunning_shot":         hold(lb, rb, gamepad.ButtonB),
	"standard_through_ball": hold(gamepad.ButtonY),
	"goalkeeper_rush":       hold(gamepad.ButtonY),
	"hard_slide_tackle":     hold(rb, gamepad.ButtonX),
	"lobbed_through_ball":   hold(gamepad.ButtonX),
	"start_sprint":          trigger(gamepad.SideRight),
	"right_trigger":         trigger(gamepad.SideRight),
	"left_trigger":          trigger(gamepad.SideLeft),
	"left_bumper":           hold(lb),
	"right_bumper":          hold(rb),
	"start":                 hold(gamepad.ButtonStart),
	"select":                hold(gamepad.ButtonBack),
	"dpad_up":               tap(gamepad.ButtonDPadUp),
	"dpad_down":             tap(gamepad.ButtonDPadDown),
	"dpad_left":             tap(gamepad.ButtonDPadLeft),
	"dpad_right":            tap(gamepad.ButtonDPadRight),
	"Switch_player":         {Kind: TapOnPress, Buttons: []gamepad.Button{lb}},
}

// Lookup returns the binding for a control name. Names are case-sensitive.
func Lookup(control string) (Binding, bool) {
	b, ok := bindings[control]
	return b, ok
}

// Controls lists every known control name.
func Controls() []string {
	out := make([]string, 0, len(bindings))
	for k := range bindings {
		out = append(out, k)
	}
	return out
}
