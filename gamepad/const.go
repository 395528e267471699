package gamepad

import "fmt"

// Button identifies a digital button on the virtual pad.
// Values are the XInput button bitmasks so bindings can OR them into a report directly.
type Button uint16

const (
	ButtonDPadUp    Button = 0x0001
	ButtonDPadDown  Button = 0x0002
	ButtonDPadLeft  Button = 0x0004
	ButtonDPadRight Button = 0x0008
	ButtonStart     Button = 0x0010
	ButtonBack      Button = 0x0020
	ButtonLThumb    Button = 0x0040 // Left stick button
	ButtonRThumb    Button = 0x0080 // Right stick button
	ButtonLShoulder Button = 0x0100 // Left bumper (LB)
	ButtonRShoulder Button = 0x0200 // Right bumper (RB)
	ButtonGuide     Button = 0x0400
	ButtonA         Button = 0x1000
	ButtonB         Button = 0x2000
	ButtonX         Button = 0x4000
	ButtonY         Button = 0x8000
)

var buttonNames = map[Button]string{
	ButtonDPadUp:    "DPadUp",
	ButtonDPadDown:  "DPadDown",
	ButtonDPadLeft:  "DPadLeft",
	ButtonDPadRight: "DPadRight",
	ButtonStart:     "Start",
	ButtonBack:      "Back",
	ButtonLThumb:    "LeftThumb",
	ButtonRThumb:    "RightThumb",
	ButtonLShoulder: "LeftShoulder",
	ButtonRShoulder: "RightShoulder",
	ButtonGuide:     "Guide",
	ButtonA:         "A",
	ButtonB:         "B",
	ButtonX:         "X",
	ButtonY:         "Y",
}

func (b Button) String() string {
	if n, ok := buttonNames[b]; ok {
		return n
	}
	return fmt.Sprintf("Button(0x%04x)", uint16(b))
}

// Stick selects one of the two thumb sticks.
type Stick uint8

const (
	StickLeft Stick = iota
	StickRight
)

func (s Stick) String() string {
	if s == StickRight {
		return "Right"
	}
	return "Left"
}

// Side selects the left or right trigger.
type Side uint8

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideRight {
		return "Right"
	}
	return "Left"
}

// Axis identifies a single stick axis on the driver.
type Axis uint8

const (
	AxisLeftX Axis = iota
	AxisLeftY
	AxisRightX
	AxisRightY
)

func (a Axis) String() string {
	switch a {
	case AxisLeftX:
		return "LeftThumbX"
	case AxisLeftY:
		return "LeftThumbY"
	case AxisRightX:
		return "RightThumbX"
	case AxisRightY:
		return "RightThumbY"
	}
	return fmt.Sprintf("Axis(%d)", uint8(a))
}

// Slider identifies an analog trigger on the driver.
type Slider uint8

const (
	SliderLeftTrigger Slider = iota
	SliderRightTrigger
)

func (s Slider) String() string {
	if s == SliderRightTrigger {
		return "RightTrigger"
	}
	return "LeftTrigger"
}

func stickAxes(s Stick) (x, y Axis) {
	if s == StickRight {
		return AxisRightX, AxisRightY
	}
	return AxisLeftX, AxisLeftY
}

func sideSlider(s Side) Slider {
	if s == SideRight {
		return SliderRightTrigger
	}
	return SliderLeftTrigger
}
