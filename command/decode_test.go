package command_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alia5/PadBridge/command"
	"github.com/Alia5/PadBridge/gamepad"
	"github.com/Alia5/PadBridge/keymap"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected command.Action
	}{
		{
			name:    "identify",
			payload: `{"action":"connect","controllerId":"p1","controllerName":"Alice","timestamp":1700000000}`,
			expected: command.Action{
				Kind: command.KindIdentify, Raw: "connect",
				ControllerID: "p1", ControllerName: "Alice", Timestamp: 1700000000,
			},
		},
		{
			name:     "left stick",
			payload:  `{"action":"move_0.5_-1"}`,
			expected: command.Action{Kind: command.KindAxisMove, Stick: gamepad.StickLeft, X: 0.5, Y: -1, Raw: "move_0.5_-1"},
		},
		{
			name:     "right stick",
			payload:  `{"action":"camera_-0.25_0.75","controllerId":"p2"}`,
			expected: command.Action{Kind: command.KindAxisMove, Stick: gamepad.StickRight, X: -0.25, Y: 0.75, Raw: "camera_-0.25_0.75", ControllerID: "p2"},
		},
		{
			name:     "stick values are clamped",
			payload:  `{"action":"move_2_-7.5"}`,
			expected: command.Action{Kind: command.KindAxisMove, Stick: gamepad.StickLeft, X: 1, Y: -1, Raw: "move_2_-7.5"},
		},
		{
			name:     "stick with unparsable y",
			payload:  `{"action":"move_0.5_up"}`,
			expected: command.Action{Kind: command.KindUnknown, Raw: "move_0.5_up"},
		},
		{
			name:     "stick with NaN",
			payload:  `{"action":"camera_NaN_0"}`,
			expected: command.Action{Kind: command.KindUnknown, Raw: "camera_NaN_0"},
		},
		{
			name:     "stick with extra component",
			payload:  `{"action":"move_0_0_0"}`,
			expected: command.Action{Kind: command.KindUnknown, Raw: "move_0_0_0"},
		},
		{
			name:     "button pressed",
			payload:  `{"action":"chip_shot_pressed"}`,
			expected: command.Action{Kind: command.KindButton, Control: "chip_shot", Edge: command.EdgePressed, Raw: "chip_shot_pressed"},
		},
		{
			name:     "button released",
			payload:  `{"action":"short_pass_released"}`,
			expected: command.Action{Kind: command.KindButton, Control: "short_pass", Edge: command.EdgeReleased, Raw: "short_pass_released"},
		},
		{
			name:     "hold control without edge",
			payload:  `{"action":"short_pass"}`,
			expected: command.Action{Kind: command.KindUnknown, Raw: "short_pass"},
		},
		{
			name:     "dpad tap",
			payload:  `{"action":"dpad_up"}`,
			expected: command.Action{Kind: command.KindButton, Control: "dpad_up", Edge: command.EdgeTapped, Raw: "dpad_up"},
		},
		{
			name:     "dpad with edge",
			payload:  `{"action":"dpad_up_pressed"}`,
			expected: command.Action{Kind: command.KindUnknown, Raw: "dpad_up_pressed"},
		},
		{
			name:     "switch player",
			payload:  `{"action":"Switch_player_pressed"}`,
			expected: command.Action{Kind: command.KindButton, Control: "Switch_player", Edge: command.EdgePressed, Raw: "Switch_player_pressed"},
		},
		{
			name:     "sprint trigger",
			payload:  `{"action":"start_sprint_pressed"}`,
			expected: command.Action{Kind: command.KindTrigger, Control: "start_sprint", Side: gamepad.SideRight, Value: keymap.TriggerFull, Raw: "start_sprint_pressed"},
		},
		{
			name:     "left trigger released",
			payload:  `{"action":"left_trigger_released"}`,
			expected: command.Action{Kind: command.KindTrigger, Control: "left_trigger", Side: gamepad.SideLeft, Value: keymap.TriggerOff, Raw: "left_trigger_released"},
		},
		{
			name:     "unknown keyword",
			payload:  `{"action":"moonwalk_pressed","controllerId":"p1"}`,
			expected: command.Action{Kind: command.KindUnknown, Raw: "moonwalk_pressed", ControllerID: "p1"},
		},
		{
			name:     "case sensitive",
			payload:  `{"action":"SHORT_PASS_pressed"}`,
			expected: command.Action{Kind: command.KindUnknown, Raw: "SHORT_PASS_pressed"},
		},
		{
			name:     "key case must match",
			payload:  `{"Action":"short_pass_pressed"}`,
			expected: command.Action{Kind: command.KindUnknown, Raw: `{"Action":"short_pass_pressed"}`},
		},
		{
			name:     "miscased identity keys are ignored",
			payload:  `{"action":"connect","ControllerId":"p1","CONTROLLERNAME":"Alice"}`,
			expected: command.Action{Kind: command.KindIdentify, Raw: "connect"},
		},
		{
			name:     "not an object",
			payload:  `["short_pass_pressed"]`,
			expected: command.Action{Kind: command.KindUnknown, Raw: `["short_pass_pressed"]`},
		},
		{
			name:     "not json",
			payload:  `hello there`,
			expected: command.Action{Kind: command.KindUnknown, Raw: "hello there"},
		},
		{
			name:     "missing action",
			payload:  `{"controllerId":"p1"}`,
			expected: command.Action{Kind: command.KindUnknown, Raw: `{"controllerId":"p1"}`, ControllerID: "p1"},
		},
		{
			name:     "action of wrong type",
			payload:  `{"action":5}`,
			expected: command.Action{Kind: command.KindUnknown, Raw: `{"action":5}`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, command.Decode([]byte(tt.payload)))
		})
	}
}

func TestDecodeTruncatesRaw(t *testing.T) {
	long := strings.Repeat("x", command.MaxRawLen*2)
	a := command.Decode([]byte(long))
	assert.Equal(t, command.KindUnknown, a.Kind)
	assert.Equal(t, strings.Repeat("x", command.MaxRawLen)+"...", a.Raw)

	// a multi-byte rune split by the cut is dropped, not mangled
	split := strings.Repeat("a", command.MaxRawLen-1) + "é" + "tail"
	a = command.Decode([]byte(split))
	assert.Equal(t, strings.Repeat("a", command.MaxRawLen-1)+"...", a.Raw)
}

func TestEveryControlDecodes(t *testing.T) {
	for _, control := range keymap.Controls() {
		b, _ := keymap.Lookup(control)
		action := control + "_pressed"
		if b.Kind == keymap.Tap {
			action = control
		}
		a := command.Decode([]byte(`{"action":"` + action + `"}`))
		assert.NotEqual(t, command.KindUnknown, a.Kind, action)
		assert.Equal(t, control, a.Control, action)
	}
}
