// Package command decodes inbound controller messages into Actions.
//
// Decoding fails closed: anything that is not a well-formed message with a
// recognized action decodes to KindUnknown instead of returning an error, so
// one bad message never tears down a connection.
package command

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/multierr"

	"github.com/Alia5/PadBridge/gamepad"
	"github.com/Alia5/PadBridge/keymap"
)

// MaxRawLen caps how much of an unparseable payload is kept in Action.Raw.
const MaxRawLen = 256

const (
	ActionConnect = "connect"

	prefixMove   = "move_"
	prefixCamera = "camera_"

	suffixPressed  = "_pressed"
	suffixReleased = "_released"
)

// Message is the wire shape of an inbound command. Keys are matched
// exactly; "Action" is not "action".
type Message struct {
	Action         string `json:"action"`
	Timestamp      int64  `json:"timestamp,omitempty"`
	ControllerName string `json:"controllerName,omitempty"`
	ControllerID   string `json:"controllerId,omitempty"`
}

// Decode parses payload into an Action. It never fails; malformed input
// yields an Action of KindUnknown carrying the raw text.
func Decode(payload []byte) Action {
	m, err := unmarshalExact(payload)
	if err != nil {
		return Action{Kind: KindUnknown, Raw: truncate(string(payload))}
	}
	a := Action{
		Raw:            truncate(m.Action),
		ControllerID:   m.ControllerID,
		ControllerName: m.ControllerName,
		Timestamp:      m.Timestamp,
	}
	if m.Action == "" {
		a.Raw = truncate(string(payload))
		return a
	}
	decodeAction(m.Action, &a)
	return a
}

// unmarshalExact fills a Message from the keys that match its tags exactly.
// encoding/json folds case when matching struct fields, so the object is
// split into raw members first.
func unmarshalExact(payload []byte) (Message, error) {
	var m Message
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return m, err
	}
	err := multierr.Combine(
		member(fields, "action", &m.Action),
		member(fields, "timestamp", &m.Timestamp),
		member(fields, "controllerName", &m.ControllerName),
		member(fields, "controllerId", &m.ControllerID),
	)
	return m, err
}

func member(fields map[string]json.RawMessage, key string, v any) error {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func decodeAction(action string, a *Action) {
	switch {
	case action == ActionConnect:
		a.Kind = KindIdentify
		return
	case strings.HasPrefix(action, prefixMove):
		decodeStick(action, gamepad.StickLeft, a)
		return
	case strings.HasPrefix(action, prefixCamera):
		decodeStick(action, gamepad.StickRight, a)
		return
	}

	control, edge, hasEdge := splitEdge(action)
	b, ok := keymap.Lookup(control)
	if !ok {
		return
	}
	switch b.Kind {
	case keymap.Tap:
		if hasEdge {
			return
		}
		a.Kind, a.Control, a.Edge = KindButton, control, EdgeTapped
	case keymap.Hold, keymap.TapOnPress:
		if !hasEdge {
			return
		}
		a.Kind, a.Control, a.Edge = KindButton, control, edge
	case keymap.Trigger:
		if !hasEdge {
			return
		}
		a.Kind, a.Control, a.Side = KindTrigger, control, b.Side
		a.Value = keymap.TriggerOff
		if edge == EdgePressed {
			a.Value = keymap.TriggerFull
		}
	}
}

// decodeStick parses "<prefix><x>_<y>". Either coordinate failing to parse
// leaves the action Unknown.
func decodeStick(action string, s gamepad.Stick, a *Action) {
	parts := strings.Split(action, "_")
	if len(parts) != 3 {
		return
	}
	x, ok := parseCoord(parts[1])
	if !ok {
		return
	}
	y, ok := parseCoord(parts[2])
	if !ok {
		return
	}
	a.Kind, a.Stick, a.X, a.Y = KindAxisMove, s, x, y
}

func parseCoord(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return max(-1, min(1, v)), true
}

func splitEdge(action string) (control string, edge Edge, ok bool) {
	if c, found := strings.CutSuffix(action, suffixPressed); found {
		return c, EdgePressed, true
	}
	if c, found := strings.CutSuffix(action, suffixReleased); found {
		return c, EdgeReleased, true
	}
	return action, EdgePressed, false
}

func truncate(s string) string {
	if len(s) <= MaxRawLen {
		return s
	}
	s = s[:MaxRawLen]
	// drop a rune cut in half by the slice
	for i := 0; i < utf8.UTFMax-1 && len(s) > 0; i++ {
		if r, size := utf8.DecodeLastRuneInString(s); r != utf8.RuneError || size != 1 {
			break
		}
		s = s[:len(s)-1]
	}
	return s + "..."
}
