package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Alia5/PadBridge/apitypes"
	"github.com/Alia5/PadBridge/gamepad"
	"github.com/Alia5/PadBridge/internal/server/api"
	apierror "github.com/Alia5/PadBridge/internal/server/api/error"
)

// DeviceState returns a handler reporting the shared virtual gamepad.
func DeviceState(d *gamepad.Device) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		st := d.State()
		b, err := json.Marshal(apitypes.DeviceState{
			Connected:    st.Connected,
			Held:         buttonNames(st.Held),
			LeftX:        st.LeftX,
			LeftY:        st.LeftY,
			RightX:       st.RightX,
			RightY:       st.RightY,
			LeftTrigger:  st.LeftTrigger,
			RightTrigger: st.RightTrigger,
		})
		if err != nil {
			return apierror.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(b)
		return nil
	}
}

// DeviceRelease returns a handler that releases every held button.
func DeviceRelease(d *gamepad.Device) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		released := d.ReleaseHeld()
		if len(released) > 0 {
			logger.Info("released held buttons", "buttons", buttonNames(released))
		}
		b, err := json.Marshal(apitypes.ReleaseResponse{Released: buttonNames(released)})
		if err != nil {
			return apierror.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(b)
		return nil
	}
}

func buttonNames(bs []gamepad.Button) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.String())
	}
	return out
}
