package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Alia5/PadBridge/apitypes"
	"github.com/Alia5/PadBridge/internal/server/api"
	apierror "github.com/Alia5/PadBridge/internal/server/api/error"
)

// Ping returns a handler reporting the server name and version.
func Ping(version string) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		out, err := json.Marshal(apitypes.PingResponse{Server: "padbridge", Version: version})
		if err != nil {
			return apierror.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(out)
		return nil
	}
}
