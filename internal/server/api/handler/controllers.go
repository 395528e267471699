package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Alia5/PadBridge/apitypes"
	"github.com/Alia5/PadBridge/internal/server/api"
	apierror "github.com/Alia5/PadBridge/internal/server/api/error"
	"github.com/Alia5/PadBridge/internal/server/link"
)

// ControllersList returns a handler listing the connections bound to a controller id.
func ControllersList(h *link.Hub) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		conns := h.Active()
		out := apitypes.ControllersListResponse{Controllers: make([]apitypes.Controller, 0, len(conns))}
		for _, c := range conns {
			out.Controllers = append(out.Controllers, apitypes.Controller{
				ID:        c.ControllerID(),
				Name:      c.Name(),
				Conn:      c.ID().String(),
				Transport: c.Transport().Kind(),
				Remote:    c.Transport().RemoteAddr(),
				State:     c.State().String(),
			})
		}
		b, err := json.Marshal(out)
		if err != nil {
			return apierror.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(b)
		return nil
	}
}

// ControllerKick returns a handler that disconnects the controller named in the payload.
func ControllerKick(h *link.Hub) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		id := strings.TrimSpace(req.Payload)
		if id == "" {
			return apierror.ErrBadRequest("missing controller id")
		}
		if err := h.Kick(id); err != nil {
			return apierror.ErrNotFound(err.Error())
		}
		logger.Info("controller kicked", "controller", id)
		b, err := json.Marshal(apitypes.KickResponse{ID: id})
		if err != nil {
			return apierror.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(b)
		return nil
	}
}
