package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Alia5/PadBridge/apitypes"
	"github.com/Alia5/PadBridge/internal/server/api"
	apierror "github.com/Alia5/PadBridge/internal/server/api/error"
	"github.com/Alia5/PadBridge/session"
)

// SessionsList returns a handler listing registry records in creation order.
func SessionsList(r *session.Registry) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		snap := r.Snapshot()
		out := apitypes.SessionsListResponse{Sessions: make([]apitypes.Session, 0, len(snap))}
		for _, s := range snap {
			out.Sessions = append(out.Sessions, apitypes.Session{ID: s.ID, DisplayName: s.DisplayName, LastSeen: s.LastSeen})
		}
		b, err := json.Marshal(out)
		if err != nil {
			return apierror.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(b)
		return nil
	}
}

// SessionsSweep returns a handler removing sessions idle for longer than the
// duration in the payload, or defaultTimeout when the payload is empty.
func SessionsSweep(r *session.Registry, defaultTimeout time.Duration) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		timeout := defaultTimeout
		if p := strings.TrimSpace(req.Payload); p != "" {
			d, err := time.ParseDuration(p)
			if err != nil {
				return apierror.ErrBadRequest(fmt.Sprintf("invalid timeout: %v", err))
			}
			if d < 0 {
				return apierror.ErrBadRequest("timeout must not be negative")
			}
			timeout = d
		}
		removed := r.SweepExpired(timeout)
		if len(removed) > 0 {
			logger.Info("sessions swept", "timeout", timeout, "removed", removed)
		}
		if removed == nil {
			removed = []string{}
		}
		b, err := json.Marshal(apitypes.SweepResponse{Removed: removed})
		if err != nil {
			return apierror.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(b)
		return nil
	}
}
