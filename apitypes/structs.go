package apitypes

import (
	"fmt"
	"time"
)

// ApiError represents an RFC 7807 (problem+json) error response.
type ApiError struct {
	// Status is the HTTP-style status code (e.g., 400, 404, 500)
	Status int `json:"status"`
	// Title is a short, human-readable summary of the problem type
	Title string `json:"title"`
	// Detail is a human-readable explanation specific to this occurrence
	Detail string `json:"detail"`
}

func (e ApiError) Error() string {
	if e.Status == 0 && e.Title == "" {
		return "unknown error"
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

// --

type PingResponse struct {
	Server  string `json:"server"`
	Version string `json:"version"`
}

// Controller is one connection bound to a controller id.
type Controller struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Conn      string `json:"conn"`
	Transport string `json:"transport"`
	Remote    string `json:"remote"`
	State     string `json:"state"`
}

type ControllersListResponse struct {
	Controllers []Controller `json:"controllers"`
}

type KickResponse struct {
	ID string `json:"id"`
}

// Session is one registry record.
type Session struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	LastSeen    time.Time `json:"lastSeen"`
}

type SessionsListResponse struct {
	Sessions []Session `json:"sessions"`
}

type SweepResponse struct {
	Removed []string `json:"removed"`
}

// DeviceState mirrors the shared virtual gamepad.
type DeviceState struct {
	Connected    bool     `json:"connected"`
	Held         []string `json:"held"`
	LeftX        int16    `json:"leftX"`
	LeftY        int16    `json:"leftY"`
	RightX       int16    `json:"rightX"`
	RightY       int16    `json:"rightY"`
	LeftTrigger  uint8    `json:"leftTrigger"`
	RightTrigger uint8    `json:"rightTrigger"`
}

type ReleaseResponse struct {
	Released []string `json:"released"`
}
