package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apitypes "github.com/Alia5/PadBridge/apitypes"
)

// Client provides a high-level interface to the PadBridge management API,
// handling request formatting, response parsing, and error handling.
type Client struct{ transport *Transport }

// New constructs a high-level API client using the internal low-level Transport.
// The addr parameter specifies the TCP address (host:port) of the API server.
func New(addr string) *Client { return &Client{transport: NewTransport(addr)} }

// NewWithPassword constructs a client that authenticates with the given password.
func NewWithPassword(addr, password string) *Client {
	return &Client{transport: NewTransportWithPassword(addr, password)}
}

// NewWithConfig constructs a client with custom transport timeouts.
func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// WithTransport constructs a Client using a custom Transport implementation.
// This is primarily useful for testing or when advanced transport configuration is needed.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

// Ping returns the version and identity of the server.
func (c *Client) Ping() (*apitypes.PingResponse, error) {
	return c.PingCtx(context.Background())
}

// PingCtx is the context-aware version of Ping.
func (c *Client) PingCtx(ctx context.Context) (*apitypes.PingResponse, error) {
	return do[apitypes.PingResponse](ctx, c.transport, "ping", nil)
}

// ControllersList returns the connections currently bound to a controller id.
func (c *Client) ControllersList() (*apitypes.ControllersListResponse, error) {
	return c.ControllersListCtx(context.Background())
}

func (c *Client) ControllersListCtx(ctx context.Context) (*apitypes.ControllersListResponse, error) {
	return do[apitypes.ControllersListResponse](ctx, c.transport, "controllers/list", nil)
}

// ControllerKick disconnects the controller bound to id.
func (c *Client) ControllerKick(id string) (*apitypes.KickResponse, error) {
	return c.ControllerKickCtx(context.Background(), id)
}

func (c *Client) ControllerKickCtx(ctx context.Context, id string) (*apitypes.KickResponse, error) {
	return do[apitypes.KickResponse](ctx, c.transport, "controllers/kick", id)
}

// SessionsList returns the registry records in creation order.
func (c *Client) SessionsList() (*apitypes.SessionsListResponse, error) {
	return c.SessionsListCtx(context.Background())
}

func (c *Client) SessionsListCtx(ctx context.Context) (*apitypes.SessionsListResponse, error) {
	return do[apitypes.SessionsListResponse](ctx, c.transport, "sessions/list", nil)
}

// SessionsSweep removes sessions idle for longer than timeout. A zero timeout
// uses the server's configured session timeout.
func (c *Client) SessionsSweep(timeout time.Duration) (*apitypes.SweepResponse, error) {
	return c.SessionsSweepCtx(context.Background(), timeout)
}

func (c *Client) SessionsSweepCtx(ctx context.Context, timeout time.Duration) (*apitypes.SweepResponse, error) {
	var payload any
	if timeout > 0 {
		payload = timeout.String()
	}
	return do[apitypes.SweepResponse](ctx, c.transport, "sessions/sweep", payload)
}

// DeviceState reports the shared virtual gamepad.
func (c *Client) DeviceState() (*apitypes.DeviceState, error) {
	return c.DeviceStateCtx(context.Background())
}

func (c *Client) DeviceStateCtx(ctx context.Context) (*apitypes.DeviceState, error) {
	return do[apitypes.DeviceState](ctx, c.transport, "device/state", nil)
}

// DeviceRelease releases every held button without disconnecting the device.
func (c *Client) DeviceRelease() (*apitypes.ReleaseResponse, error) {
	return c.DeviceReleaseCtx(context.Background())
}

func (c *Client) DeviceReleaseCtx(ctx context.Context) (*apitypes.ReleaseResponse, error) {
	return do[apitypes.ReleaseResponse](ctx, c.transport, "device/release", nil)
}

func do[T any](ctx context.Context, t *Transport, path string, payload any) (*T, error) {
	raw, err := t.DoCtx(ctx, path, payload, nil)
	if err != nil {
		return nil, err
	}
	return Parse[T](raw)
}

// Parse decodes a single response line. A problem+json body is returned as
// *apitypes.ApiError; unknown fields are rejected.
func Parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem apitypes.ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
