package apiclient_test

import (
	"context"
	"errors"
	"testing"
	"time"

	apiclient "github.com/Alia5/PadBridge/apiclient"
	apitypes "github.com/Alia5/PadBridge/apitypes"

	"github.com/stretchr/testify/assert"
)

// testClient constructs a client backed by a simple in-memory responder.
// responses maps paths to raw JSON payloads; payloads records what was sent.
// If err is non-nil, every request returns that error, simulating dial failures.
func testClient(responses map[string]string, payloads map[string]any, err error) *apiclient.Client {
	return apiclient.WithTransport(apiclient.NewMockTransport(func(path string, payload any, _ map[string]string) (string, error) {
		if err != nil {
			return "", err
		}
		if payloads != nil {
			payloads[path] = payload
		}
		if out, ok := responses[path]; ok {
			return out, nil
		}
		return "", nil
	}))
}

func TestHighLevelClient(t *testing.T) {
	tests := []struct {
		name        string
		responses   map[string]string
		injectErr   error
		call        func(c *apiclient.Client) (any, error)
		wantErr     string
		wantPayload map[string]any
		assertFunc  func(t *testing.T, got any)
	}{
		{
			name:      "ping",
			responses: map[string]string{"ping": `{"server":"padbridge","version":"dev"}`},
			call:      func(c *apiclient.Client) (any, error) { return c.Ping() },
			assertFunc: func(t *testing.T, got any) {
				assert.Equal(t, &apitypes.PingResponse{Server: "padbridge", Version: "dev"}, got)
			},
		},
		{
			name: "controllers list",
			responses: map[string]string{"controllers/list": `{"controllers":[` +
				`{"id":"p1","name":"Alice","conn":"c","transport":"ws","remote":"1.2.3.4:5","state":"active"}]}`},
			call: func(c *apiclient.Client) (any, error) { return c.ControllersList() },
			assertFunc: func(t *testing.T, got any) {
				resp := got.(*apitypes.ControllersListResponse)
				if assert.Len(t, resp.Controllers, 1) {
					assert.Equal(t, "Alice", resp.Controllers[0].Name)
					assert.Equal(t, "ws", resp.Controllers[0].Transport)
				}
			},
		},
		{
			name:        "kick sends id as payload",
			responses:   map[string]string{"controllers/kick": `{"id":"p1"}`},
			call:        func(c *apiclient.Client) (any, error) { return c.ControllerKick("p1") },
			wantPayload: map[string]any{"controllers/kick": "p1"},
		},
		{
			name: "kick unknown controller",
			responses: map[string]string{
				"controllers/kick": `{"status":404,"title":"Not Found","detail":"controller \"p9\" is not connected"}`,
			},
			call:    func(c *apiclient.Client) (any, error) { return c.ControllerKick("p9") },
			wantErr: `404 Not Found: controller "p9" is not connected`,
		},
		{
			name:        "sweep with default timeout sends no payload",
			responses:   map[string]string{"sessions/sweep": `{"removed":[]}`},
			call:        func(c *apiclient.Client) (any, error) { return c.SessionsSweep(0) },
			wantPayload: map[string]any{"sessions/sweep": nil},
		},
		{
			name:        "sweep with timeout",
			responses:   map[string]string{"sessions/sweep": `{"removed":["a","b"]}`},
			call:        func(c *apiclient.Client) (any, error) { return c.SessionsSweep(90 * time.Second) },
			wantPayload: map[string]any{"sessions/sweep": "1m30s"},
			assertFunc: func(t *testing.T, got any) {
				assert.Equal(t, []string{"a", "b"}, got.(*apitypes.SweepResponse).Removed)
			},
		},
		{
			name: "device state",
			responses: map[string]string{"device/state": `{"connected":true,"held":["A"],"leftX":-32767,` +
				`"leftY":0,"rightX":0,"rightY":0,"leftTrigger":255,"rightTrigger":0}`},
			call: func(c *apiclient.Client) (any, error) { return c.DeviceState() },
			assertFunc: func(t *testing.T, got any) {
				st := got.(*apitypes.DeviceState)
				assert.True(t, st.Connected)
				assert.Equal(t, []string{"A"}, st.Held)
				assert.Equal(t, int16(-32767), st.LeftX)
				assert.Equal(t, uint8(255), st.LeftTrigger)
			},
		},
		{
			name:      "transport failure",
			injectErr: errors.New("dial fail"),
			call:      func(c *apiclient.Client) (any, error) { return c.SessionsList() },
			wantErr:   "dial fail",
		},
		{
			name:    "blank response error",
			call:    func(c *apiclient.Client) (any, error) { return c.DeviceRelease() },
			wantErr: "empty response",
		},
		{
			name:      "unknown fields are rejected",
			responses: map[string]string{"sessions/list": `{"sessions":[],"extra":true}`},
			call:      func(c *apiclient.Client) (any, error) { return c.SessionsList() },
			wantErr:   "decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responses := tt.responses
			if responses == nil {
				responses = map[string]string{}
			}
			payloads := map[string]any{}
			c := testClient(responses, payloads, tt.injectErr)
			got, err := tt.call(c)
			if tt.wantErr != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
			for path, want := range tt.wantPayload {
				assert.Equal(t, want, payloads[path], path)
			}
			if tt.assertFunc != nil {
				tt.assertFunc(t, got)
			}
		})
	}
}

func TestApiErrorIsTyped(t *testing.T) {
	c := testClient(map[string]string{"device/release": `{"status":503,"title":"Service Unavailable","detail":"x"}`}, nil, nil)
	_, err := c.DeviceRelease()
	var apiErr *apitypes.ApiError
	if assert.True(t, errors.As(err, &apiErr)) {
		assert.Equal(t, 503, apiErr.Status)
	}
}

func TestContextCancellation(t *testing.T) {
	c := apiclient.WithTransport(apiclient.NewTransport("127.0.0.1:9")) // address irrelevant due to early cancel
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ControllersListCtx(ctx)
	assert.Error(t, err)
}
