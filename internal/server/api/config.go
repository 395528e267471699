package api

import "time"

// ServerConfig represents the management API configuration.
type ServerConfig struct {
	Addr        string `help:"API server listen address" default:"127.0.0.1:3250" env:"PADBRIDGE_API_ADDR"`
	RequireAuth bool   `help:"Reject API clients that do not authenticate with the key file password" default:"false" env:"PADBRIDGE_API_REQUIRE_AUTH"`

	ConnectionTimeout time.Duration `kong:"-"`
	Password          string        `kong:"-"`
}
