package viiper

import "time"

// Config selects the VIIPER server the driver streams to.
type Config struct {
	Addr     string        `help:"VIIPER API server address" default:"localhost:3242" env:"PADBRIDGE_VIIPER_ADDR"`
	Password string        `help:"VIIPER API password (empty for unauthenticated servers)" env:"PADBRIDGE_VIIPER_PASSWORD"`
	BusID    uint32        `help:"VIIPER bus to attach to; 0 reuses the lowest existing bus or creates one" default:"0" env:"PADBRIDGE_VIIPER_BUS_ID"`
	Timeout  time.Duration `help:"Timeout for VIIPER API requests" default:"3s" env:"PADBRIDGE_VIIPER_TIMEOUT"`
}
