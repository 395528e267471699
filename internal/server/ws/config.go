package ws

// ServerConfig configures the WebSocket listener.
type ServerConfig struct {
	Addr      string `help:"WebSocket listen address" default:":8080" env:"PADBRIDGE_WS_ADDR"`
	Path      string `help:"HTTP path accepting WebSocket upgrades" default:"/" env:"PADBRIDGE_WS_PATH"`
	ReadLimit int64  `help:"Maximum size of one inbound message in bytes" default:"4096" env:"PADBRIDGE_WS_READ_LIMIT"`
}
