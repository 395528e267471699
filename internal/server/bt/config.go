package bt

// ServerConfig configures the Bluetooth RFCOMM listener.
type ServerConfig struct {
	Enabled   bool  `help:"Accept controllers over Bluetooth RFCOMM" default:"false" env:"PADBRIDGE_BT_ENABLED"`
	Channel   uint8 `help:"RFCOMM channel to listen on" default:"1" env:"PADBRIDGE_BT_CHANNEL"`
	ReadLimit int   `help:"Maximum size of one inbound message in bytes" default:"4096" env:"PADBRIDGE_BT_READ_LIMIT"`
}
