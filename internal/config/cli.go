// Package config holds the root command line of the padbridge binary.
package config

import (
	"github.com/Alia5/PadBridge/internal/cmd"
	"github.com/Alia5/PadBridge/internal/log"
)

type CLI struct {
	Config string     `help:"Configuration file (json, yaml or toml)" type:"path" env:"PADBRIDGE_CONFIG"`
	Log    log.Config `embed:"" prefix:"log."`

	Server    cmd.Server        `cmd:"" help:"Run the controller bridge"`
	Ctl       cmd.Ctl           `cmd:"" help:"Manage a running server through its API"`
	Send      cmd.Send          `cmd:"" help:"Act as a controller and send actions over WebSocket"`
	ConfigCmd cmd.ConfigCommand `cmd:"" name:"config" help:"Configuration helpers"`
	Install   cmd.Install       `cmd:"" help:"Install the server as a system service"`
	Uninstall cmd.Uninstall     `cmd:"" help:"Remove the system service"`
}
