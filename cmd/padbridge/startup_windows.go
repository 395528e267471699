//go:build windows

package main

import (
	"log/slog"
	"os"

	"github.com/Alia5/PadBridge/internal/util"
)

// A double-clicked padbridge.exe has no arguments; run the server.
func init() {
	if !util.IsRunFromGUI() {
		return
	}
	if len(os.Args) < 2 || os.Args[1] != "server" {
		slog.Info("Started outside a terminal, running the server")
		slog.Warn("Run padbridge from a terminal for more options")
	}
	os.Args = util.WithDefaultCommand(os.Args, "server")
}
