//go:build !windows

// Package util holds platform helpers for starting the server by double click.
package util

// IsRunFromGUI reports whether the process was started outside a terminal.
// Only windows can tell; elsewhere the server is started from a shell or a
// service manager.
func IsRunFromGUI() bool {
	return false
}

func HideConsoleWindow() {}
