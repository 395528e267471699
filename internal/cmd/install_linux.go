//go:build linux

package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
)

const (
	serviceName = "padbridge.service"
	servicePath = "/etc/systemd/system/padbridge.service"
)

func install(logger *slog.Logger, serverArgs []string) error {
	exePath, err := currentExecutable()
	if err != nil {
		return err
	}

	unit := systemdUnitContent(exePath, serverArgs)
	if err := os.WriteFile(servicePath, []byte(unit), 0o644); err != nil {
		return err
	}

	for _, args := range [][]string{
		{"daemon-reload"},
		{"enable", serviceName},
		{"restart", serviceName},
	} {
		if err := runSystemctl(args...); err != nil {
			return err
		}
	}

	logger.Info("PadBridge systemd service installed", "path", servicePath, "exe", exePath)
	return nil
}

func uninstall(logger *slog.Logger) error {
	var err error
	err = multierr.Append(err, runSystemctl("stop", serviceName))
	err = multierr.Append(err, runSystemctl("disable", serviceName))
	if rmErr := os.Remove(servicePath); rmErr != nil && !os.IsNotExist(rmErr) {
		err = multierr.Append(err, rmErr)
	}
	err = multierr.Append(err, runSystemctl("daemon-reload"))
	if err != nil {
		return err
	}

	logger.Info("PadBridge systemd service removed", "path", servicePath)
	return nil
}

// systemdUnitContent needs network-online so the listeners and mDNS
// advertisement see a configured interface.
func systemdUnitContent(exePath string, serverArgs []string) string {
	execStart := fmt.Sprintf("%q server", exePath)
	for _, a := range serverArgs {
		execStart += " " + fmt.Sprintf("%q", a)
	}
	return fmt.Sprintf(`[Unit]
Description=PadBridge controller server
After=network-online.target bluetooth.target
Wants=network-online.target

[Service]
Type=simple
ExecStart=%s
WorkingDirectory=%s
Restart=on-failure

[Install]
WantedBy=multi-user.target
`, execStart, filepath.Dir(exePath))
}

func runSystemctl(args ...string) error {
	cmd := exec.Command("systemctl", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s failed: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return nil
}
