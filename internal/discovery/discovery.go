// Package discovery advertises the WebSocket listener over mDNS so phones on
// the same network find the server without typing an address.
package discovery

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/grandcat/zeroconf"
)

// Config controls the mDNS advertisement.
type Config struct {
	Enabled  bool   `help:"Advertise the WebSocket listener over mDNS" default:"true" negatable:"" env:"PADBRIDGE_DISCOVERY_ENABLED"`
	Service  string `help:"mDNS service type" default:"_pcserver._tcp" env:"PADBRIDGE_DISCOVERY_SERVICE"`
	Domain   string `help:"mDNS domain" default:"local." env:"PADBRIDGE_DISCOVERY_DOMAIN"`
	Instance string `help:"mDNS instance name (defaults to the hostname)" env:"PADBRIDGE_DISCOVERY_INSTANCE"`
}

// TXT records clients use to recognise a controller server.
var txtRecords = []string{"version=1.0", "type=gamecontroller"}

// register is swapped in tests; multicast is rarely available there.
var register = zeroconf.Register

// Advertiser keeps one mDNS registration alive until Shutdown.
type Advertiser struct {
	server   *zeroconf.Server
	logger   *slog.Logger
	instance string
}

// Advertise registers the service on port.
func Advertise(cfg Config, port int, logger *slog.Logger) (*Advertiser, error) {
	if logger == nil {
		logger = slog.Default()
	}
	instance := instanceName(cfg.Instance)
	server, err := register(instance, cfg.Service, cfg.Domain, port, txtRecords, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register %s: %w", cfg.Service, err)
	}
	logger.Info("mDNS advertisement started", "instance", instance, "service", cfg.Service, "domain", cfg.Domain, "port", port)
	return &Advertiser{server: server, logger: logger, instance: instance}, nil
}

// Instance is the advertised instance name.
func (a *Advertiser) Instance() string { return a.instance }

// Shutdown withdraws the advertisement. Safe on a nil Advertiser.
func (a *Advertiser) Shutdown() {
	if a == nil {
		return
	}
	if a.server != nil {
		a.server.Shutdown()
	}
	a.logger.Info("mDNS advertisement stopped", "instance", a.instance)
}

func instanceName(configured string) string {
	if s := strings.TrimSpace(configured); s != "" {
		return s
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "padbridge"
	}
	// mDNS instance labels must not carry the domain part
	host, _, _ = strings.Cut(host, ".")
	return host
}
