package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/Alia5/PadBridge/dispatch"
	"github.com/Alia5/PadBridge/driver/trace"
	"github.com/Alia5/PadBridge/driver/viiper"
	"github.com/Alia5/PadBridge/gamepad"
	"github.com/Alia5/PadBridge/internal/auth"
	"github.com/Alia5/PadBridge/internal/configpaths"
	"github.com/Alia5/PadBridge/internal/discovery"
	"github.com/Alia5/PadBridge/internal/log"
	"github.com/Alia5/PadBridge/internal/server/api"
	"github.com/Alia5/PadBridge/internal/server/api/handler"
	"github.com/Alia5/PadBridge/internal/server/bt"
	"github.com/Alia5/PadBridge/internal/server/link"
	"github.com/Alia5/PadBridge/internal/server/ws"
	"github.com/Alia5/PadBridge/internal/util"
	"github.com/Alia5/PadBridge/session"
)

const keyFileName = "padbridge.key.txt"

// Version is set at build time.
var Version = "dev"

type Server struct {
	WsServerConfig    ws.ServerConfig  `embed:"" prefix:"ws."`
	BtServerConfig    bt.ServerConfig  `embed:"" prefix:"bt."`
	ApiServerConfig   api.ServerConfig `embed:"" prefix:"api."`
	Driver            DriverConfig     `embed:"" prefix:"driver."`
	Discovery         discovery.Config `embed:"" prefix:"discovery."`
	SessionTimeout    time.Duration    `help:"Idle time after which a session is swept" default:"30s" env:"PADBRIDGE_SESSION_TIMEOUT"`
	SweepInterval     time.Duration    `help:"How often idle sessions are swept (0 disables)" default:"5s" env:"PADBRIDGE_SWEEP_INTERVAL"`
	TapDuration       time.Duration    `help:"How long tapped buttons stay pressed" default:"50ms" env:"PADBRIDGE_TAP_DURATION"`
	ReconnectInterval time.Duration    `help:"Retry interval while the virtual device is unavailable (0 disables)" default:"5s" env:"PADBRIDGE_RECONNECT_INTERVAL"`
	ConnectionTimeout time.Duration    `help:"API connection timeout" default:"30s" env:"PADBRIDGE_CONNECTION_TIMEOUT"`
	KeyFile           string           `help:"API password file (defaults to padbridge.key.txt in the config directory)" env:"PADBRIDGE_KEY_FILE"`
}

// DriverConfig selects the binding behind the virtual pad.
type DriverConfig struct {
	Kind   string        `help:"Virtual device driver" enum:"viiper,trace" default:"viiper" env:"PADBRIDGE_DRIVER"`
	VIIPER viiper.Config `embed:"" prefix:"viiper."`
}

// Run is called by Kong when the server command is executed.
func (s *Server) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.StartServer(ctx, logger, rawLogger)
}

func (s *Server) newDriver(logger *slog.Logger) (gamepad.Driver, error) {
	switch s.Driver.Kind {
	case "", "viiper":
		return viiper.New(s.Driver.VIIPER, logger), nil
	case "trace":
		return trace.New(logger), nil
	}
	return nil, fmt.Errorf("unknown driver %q", s.Driver.Kind)
}

func (s *Server) loadPassword(logger *slog.Logger) error {
	keyFilePath := s.KeyFile
	if keyFilePath == "" {
		dir, err := configpaths.DefaultConfigDir()
		if err != nil {
			return fmt.Errorf("failed to resolve key file path: %w", err)
		}
		keyFilePath = filepath.Join(dir, keyFileName)
	}
	pwd, created, err := auth.LoadOrCreateKeyFile(keyFilePath)
	if err != nil {
		return fmt.Errorf("failed to load API password: %w", err)
	}
	s.ApiServerConfig.Password = pwd
	if created {
		logger.Info("Generated API server password", "path", keyFilePath)
		logger.Info("-------------------------------------")
		logger.Info("Your PadBridge API server password is:")
		logger.Info("-------------------------------------")
		logger.Info(pwd)
		logger.Info("-------------------------------------")
		logger.Info("You can change this password at any time by editing the file")
	}
	return nil
}

func (s *Server) StartServer(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	s.ApiServerConfig.ConnectionTimeout = s.ConnectionTimeout
	if err := s.loadPassword(logger); err != nil {
		return err
	}

	drv, err := s.newDriver(logger)
	if err != nil {
		return err
	}
	dev := gamepad.New(drv, logger)
	if err := dev.Connect(ctx); err != nil {
		logger.Warn("virtual device not available yet; inputs are dropped until it connects", "driver", s.Driver.Kind)
	}

	registry := session.NewRegistry()
	hub := link.NewHub(registry, dispatch.New(registry, dev, logger, s.TapDuration), logger, link.WithRawLogger(rawLogger))

	if s.ApiServerConfig.Addr == "" {
		return errors.New("API server address must be set (default 127.0.0.1:3250)")
	}
	apiSrv := api.New(s.ApiServerConfig.Addr, s.ApiServerConfig, logger)
	registerRoutes(apiSrv.Router(), hub, registry, dev, s.SessionTimeout)
	if err := apiSrv.Start(); err != nil {
		logger.Error("failed to start API server", "error", err)
		if util.IsRunFromGUI() {
			fmt.Println("Press any key to exit...")
			b := make([]byte, 1)
			_, _ = os.Stdin.Read(b)
		}
		return multierr.Append(err, dev.Shutdown())
	}

	logger.Info("Starting PadBridge WebSocket server", "addr", s.WsServerConfig.Addr, "path", s.WsServerConfig.Path)
	wsSrv := ws.New(s.WsServerConfig, hub, logger)
	listenErrCh := make(chan error, 2)
	var listeners sync.WaitGroup
	listeners.Add(1)
	go func() {
		defer listeners.Done()
		if err := wsSrv.ListenAndServe(); err != nil {
			listenErrCh <- fmt.Errorf("websocket server: %w", err)
		}
	}()
	select {
	case err := <-listenErrCh:
		apiSrv.Close()
		return multierr.Append(err, dev.Shutdown())
	case <-wsSrv.Ready():
	}

	var btSrv *bt.Server
	if s.BtServerConfig.Enabled {
		btSrv = bt.New(s.BtServerConfig, hub, logger)
		listeners.Add(1)
		go func() {
			defer listeners.Done()
			if err := btSrv.ListenAndServe(); err != nil {
				listenErrCh <- fmt.Errorf("bluetooth server: %w", err)
			}
		}()
	}

	var adv *discovery.Advertiser
	if s.Discovery.Enabled {
		adv, err = discovery.Advertise(s.Discovery, wsSrv.Port(), logger)
		if err != nil {
			// clients can still connect by address
			logger.Warn("mDNS advertisement unavailable", "error", err)
		}
	}

	if util.IsRunFromGUI() {
		go func() {
			time.Sleep(250 * time.Millisecond)
			util.HideConsoleWindow()
		}()
	}

	bgCtx, cancelBg := context.WithCancel(ctx)
	var bg sync.WaitGroup
	bg.Add(2)
	go func() {
		defer bg.Done()
		registry.RunSweeper(bgCtx, s.SweepInterval, s.SessionTimeout, func(removed []string) {
			logger.Info("idle sessions swept", "removed", removed, "timeout", s.SessionTimeout)
		})
	}()
	go func() {
		defer bg.Done()
		keepDeviceConnected(bgCtx, dev, clock.New(), s.ReconnectInterval)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case runErr = <-listenErrCh:
		logger.Error("listener failed, shutting down", "error", runErr)
	}

	cancelBg()
	bg.Wait()
	adv.Shutdown()

	var closeErr error
	closeErr = multierr.Append(closeErr, wsSrv.Close())
	if btSrv != nil {
		closeErr = multierr.Append(closeErr, btSrv.Close())
	}
	listeners.Wait()

	hub.CloseAll("server shutting down")
	hub.Wait()
	closeErr = multierr.Append(closeErr, dev.Shutdown())
	apiSrv.Close()

	if closeErr != nil {
		logger.Warn("shutdown incomplete", "error", closeErr)
	}
	return runErr
}

func registerRoutes(r *api.Router, hub *link.Hub, registry *session.Registry, dev *gamepad.Device, sessionTimeout time.Duration) {
	r.Register("ping", handler.Ping(Version))
	r.Register("controllers/list", handler.ControllersList(hub))
	r.Register("controllers/kick", handler.ControllerKick(hub))
	r.Register("sessions/list", handler.SessionsList(registry))
	r.Register("sessions/sweep", handler.SessionsSweep(registry, sessionTimeout))
	r.Register("device/state", handler.DeviceState(dev))
	r.Register("device/release", handler.DeviceRelease(dev))
}

// keepDeviceConnected retries Connect while the device is unavailable.
func keepDeviceConnected(ctx context.Context, dev *gamepad.Device, clk clock.Clock, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := clk.Ticker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !dev.State().Connected {
				_ = dev.Connect(ctx)
			}
		}
	}
}
