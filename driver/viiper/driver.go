// Package viiper drives the shared pad through a VIIPER server: it attaches
// an xbox360 device to a VIIPER USB-IP bus and streams input reports to it.
package viiper

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"time"

	"go.uber.org/multierr"

	"github.com/Alia5/PadBridge/apiclient"
	"github.com/Alia5/PadBridge/gamepad"
)

// Driver implements gamepad.Driver. Calls are serialized by gamepad.Device;
// only the rumble reader runs concurrently and it touches nothing but its
// own stream.
type Driver struct {
	cfg       Config
	transport *apiclient.Transport
	logger    *slog.Logger

	state inputState

	stream     net.Conn
	readerDone chan struct{}
	busID      uint32
	devID      string
	createdBus bool
}

func New(cfg Config, logger *slog.Logger) *Driver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	return NewWithTransport(cfg, apiclient.NewTransportWithConfig(cfg.Addr, &apiclient.Config{
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		Password:     cfg.Password,
	}), logger)
}

// NewWithTransport uses t for every management request and stream.
func NewWithTransport(cfg Config, t *apiclient.Transport, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	return &Driver{cfg: cfg, transport: t, logger: logger.With("driver", "viiper", "addr", t.Addr())}
}

// Connect picks a bus, adds an xbox360 device and opens its stream. A new
// device always starts from a neutral report; whatever was cached for a
// previous device is discarded.
func (d *Driver) Connect(ctx context.Context) error {
	if d.stream != nil {
		return nil
	}
	busID, created, err := d.pickBus(ctx)
	if err != nil {
		return unavailable("select bus", err)
	}
	params := map[string]string{"id": strconv.FormatUint(uint64(busID), 10)}
	dev, err := request[deviceInfo](ctx, d.transport, "bus/{id}/add", deviceCreateRequest{Type: deviceType}, params)
	if err != nil {
		err = multierr.Append(err, d.cleanup(ctx, busID, "", created))
		return unavailable("add device", err)
	}
	params["dev"] = dev.DevID
	conn, err := d.transport.OpenStream(ctx, "bus/{id}/{dev}", params)
	if err != nil {
		err = multierr.Append(err, d.cleanup(ctx, busID, dev.DevID, created))
		return unavailable("open stream", err)
	}

	d.stream = conn
	d.state = inputState{}
	d.busID, d.devID, d.createdBus = busID, dev.DevID, created
	d.readerDone = make(chan struct{})
	go d.readRumble(conn, d.readerDone)

	d.logger.Info("VIIPER device attached", "bus", busID, "dev", dev.DevID, "vid", dev.Vid, "pid", dev.Pid, "createdBus", created)
	return d.send()
}

// Disconnect closes the stream and removes the device, and the bus if this
// driver created it.
func (d *Driver) Disconnect() error {
	if d.stream == nil {
		return nil
	}
	d.closeStream()
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()
	err := d.cleanup(ctx, d.busID, d.devID, d.createdBus)
	d.logger.Info("VIIPER device detached", "bus", d.busID, "dev", d.devID)
	d.busID, d.devID, d.createdBus = 0, "", false
	return err
}

func (d *Driver) SetButton(b gamepad.Button, pressed bool) error {
	if pressed {
		d.state.Buttons |= uint32(b)
	} else {
		d.state.Buttons &^= uint32(b)
	}
	return d.send()
}

func (d *Driver) SetAxis(a gamepad.Axis, value int16) error {
	switch a {
	case gamepad.AxisLeftX:
		d.state.LX = value
	case gamepad.AxisLeftY:
		d.state.LY = value
	case gamepad.AxisRightX:
		d.state.RX = value
	case gamepad.AxisRightY:
		d.state.RY = value
	default:
		return fmt.Errorf("viiper: unknown axis %v", a)
	}
	return d.send()
}

func (d *Driver) SetSlider(s gamepad.Slider, value uint8) error {
	switch s {
	case gamepad.SliderLeftTrigger:
		d.state.LT = value
	case gamepad.SliderRightTrigger:
		d.state.RT = value
	default:
		return fmt.Errorf("viiper: unknown slider %v", s)
	}
	return d.send()
}

func (d *Driver) send() error {
	if d.stream == nil {
		return fmt.Errorf("viiper: %w", gamepad.ErrDeviceUnavailable)
	}
	b, _ := d.state.MarshalBinary()
	_ = d.stream.SetWriteDeadline(time.Now().Add(d.cfg.Timeout))
	if _, err := d.stream.Write(b); err != nil {
		// the server dropped the device; Connect attaches a fresh one
		d.closeStream()
		return unavailable("write input state", err)
	}
	return nil
}

func (d *Driver) closeStream() {
	_ = d.stream.Close()
	<-d.readerDone
	d.stream = nil
}

func (d *Driver) readRumble(conn net.Conn, done chan<- struct{}) {
	defer close(done)
	r := bufio.NewReader(conn)
	buf := make([]byte, rumbleStateSize)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.EOF) {
				d.logger.Debug("VIIPER stream read ended", "error", err)
			}
			return
		}
		var rs rumbleState
		if err := rs.UnmarshalBinary(buf); err != nil {
			return
		}
		d.logger.Debug("rumble", "left", rs.LeftMotor, "right", rs.RightMotor)
	}
}

func (d *Driver) pickBus(ctx context.Context) (busID uint32, created bool, err error) {
	list, err := request[busListResponse](ctx, d.transport, "bus/list", nil, nil)
	if err != nil {
		return 0, false, err
	}
	if d.cfg.BusID != 0 {
		if slices.Contains(list.Buses, d.cfg.BusID) {
			return d.cfg.BusID, false, nil
		}
		resp, err := request[busCreateResponse](ctx, d.transport, "bus/create", strconv.FormatUint(uint64(d.cfg.BusID), 10), nil)
		if err != nil {
			return 0, false, err
		}
		return resp.BusID, true, nil
	}
	if len(list.Buses) > 0 {
		return slices.Min(list.Buses), false, nil
	}
	resp, err := request[busCreateResponse](ctx, d.transport, "bus/create", nil, nil)
	if err != nil {
		return 0, false, err
	}
	return resp.BusID, true, nil
}

func (d *Driver) cleanup(ctx context.Context, busID uint32, devID string, removeBus bool) error {
	var err error
	bus := strconv.FormatUint(uint64(busID), 10)
	if devID != "" {
		if _, e := request[deviceRemoveResponse](ctx, d.transport, "bus/{id}/remove", devID, map[string]string{"id": bus}); e != nil {
			err = multierr.Append(err, fmt.Errorf("remove device %s-%s: %w", bus, devID, e))
		}
	}
	if removeBus {
		if _, e := request[busRemoveResponse](ctx, d.transport, "bus/remove", bus, nil); e != nil {
			err = multierr.Append(err, fmt.Errorf("remove bus %s: %w", bus, e))
		}
	}
	return err
}

func request[T any](ctx context.Context, t *apiclient.Transport, path string, payload any, params map[string]string) (*T, error) {
	raw, err := t.DoCtx(ctx, path, payload, params)
	if err != nil {
		return nil, err
	}
	return apiclient.Parse[T](raw)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("viiper %s: %w: %w", op, gamepad.ErrDeviceUnavailable, err)
}
