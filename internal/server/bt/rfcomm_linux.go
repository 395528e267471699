package bt

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

type rfcommListener struct {
	f  *os.File
	rc syscall.RawConn
}

func listen(channel uint8) (listener, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
	if err != nil {
		return nil, fmt.Errorf("rfcomm socket: %w", err)
	}
	// zero address binds every local adapter
	if err := unix.Bind(fd, &unix.SockaddrRFCOMM{Channel: channel}); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("rfcomm bind channel %d: %w", channel, err)
	}
	if err := unix.Listen(fd, 4); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("rfcomm listen: %w", err)
	}
	f := os.NewFile(uintptr(fd), "rfcomm-listener")
	rc, err := f.SyscallConn()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &rfcommListener{f: f, rc: rc}, nil
}

func (l *rfcommListener) Accept() (io.ReadWriteCloser, string, error) {
	var (
		nfd  int
		sa   unix.Sockaddr
		aerr error
	)
	err := l.rc.Read(func(fd uintptr) bool {
		nfd, sa, aerr = unix.Accept4(int(fd), unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		return aerr != unix.EAGAIN
	})
	if err != nil {
		return nil, "", err
	}
	if aerr != nil {
		return nil, "", fmt.Errorf("rfcomm accept: %w", aerr)
	}
	remote := "rfcomm"
	if rsa, ok := sa.(*unix.SockaddrRFCOMM); ok {
		remote = formatBDAddr(rsa.Addr)
	}
	return os.NewFile(uintptr(nfd), "rfcomm-"+remote), remote, nil
}

func (l *rfcommListener) Close() error { return l.f.Close() }

// formatBDAddr renders a little-endian bdaddr_t as AA:BB:CC:DD:EE:FF.
func formatBDAddr(a [6]uint8) string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[5], a[4], a[3], a[2], a[1], a[0])
}
