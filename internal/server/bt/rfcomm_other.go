//go:build !linux

package bt

import (
	"errors"
	"runtime"
)

func listen(uint8) (listener, error) {
	return nil, errors.New("bluetooth RFCOMM is not supported on " + runtime.GOOS)
}
