//go:build !linux

package bluetooth

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("RFCOMM sockets are only supported on linux")

type rfcommConn struct{}

func dialRFCOMM(addr [6]uint8, channel uint8) (*rfcommConn, error) {
	return nil, errUnsupported
}

func (c *rfcommConn) Read(p []byte) (int, error) { return 0, errUnsupported }
func (c *rfcommConn) Write(p []byte) (int, error) { return 0, errUnsupported }
func (c *rfcommConn) SetReadTimeout(d time.Duration) error { return errUnsupported }
func (c *rfcommConn) Close() error { return nil }
