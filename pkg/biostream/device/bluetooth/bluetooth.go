// Package bluetooth connects to the acquisition device over an RFCOMM
// (Bluetooth serial port profile) socket.
package bluetooth

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/norasector/biostream/pkg/biostream/device"
)

type Options struct {
	Address     string        `yaml:"address"`
	Channel     uint8         `yaml:"channel"`
	ReadSize    int           `yaml:"read_size"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// ParseAddress converts "AA:BB:CC:DD:EE:FF" into the little endian byte order
// the kernel expects in a bdaddr.
func ParseAddress(s string) ([6]uint8, error) {
	var addr [6]uint8
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 6 {
		return addr, fmt.Errorf("bluetooth address %q: want 6 colon separated octets", s)
	}
	for i, part := range parts {
		b, err := hex.DecodeString(part)
		if err != nil || len(b) != 1 {
			return addr, fmt.Errorf("bluetooth address %q: bad octet %q", s, part)
		}
		addr[5-i] = b[0]
	}
	return addr, nil
}

// Dial connects to the device and wraps the socket as a device.
func Dial(opts Options, linkOpts ...device.LinkOption) (*device.LinkDevice, error) {
	addr, err := ParseAddress(opts.Address)
	if err != nil {
		return nil, err
	}
	channel := opts.Channel
	if channel == 0 {
		channel = 1
	}

	conn, err := dialRFCOMM(addr, channel)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s channel %d: %w", opts.Address, channel, err)
	}

	all := []device.LinkOption{
		device.WithReadSize(opts.ReadSize),
		device.WithPollInterval(opts.ReadTimeout),
	}
	all = append(all, linkOpts...)

	dev, err := device.NewLinkDevice("bluetooth "+opts.Address, conn, all...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return dev, nil
}
