package serialport

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"

	"github.com/norasector/biostream/pkg/biostream/device"
)

// Open opens the serial port described by opts and wraps it as a device.
func Open(opts Options, linkOpts ...device.LinkOption) (*device.LinkDevice, error) {
	mode, err := opts.Mode()
	if err != nil {
		return nil, err
	}

	if !opts.FlowControlEnforced() {
		log.Warn().Str("port", opts.Port).Str("flow_control", opts.FlowControl).
			Msg("flow control is not supported by the serial driver, only RTS and DTR are raised at open")
	}

	port, err := serial.Open(opts.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", opts.Port, err)
	}

	all := []device.LinkOption{
		device.WithReadSize(opts.ReadSize),
		device.WithPollInterval(opts.ReadTimeout),
	}
	all = append(all, linkOpts...)

	dev, err := device.NewLinkDevice("serial "+opts.Port, port, all...)
	if err != nil {
		port.Close()
		return nil, err
	}
	return dev, nil
}

// Ports lists the serial ports present on this machine.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
