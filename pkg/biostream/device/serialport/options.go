package serialport

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Options describes the serial connection to the acquisition device.
type Options struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	DataBits    int           `yaml:"data_bits"`
	Parity      string        `yaml:"parity"`
	StopBits    string        `yaml:"stop_bits"`
	FlowControl string        `yaml:"flow_control"`
	ReadSize    int           `yaml:"read_size"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

const defaultBaudRate = 115200

// Normalize validates the options and applies defaults for unset values.
// Parity becomes one of N, E, O, M, S; stop bits one of 1, 1.5, 2; flow
// control one of none, hardware. The serial driver cannot enforce RTS/CTS
// handshaking, so "hardware" only raises the modem lines at open; see
// FlowControlEnforced.
func (o Options) Normalize() (Options, error) {
	opts := o

	if strings.TrimSpace(opts.Port) == "" {
		return opts, fmt.Errorf("serial port name is required")
	}
	if opts.BaudRate <= 0 {
		opts.BaudRate = defaultBaudRate
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	switch strings.ToUpper(strings.TrimSpace(opts.Parity)) {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	case "M", "MARK":
		opts.Parity = "M"
	case "S", "SPACE":
		opts.Parity = "S"
	default:
		return opts, fmt.Errorf("unsupported parity %q", o.Parity)
	}

	switch stop := strings.TrimSpace(opts.StopBits); stop {
	case "", "1":
		opts.StopBits = "1"
	case "1.5", "2":
		opts.StopBits = stop
	default:
		return opts, fmt.Errorf("unsupported stop bits %q: expected 1, 1.5 or 2", o.StopBits)
	}

	switch strings.ToLower(strings.TrimSpace(opts.FlowControl)) {
	case "", "none":
		opts.FlowControl = "none"
	case "hardware", "rtscts":
		opts.FlowControl = "hardware"
	default:
		return opts, fmt.Errorf("unsupported flow control %q: expected none or hardware", o.FlowControl)
	}

	return opts, nil
}

// Mode converts the options into the structure go.bug.st/serial opens ports with.
func (o Options) Mode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
	}

	switch opts.Parity {
	case "N":
		mode.Parity = serial.NoParity
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	case "M":
		mode.Parity = serial.MarkParity
	case "S":
		mode.Parity = serial.SpaceParity
	}

	switch opts.StopBits {
	case "1":
		mode.StopBits = serial.OneStopBit
	case "1.5":
		mode.StopBits = serial.OnePointFiveStopBits
	case "2":
		mode.StopBits = serial.TwoStopBits
	}

	if opts.FlowControl == "hardware" {
		// raise RTS and DTR at open; no handshaking happens after that
		mode.InitialStatusBits = &serial.ModemOutputBits{RTS: true, DTR: true}
	}

	return mode, nil
}

// FlowControlEnforced reports whether the requested flow control is actually
// carried out by the driver. Only "none" is.
func (o Options) FlowControlEnforced() bool {
	opts, err := o.Normalize()
	return err == nil && opts.FlowControl == "none"
}
