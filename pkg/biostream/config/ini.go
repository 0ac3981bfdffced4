package config

import (
	"fmt"
	"strconv"

	"gopkg.in/ini.v1"

	"github.com/norasector/biostream/pkg/biostream/device/serialport"
)

// Legacy acquisition setups describe the link and the packet in two INI
// files written by a Qt settings store. Keys live either at the top level or
// in the [General] section Qt writes them to.

var (
	iniDataBits = map[string]int{"Data5": 5, "Data6": 6, "Data7": 7, "Data8": 8}
	iniParity   = map[string]string{
		"NoParity":    "N",
		"EvenParity":  "E",
		"OddParity":   "O",
		"MarkParity":  "M",
		"SpaceParity": "S",
	}
	iniStopBits    = map[string]string{"OneStop": "1", "OneAndHalfStop": "1.5", "TwoStop": "2"}
	iniFlowControl = map[string]string{"NoFlowControl": "none", "HardwareControl": "hardware", "SoftwareControl": "software"}
)

func loadINI(path string) (func(string) (*ini.Key, bool), error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	sections := []*ini.Section{f.Section("General"), f.Section(ini.DefaultSection)}
	return func(name string) (*ini.Key, bool) {
		for _, sec := range sections {
			if sec.HasKey(name) {
				return sec.Key(name), true
			}
		}
		return nil, false
	}, nil
}

// LoadPortINI reads PortName, BaudRate, DataBits, Parity, StopBits and
// FlowControl. Every key is required.
func LoadPortINI(path string) (serialport.Options, error) {
	var opts serialport.Options
	lookup, err := loadINI(path)
	if err != nil {
		return opts, err
	}

	value := func(name string) (string, error) {
		key, ok := lookup(name)
		if !ok {
			return "", fmt.Errorf("%s: missing %s", path, name)
		}
		return key.String(), nil
	}
	enum := func(name string, table map[string]string) (string, error) {
		v, err := value(name)
		if err != nil {
			return "", err
		}
		mapped, ok := table[v]
		if !ok {
			return "", fmt.Errorf("%s: unsupported %s %q", path, name, v)
		}
		return mapped, nil
	}

	if opts.Port, err = value("PortName"); err != nil {
		return opts, err
	}
	baud, err := value("BaudRate")
	if err != nil {
		return opts, err
	}
	if opts.BaudRate, err = strconv.Atoi(baud); err != nil {
		return opts, fmt.Errorf("%s: BaudRate %q: %w", path, baud, err)
	}

	bits, err := value("DataBits")
	if err != nil {
		return opts, err
	}
	var ok bool
	if opts.DataBits, ok = iniDataBits[bits]; !ok {
		return opts, fmt.Errorf("%s: unsupported DataBits %q", path, bits)
	}
	if opts.Parity, err = enum("Parity", iniParity); err != nil {
		return opts, err
	}
	if opts.StopBits, err = enum("StopBits", iniStopBits); err != nil {
		return opts, err
	}
	if opts.FlowControl, err = enum("FlowControl", iniFlowControl); err != nil {
		return opts, err
	}

	if _, err := opts.Normalize(); err != nil {
		return opts, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}

// LoadPacketINI enables default layout channels from boolean keys named after
// each channel. Missing keys leave the channel disabled.
func LoadPacketINI(path string) ([]Channel, error) {
	lookup, err := loadINI(path)
	if err != nil {
		return nil, err
	}
	chans := DefaultChannels()
	for i := range chans {
		if key, ok := lookup(chans[i].Name); ok {
			chans[i].Enabled = key.MustBool(false)
		}
	}
	return chans, nil
}
