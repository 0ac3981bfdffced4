package config

import (
	"fmt"

	"github.com/norasector/biostream/pkg/packet"
)

// Channel is one slot of the device packet.
type Channel struct {
	Name    string `yaml:"name"`
	Width   uint8  `yaml:"width"`
	Enabled bool   `yaml:"enabled"`
}

// DefaultChannels is the slot layout of the device firmware, all disabled.
func DefaultChannels() []Channel {
	chans := []Channel{
		{Name: "PacketCount", Width: 1},
		{Name: "TimeStamp", Width: 3},
		{Name: "LeadOff_Status1", Width: 3},
		{Name: "LeadOff_Status2", Width: 3},
	}
	for chip := 1; chip <= 2; chip++ {
		for eeg := 0; eeg < 8; eeg++ {
			chans = append(chans, Channel{Name: fmt.Sprintf("EEG%dchip%d", eeg, chip), Width: 3})
		}
	}
	return append(chans,
		Channel{Name: "ACCX", Width: 2},
		Channel{Name: "ACCY", Width: 2},
		Channel{Name: "ACCZ", Width: 2},
		Channel{Name: "CheckSumm", Width: 1},
	)
}

// Default published slots: the EEG and accelerometer channels.
const (
	DefaultWindowLow  = 4
	DefaultWindowHigh = 22
)

type Packet struct {
	// Channels replaces the default layout; it must list all 24 slots.
	Channels []Channel `yaml:"channels"`
	// Enabled switches on default layout channels by name.
	Enabled      []string `yaml:"enabled"`
	ExpectedSize int      `yaml:"expected_size"`
	Window       struct {
		Low  *int `yaml:"low"`
		High *int `yaml:"high"`
	} `yaml:"window"`
}

// Layout is the resolved, validated packet description for a session.
type Layout struct {
	Config packet.Config
	Window packet.Window
	// Labels names each channel of a published sample.
	Labels []string
}

func (p Packet) channels() ([]Channel, error) {
	if len(p.Channels) > 0 {
		if len(p.Enabled) > 0 {
			return nil, fmt.Errorf("set either channels or enabled, not both")
		}
		return p.Channels, nil
	}

	chans := DefaultChannels()
	index := make(map[string]int, len(chans))
	for i, ch := range chans {
		index[ch.Name] = i
	}
	for _, name := range p.Enabled {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("unknown channel %q", name)
		}
		chans[i].Enabled = true
	}
	return chans, nil
}

// Layout resolves the channel list and window, and checks the result against
// ExpectedSize when one is configured.
func (p Packet) Layout() (Layout, error) {
	chans, err := p.channels()
	if err != nil {
		return Layout{}, err
	}
	lo, hi := p.windowBounds()
	layout, err := BuildLayout(chans, lo, hi)
	if err != nil {
		return Layout{}, err
	}
	if err := layout.Config.CheckSize(p.ExpectedSize); err != nil {
		return Layout{}, err
	}
	return layout, nil
}

func (p Packet) windowBounds() (lo, hi int) {
	lo, hi = DefaultWindowLow, DefaultWindowHigh
	if p.Window.Low != nil {
		lo = *p.Window.Low
	}
	if p.Window.High != nil {
		hi = *p.Window.High
	}
	return lo, hi
}

// BuildLayout turns named channels into the width array the decoder runs on,
// and checks the packet invariants.
func BuildLayout(chans []Channel, lo, hi int) (Layout, error) {
	widths := make([]uint8, len(chans))
	for i, ch := range chans {
		if ch.Enabled {
			widths[i] = ch.Width
		}
	}
	cfg, err := packet.NewConfig(widths)
	if err != nil {
		return Layout{}, err
	}
	window, err := packet.NewWindow(cfg, lo, hi)
	if err != nil {
		return Layout{}, err
	}

	labels := make([]string, 0, window.Count)
	for _, slot := range window.Slots(cfg) {
		labels = append(labels, chans[slot].Name)
	}
	return Layout{Config: cfg, Window: window, Labels: labels}, nil
}
