package packet

import (
	"errors"
	"fmt"
)

const (
	// SlotCount is the number of logical channel positions in a device packet.
	SlotCount = 24
	// MaxSlotWidth is the widest field the device emits, in bytes.
	MaxSlotWidth = 3

	StartMarker byte = 0xA0

	// framingOverhead covers the start marker and the first end marker byte.
	framingOverhead = 2
)

// EndMarker terminates every packet. Only its first byte counts towards PacketSize.
var EndMarker = []byte{0xC0, 0x0D, 0x0A}

var (
	ErrSlotCount   = errors.New("packet config must describe exactly 24 slots")
	ErrSlotWidth   = errors.New("slot width must be between 0 and 3 bytes")
	ErrPacketSize  = errors.New("packet size does not match channel widths")
	ErrWindowRange = errors.New("window bounds outside slot range")
	ErrEmptyWindow = errors.New("window contains no active channels")
)

// Config holds the byte width of each slot. A zero width disables the slot.
type Config [SlotCount]uint8

func NewConfig(widths []uint8) (Config, error) {
	var cfg Config
	if len(widths) != SlotCount {
		return cfg, fmt.Errorf("%w: got %d", ErrSlotCount, len(widths))
	}
	for i, w := range widths {
		if w > MaxSlotWidth {
			return cfg, fmt.Errorf("%w: slot %d has width %d", ErrSlotWidth, i, w)
		}
		cfg[i] = w
	}
	return cfg, nil
}

// CheckSize verifies the configured widths against the packet size the device
// is expected to emit. Zero skips the check.
func (c Config) CheckSize(expected int) error {
	if expected == 0 {
		return nil
	}
	if got := c.PacketSize(); got != expected {
		return fmt.Errorf("%w: widths give %d bytes, expected %d", ErrPacketSize, got, expected)
	}
	return nil
}

// PacketSize is the number of bytes from the start marker through the first
// end marker byte.
func (c Config) PacketSize() int {
	size := framingOverhead
	for _, w := range c {
		size += int(w)
	}
	return size
}

func (c Config) ActiveChannelCount() int {
	count := 0
	for _, w := range c {
		if w > 0 {
			count++
		}
	}
	return count
}

// WindowedChannelCount returns the number of active slots in [lo, hi] and the
// number of active slots before lo. Callers must pass bounds inside the slot
// range; NewWindow enforces that.
func (c Config) WindowedChannelCount(lo, hi int) (count, offset int) {
	for i, w := range c {
		if w == 0 {
			continue
		}
		switch {
		case i < lo:
			offset++
		case i <= hi:
			count++
		}
	}
	return count, offset
}
