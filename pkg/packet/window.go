package packet

import "fmt"

// Window is the contiguous range of slots published as a sample.
type Window struct {
	Lo, Hi int
	Offset int
	Count  int
}

func NewWindow(cfg Config, lo, hi int) (Window, error) {
	if lo < 0 || hi >= SlotCount || lo > hi {
		return Window{}, fmt.Errorf("%w: [%d, %d]", ErrWindowRange, lo, hi)
	}
	count, offset := cfg.WindowedChannelCount(lo, hi)
	if count == 0 {
		return Window{}, fmt.Errorf("%w: [%d, %d]", ErrEmptyWindow, lo, hi)
	}
	return Window{Lo: lo, Hi: hi, Offset: offset, Count: count}, nil
}

// FullWindow publishes every active slot.
func FullWindow(cfg Config) (Window, error) {
	return NewWindow(cfg, 0, SlotCount-1)
}

// Project copies the windowed run out of a decoded frame.
func (w Window) Project(frame []int32) []int32 {
	sample := make([]int32, w.Count)
	copy(sample, frame[w.Offset:w.Offset+w.Count])
	return sample
}

// Slots lists the slot indexes that make up a projected sample, in order.
func (w Window) Slots(cfg Config) []int {
	slots := make([]int, 0, w.Count)
	for i := w.Lo; i <= w.Hi; i++ {
		if cfg[i] > 0 {
			slots = append(slots, i)
		}
	}
	return slots
}
