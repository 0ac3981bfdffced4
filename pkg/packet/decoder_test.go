package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodePacket builds a wire packet for cfg carrying one value per active slot.
func encodePacket(cfg Config, values []int32) []byte {
	pkt := []byte{StartMarker}
	i := 0
	for _, w := range cfg {
		if w == 0 {
			continue
		}
		v := uint32(values[i])
		for shift := int(w-1) * 8; shift >= 0; shift -= 8 {
			pkt = append(pkt, byte(v>>uint(shift)))
		}
		i++
	}
	return append(pkt, EndMarker...)
}

func TestSignExtend(t *testing.T) {
	tests := []struct {
		name  string
		raw   uint32
		width int
		want  int32
	}{
		{"3 byte most negative", 0x800000, 3, -8388608},
		{"3 byte most positive", 0x7FFFFF, 3, 8388607},
		{"3 byte minus one", 0xFFFFFF, 3, -1},
		{"2 byte negative", 0x8000, 2, -32768},
		{"2 byte positive", 0x7FFF, 2, 32767},
		{"1 byte minus one", 0xFF, 1, -1},
		{"1 byte positive", 0x7F, 1, 127},
		{"zero", 0, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SignExtend(tt.raw, tt.width))
		})
	}
}

func TestDecodeFields(t *testing.T) {
	cfg := widthsConfig(t, map[int]uint8{0: 3, 1: 3, 2: 1, 7: 2})
	pkt := []byte{
		StartMarker,
		0x80, 0x00, 0x00,
		0x7F, 0xFF, 0xFF,
		0xFF,
		0xFF, 0xFE,
		0xC0, 0x0D, 0x0A,
	}
	require.Len(t, pkt, cfg.PacketSize()+2)

	got := Decode(cfg, pkt, nil)
	assert.Equal(t, []int32{-8388608, 8388607, -1, -2}, got)
}

func TestDecodeReusesDestination(t *testing.T) {
	cfg := widthsConfig(t, map[int]uint8{0: 1, 1: 2})
	dst := make([]int32, 0, 2)

	first := Decode(cfg, encodePacket(cfg, []int32{5, -300}), dst)
	assert.Equal(t, []int32{5, -300}, first)

	second := Decode(cfg, encodePacket(cfg, []int32{-5, 300}), first)
	assert.Equal(t, []int32{-5, 300}, second)
	assert.Same(t, &first[0], &second[0])
}

func TestWindowProject(t *testing.T) {
	tests := []struct {
		name   string
		widths map[int]uint8
	}{
		{"ten contiguous", map[int]uint8{0: 3, 1: 3, 2: 3, 3: 3, 4: 3, 5: 3, 6: 3, 7: 3, 8: 3, 9: 3}},
		{"ten spread", map[int]uint8{1: 1, 3: 2, 4: 3, 5: 3, 6: 2, 8: 3, 12: 3, 15: 1, 20: 2, 23: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := widthsConfig(t, tt.widths)
			require.Equal(t, 10, cfg.ActiveChannelCount())

			values := make([]int32, 10)
			bySlot := map[int]int32{}
			idx := 0
			for slot, w := range cfg {
				if w == 0 {
					continue
				}
				values[idx] = int32(slot*10 - 50)
				bySlot[slot] = values[idx]
				idx++
			}

			window, err := NewWindow(cfg, 3, 6)
			require.NoError(t, err)

			frame := Decode(cfg, encodePacket(cfg, values), nil)
			sample := window.Project(frame)

			var want []int32
			for _, slot := range window.Slots(cfg) {
				want = append(want, bySlot[slot])
			}
			assert.Equal(t, want, sample)
			assert.Len(t, sample, window.Count)
		})
	}
}
