package packet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noise(n int) []byte {
	return bytes.Repeat([]byte{0x11}, n)
}

func bufferOf(parts ...[]byte) *Buffer {
	var b Buffer
	for _, p := range parts {
		b.Append(p)
	}
	return &b
}

func TestScan(t *testing.T) {
	cfg := widthsConfig(t, map[int]uint8{0: 1, 1: 2, 2: 3})
	size := cfg.PacketSize()
	good := encodePacket(cfg, []int32{1, 2, 1})

	tests := []struct {
		name         string
		buf          *Buffer
		want         ScanResult
		wantBuffered int
	}{
		{
			name:         "empty buffer",
			buf:          bufferOf(),
			want:         ScanResult{Status: NeedMoreData},
			wantBuffered: 0,
		},
		{
			name:         "short partial packet is kept",
			buf:          bufferOf(good[:6]),
			want:         ScanResult{Status: NeedMoreData},
			wantBuffered: 6,
		},
		{
			name:         "well formed packet",
			buf:          bufferOf(good),
			want:         ScanResult{Status: Candidate, Start: 0, End: len(good)},
			wantBuffered: len(good),
		},
		{
			name:         "packet after noise",
			buf:          bufferOf(noise(4), good),
			want:         ScanResult{Status: Candidate, Start: 4, End: 4 + len(good)},
			wantBuffered: 4 + len(good),
		},
		{
			name:         "pure noise is cleared",
			buf:          bufferOf(noise(5*size + 1)),
			want:         ScanResult{Status: Resync, Reason: ReasonNoise, Discarded: 5*size + 1},
			wantBuffered: 0,
		},
		{
			name:         "short body drops through end marker",
			buf:          bufferOf([]byte{StartMarker, 1, 0, 2, 0, 0}, EndMarker, noise(3)),
			want:         ScanResult{Status: Resync, Reason: ReasonLengthMismatch, Start: 0, End: 9, Discarded: 9},
			wantBuffered: 3,
		},
		{
			name:         "lone end marker is dropped",
			buf:          bufferOf(noise(2), EndMarker, noise(6)),
			want:         ScanResult{Status: Resync, Reason: ReasonUnpaired, Discarded: 5},
			wantBuffered: 6,
		},
		{
			name:         "end before start keeps the start",
			buf:          bufferOf(noise(1), EndMarker, noise(2), good[:7]),
			want:         ScanResult{Status: Resync, Reason: ReasonUnpaired, Discarded: 6},
			wantBuffered: 7,
		},
		{
			name:         "start at head without end advances one byte",
			buf:          bufferOf([]byte{StartMarker}, noise(size+1)),
			want:         ScanResult{Status: Resync, Reason: ReasonUnpaired, Discarded: 1},
			wantBuffered: size + 1,
		},
		{
			name:         "unresolvable garbage beyond bound is cleared",
			buf:          bufferOf(EndMarker, noise(5*size), []byte{StartMarker}),
			want:         ScanResult{Status: Resync, Reason: ReasonRunaway, Discarded: 5*size + 4},
			wantBuffered: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScanner(cfg)
			got := s.Scan(tt.buf)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantBuffered, tt.buf.Len())
		})
	}
}

func TestScanEmptyIsIdempotent(t *testing.T) {
	cfg := widthsConfig(t, map[int]uint8{0: 3})
	s := NewScanner(cfg)
	var buf Buffer
	for i := 0; i < 2; i++ {
		assert.Equal(t, ScanResult{Status: NeedMoreData}, s.Scan(&buf))
		assert.Zero(t, buf.Len())
	}
}

func TestScanResyncAlwaysProgresses(t *testing.T) {
	cfg := widthsConfig(t, map[int]uint8{0: 2, 5: 3})
	s := NewScanner(cfg)

	// markers in every awkward position
	patterns := [][]byte{
		{StartMarker},
		EndMarker,
		{StartMarker, StartMarker},
		{0xC0, 0x0D},
		{0x0D, 0x0A, StartMarker},
	}
	for _, pattern := range patterns {
		var buf Buffer
		for buf.Len() < 4*cfg.PacketSize() {
			buf.Append(pattern)
			buf.Append(noise(1))
		}
		for buf.Len() >= s.MinBuffered() {
			before := buf.Len()
			res := s.Scan(&buf)
			require.NotEqual(t, NeedMoreData, res.Status)
			if res.Status == Candidate {
				buf.Discard(res.End)
			}
			require.Less(t, buf.Len(), before)
		}
	}
}
