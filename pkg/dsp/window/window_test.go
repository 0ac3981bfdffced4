package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowShapes(t *testing.T) {
	tests := []struct {
		name    string
		fn      Func
		edge    float64
		gain    float64
		gainTol float64
	}{
		{"hamming", HammingWindow, 0.08, 0.54, 0.01},
		{"hann", HannWindow, 0, 0.5, 0.01},
		{"blackman", BlackmanWindow, 0, 0.42, 0.01},
		{"rectangular", RectangularWindow, 1, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.fn(513)
			require.Len(t, w, 513)
			assert.InDelta(t, tt.edge, w[0], 1e-9)
			assert.InDelta(t, tt.edge, w[512], 1e-9)
			assert.InDelta(t, 1, w[256], 1e-9)
			assert.InDelta(t, tt.gain, CoherentGain(w), tt.gainTol)
			for i := 0; i < 256; i++ {
				assert.InDelta(t, w[i], w[512-i], 1e-9)
			}
		})
	}
}

func TestByName(t *testing.T) {
	fn, err := ByName("")
	require.NoError(t, err)
	assert.Equal(t, BlackmanWindow(16), fn(16))

	fn, err = ByName("Blackman-Harris")
	require.NoError(t, err)
	assert.Equal(t, BlackmanHarrisWindow(16, 92), fn(16))

	_, err = ByName("kaiser")
	assert.Error(t, err)

	assert.Equal(t, []float64{1}, HannWindow(1))
	assert.Panics(t, func() { BlackmanHarrisWindow(16, 50) })
}
