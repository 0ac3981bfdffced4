// Package window provides the taper functions applied to a block of samples
// before a spectrum is taken.
package window

import (
	"fmt"
	"math"
	"strings"
)

type Func func(n int) []float64

type Type int

const (
	Hamming Type = iota
	Hann
	Blackman
	BlackmanHarris
	Rectangular
)

var (
	windowNames = map[string]Type{
		"hamming":         Hamming,
		"hann":            Hann,
		"blackman":        Blackman,
		"blackman-harris": BlackmanHarris,
		"rectangular":     Rectangular,
		"none":            Rectangular,
	}
	windowFuncs = map[Type]Func{
		Hamming:        HammingWindow,
		Hann:           HannWindow,
		Blackman:       BlackmanWindow,
		BlackmanHarris: func(n int) []float64 { return BlackmanHarrisWindow(n, 92) },
		Rectangular:    RectangularWindow,
	}
)

// ByName looks a window up by its configuration name. The empty name selects
// Blackman.
func ByName(name string) (Func, error) {
	if name == "" {
		return BlackmanWindow, nil
	}
	tp, ok := windowNames[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown window %q", name)
	}
	return windowFuncs[tp], nil
}

func cosWindow3(n int, c0, c1, c2 float64) []float64 {
	ret := make([]float64, n)
	if n == 1 {
		ret[0] = 1
		return ret
	}
	M := float64(n - 1)
	for i := 0; i < n; i++ {
		fi := float64(i)
		ret[i] = c0 - c1*math.Cos((2*math.Pi*fi)/M) +
			c2*math.Cos((4*math.Pi*fi)/M)
	}
	return ret
}

func cosWindow4(n int, c0, c1, c2, c3 float64) []float64 {
	ret := make([]float64, n)
	if n == 1 {
		ret[0] = 1
		return ret
	}
	M := float64(n - 1)
	for i := 0; i < n; i++ {
		fi := float64(i)
		ret[i] = c0 - c1*math.Cos((2*math.Pi*fi)/M) +
			c2*math.Cos((4*math.Pi*fi)/M) -
			c3*math.Cos((6*math.Pi*fi)/M)
	}
	return ret
}

// BlackmanHarrisWindow supports attenuations of 61, 67, 74 and 92 dB.
func BlackmanHarrisWindow(n, atten int) []float64 {
	switch atten {
	case 61:
		return cosWindow3(n, 0.42323, 0.49755, 0.07922)
	case 67:
		return cosWindow3(n, 0.44959, 0.49364, 0.05677)
	case 74:
		return cosWindow4(n, 0.40271, 0.49703, 0.09392, 0.00183)
	case 92:
		return cosWindow4(n, 0.35875, 0.48829, 0.14128, 0.01168)
	default:
		panic(fmt.Errorf("blackman harris window must have attenuation value 61, 67, 74, 92, got %d", atten))
	}
}

func BlackmanWindow(n int) []float64 {
	return cosWindow3(n, 0.42, 0.5, 0.08)
}

func HammingWindow(n int) []float64 {
	return cosWindow3(n, 0.54, 0.46, 0)
}

func HannWindow(n int) []float64 {
	return cosWindow3(n, 0.5, 0.5, 0)
}

func RectangularWindow(n int) []float64 {
	ret := make([]float64, n)
	for i := range ret {
		ret[i] = 1
	}
	return ret
}

// CoherentGain is the mean of the window, used to normalise spectrum
// magnitudes.
func CoherentGain(w []float64) float64 {
	if len(w) == 0 {
		return 0
	}
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum / float64(len(w))
}
