package viz

import (
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"

	"github.com/norasector/biostream/pkg/dsp/window"
)

// MixAverage is the weight of the newest spectrum in the running average.
const MixAverage = 0.10

// SpectrumPlotter shows the averaged power spectrum of one channel.
type SpectrumPlotter struct {
	mu           sync.Mutex
	buf          []float64
	len          int
	sampleRate   float64
	win          []float64
	gain         float64
	fft          *fourier.FFT
	averagePower []float64
	name         string
	plotOptions  []PlotOptions
}

// NewSpectrumPlotter takes the FFT length, the channel sample rate (zero
// plots frequency in cycles per sample) and the taper to apply.
func NewSpectrumPlotter(name string, length int, sampleRate float64, fn window.Func) *SpectrumPlotter {
	if fn == nil {
		fn = window.BlackmanWindow
	}
	if sampleRate <= 0 {
		sampleRate = 1
	}
	win := fn(length)
	return &SpectrumPlotter{
		buf:          make([]float64, 0, length),
		len:          length,
		sampleRate:   sampleRate,
		win:          win,
		gain:         window.CoherentGain(win),
		fft:          fourier.NewFFT(length),
		averagePower: make([]float64, length/2+1),
		name:         name,
	}
}

func (s *SpectrumPlotter) Name() string {
	return s.name
}

func (s *SpectrumPlotter) Append(values ...float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, values...)
	if len(s.buf) > s.len {
		s.buf = append(s.buf[:0], s.buf[len(s.buf)-s.len:]...)
	}
}

func (s *SpectrumPlotter) AddPlotOption(opt PlotOptions) {
	s.mu.Lock()
	s.plotOptions = append(s.plotOptions, opt)
	s.mu.Unlock()
}

// Update folds the current buffer into the running average and returns the
// averaged power in dB per frequency, DC excluded. It returns nil until the
// buffer holds a full FFT length.
func (s *SpectrumPlotter) Update() plotter.XYs {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) < s.len {
		return nil
	}

	var mean float64
	for _, v := range s.buf {
		mean += v
	}
	mean /= float64(s.len)

	data := make([]float64, s.len)
	for i, v := range s.buf {
		data[i] = (v - mean) * s.win[i]
	}
	coeffs := s.fft.Coefficients(nil, data)

	norm := s.gain * float64(s.len)
	ret := make(plotter.XYs, 0, len(coeffs)-1)
	for i := 1; i < len(coeffs); i++ {
		mag := cmplx.Abs(coeffs[i]) / norm
		s.averagePower[i] = ((1.0 - MixAverage) * s.averagePower[i]) + (MixAverage * mag)
		power := s.averagePower[i]
		if power < 1e-12 {
			power = 1e-12
		}
		ret = append(ret, plotter.XY{
			X: s.fft.Freq(i) * s.sampleRate,
			Y: 20 * math.Log10(power),
		})
	}
	return ret
}

func (s *SpectrumPlotter) GetImage() *ImageContainer {
	xys := s.Update()
	if xys == nil {
		return nil
	}
	s.mu.Lock()
	opts := append([]PlotOptions(nil), s.plotOptions...)
	s.mu.Unlock()

	p := plotWithDefaults()
	p.Title.Text = s.name
	p.Y.Label.Text = "Power (dB)"
	p.X.Label.Text = "Frequency"
	for _, opt := range opts {
		opt(p)
	}
	p.Add(plotter.NewGrid())

	if err := plotutil.AddLines(p, "power", xys); err != nil {
		return nil
	}
	img, err := renderPNG(s.name, p)
	if err != nil {
		return nil
	}
	return img
}
