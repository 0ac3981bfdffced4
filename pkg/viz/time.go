package viz

import (
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
)

type PlotType int

const (
	PlotTypeDefault PlotType = iota
	PlotTypeScatter
	PlotTypeLines
)

// TimeDomainPlotter keeps the most recent size values of one channel.
type TimeDomainPlotter struct {
	mu          sync.Mutex
	buf         []float64
	size        int
	name        string
	plotFunc    func(*plot.Plot, ...interface{}) error
	plotOptions []PlotOptions
}

func NewTimeDomainPlotter(name string, size int) *TimeDomainPlotter {
	return &TimeDomainPlotter{
		buf:      make([]float64, 0, size),
		size:     size,
		name:     name,
		plotFunc: plotutil.AddLines,
	}
}

func (t *TimeDomainPlotter) Name() string {
	return t.name
}

func (t *TimeDomainPlotter) SetPlotType(tp PlotType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch tp {
	case PlotTypeScatter:
		t.plotFunc = plotutil.AddScatters
	default:
		t.plotFunc = plotutil.AddLines
	}
}

func (t *TimeDomainPlotter) Append(values ...float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, values...)
	if len(t.buf) > t.size {
		t.buf = append(t.buf[:0], t.buf[len(t.buf)-t.size:]...)
	}
}

// Values returns a copy of the buffered history, oldest first.
func (t *TimeDomainPlotter) Values() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]float64(nil), t.buf...)
}

func (t *TimeDomainPlotter) AddPlotOption(opt PlotOptions) {
	t.mu.Lock()
	t.plotOptions = append(t.plotOptions, opt)
	t.mu.Unlock()
}

// GetImage returns nil until at least two values have arrived.
func (t *TimeDomainPlotter) GetImage() *ImageContainer {
	t.mu.Lock()
	if len(t.buf) < 2 {
		t.mu.Unlock()
		return nil
	}
	xys := make(plotter.XYs, len(t.buf))
	for i, v := range t.buf {
		xys[i] = plotter.XY{X: float64(i), Y: v}
	}
	opts := append([]PlotOptions(nil), t.plotOptions...)
	plotFunc := t.plotFunc
	t.mu.Unlock()

	p := plotWithDefaults()
	p.Title.Text = t.name
	p.Y.Label.Text = "Amplitude"
	p.X.Label.Text = "sample"
	for _, opt := range opts {
		opt(p)
	}
	p.Add(plotter.NewGrid())

	if err := plotFunc(p, t.name, xys); err != nil {
		return nil
	}
	img, err := renderPNG(t.name, p)
	if err != nil {
		return nil
	}
	return img
}
