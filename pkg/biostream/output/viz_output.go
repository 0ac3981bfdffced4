package output

import (
	"context"

	"github.com/norasector/biostream/pkg/dsp/window"
	"github.com/norasector/biostream/pkg/types"
	"github.com/norasector/biostream/pkg/viz"
)

// VizOutput feeds each channel of a sample into a time plot and a spectrum
// plot registered on the viz server under the channel label.
type VizOutput struct {
	recvChan chan *types.TaggedSample
	time     []*viz.TimeDomainPlotter
	spectra  []*viz.SpectrumPlotter
}

// NewVizOutput keeps history samples per channel. The spectrum uses the same
// length and is scaled by sampleRate when it is known.
func NewVizOutput(server *viz.Server, labels []string, history int, sampleRate float64, fn window.Func) *VizOutput {
	v := &VizOutput{
		recvChan: make(chan *types.TaggedSample, receiveChannels),
	}
	for _, label := range labels {
		tp := viz.NewTimeDomainPlotter(label+" time", history)
		sp := viz.NewSpectrumPlotter(label+" spectrum", history, sampleRate, fn)
		server.Register(label, tp)
		server.Register(label, sp)
		v.time = append(v.time, tp)
		v.spectra = append(v.spectra, sp)
	}
	return v
}

func (v *VizOutput) Receive() chan<- *types.TaggedSample {
	return v.recvChan
}

func (v *VizOutput) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample := <-v.recvChan:
			for i, value := range sample.Values {
				if i >= len(v.time) {
					break
				}
				v.time[i].Append(float64(value))
				v.spectra[i].Append(float64(value))
			}
		}
	}
}
