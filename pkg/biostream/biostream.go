package biostream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/norasector/biostream/pkg/biostream/device"
	"github.com/norasector/biostream/pkg/biostream/discovery"
	"github.com/norasector/biostream/pkg/frame"
	"github.com/norasector/biostream/pkg/packet"
	"github.com/norasector/biostream/pkg/types"
	"github.com/norasector/biostream/pkg/util"
	"github.com/norasector/biostream/pkg/viz"
)

// Biostream runs one acquisition session: device bytes are framed and decoded
// by a single pump goroutine and every windowed sample is fanned out to the
// configured outputs.
type Biostream struct {
	device       device.Device
	opts         Options
	writeAPI     api.WriteAPI
	rawChunkChan chan []byte
	vizServer    *viz.Server
	logger       zerolog.Logger
	pump         *packet.Pump

	// owned by the pump goroutine
	sequence     uint64
	decodeMicros int64

	statusMu sync.Mutex
	status   Status
	skipped  atomic.Uint64

	mu       sync.Mutex
	cancel   context.CancelFunc
	stopping atomic.Bool
}

type BiostreamOption func(b *Biostream) error

func WithInfluxDB(influxClient api.WriteAPI) BiostreamOption {
	return func(b *Biostream) error {
		b.writeAPI = influxClient
		return nil
	}
}

func WithVizServer(vizServer *viz.Server) BiostreamOption {
	return func(b *Biostream) error {
		b.vizServer = vizServer
		return nil
	}
}

func WithLogger(logger zerolog.Logger) BiostreamOption {
	return func(b *Biostream) error {
		b.logger = logger
		return nil
	}
}

func NewBiostream(dev device.Device, options Options, opts ...BiostreamOption) (*Biostream, error) {
	b := &Biostream{
		device:       dev,
		opts:         options,
		rawChunkChan: make(chan []byte, rawChunkQueue),
		writeAPI:     &util.DiscardWriteAPI{}, // overwritten with option
		logger:       log.Logger,
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	if b.opts.Layout.Window.Count == 0 {
		return nil, fmt.Errorf("layout publishes no channels: %w", packet.ErrEmptyWindow)
	}
	if len(b.opts.InitScript) > 0 {
		if _, ok := dev.(device.Commander); !ok {
			return nil, fmt.Errorf("device does not accept commands, cannot run init script")
		}
	}
	if b.opts.MetricsInterval <= 0 {
		b.opts.MetricsInterval = defaultMetricsInterval
	}
	if b.opts.DrainTimeout <= 0 {
		b.opts.DrainTimeout = defaultDrainTimeout
	}

	var pumpOpts []packet.PumpOption
	if b.opts.Diagnostics {
		pumpOpts = append(pumpOpts, packet.WithDiagnostics(b.logResync))
	}
	b.pump = packet.NewPump(b.opts.Layout.Config, b.opts.Layout.Window, b.emit, pumpOpts...)
	b.status.Stream = b.opts.Stream

	if b.vizServer != nil {
		b.vizServer.SetStatusFunc(func() interface{} { return b.Status() })
	}
	return b, nil
}

// Stop ends the session. Start returns nil once everything has wound down.
func (b *Biostream) Stop() error {
	b.stopping.Store(true)
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()
	return b.device.Stop()
}

// Start runs the init script and then the session. It returns nil when the
// device input runs out or Stop is called.
func (b *Biostream) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()

	if err := b.runInitScript(ctx); err != nil {
		return err
	}

	b.statusMu.Lock()
	b.status.Started = time.Now()
	b.statusMu.Unlock()

	eg, ctx := errgroup.WithContext(ctx)

	var exhausted atomic.Bool
	eg.Go(func() error {
		err := b.device.Start(ctx, b.rawChunkChan)
		if err == nil || errors.Is(err, io.EOF) {
			b.logger.Info().Msg("device input exhausted")
			exhausted.Store(true)
			err = nil
		}
		close(b.rawChunkChan)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	})

	eg.Go(func() error {
		proc := frame.NewChunkProcessor(b.rawChunkChan, b, frame.WithChunkHook(b.publishStats))
		if err := proc.Start(ctx); err != nil {
			return err
		}
		if !exhausted.Load() {
			// the device failed or was cancelled; its goroutine reports why
			return nil
		}
		// let the outputs catch up, then wind the session down
		b.drainOutputs(ctx)
		b.stopping.Store(true)
		cancel()
		return nil
	})

	if b.vizServer != nil {
		eg.Go(func() error {
			return b.vizServer.Run(ctx)
		})
	}

	if b.opts.Advertise {
		eg.Go(func() error {
			return discovery.Advertise(ctx, b.opts.Stream, b.opts.AdvertisePort)
		})
	}

	eg.Go(func() error {
		return b.reportMetrics(ctx)
	})

	for _, output := range b.opts.Outputs {
		thisOutput := output
		eg.Go(func() error {
			return thisOutput.Start(ctx)
		})
	}

	b.logger.Info().
		Int("packet_size", b.opts.Layout.Config.PacketSize()).
		Int("channels", b.opts.Layout.Window.Count).
		Strs("labels", b.opts.Layout.Labels).
		Msg("Starting")

	err := eg.Wait()
	if b.stopping.Load() && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (b *Biostream) runInitScript(ctx context.Context) error {
	if len(b.opts.InitScript) == 0 {
		return nil
	}
	cmd := b.device.(device.Commander)

	b.logger.Info().Int("commands", len(b.opts.InitScript)).Msg("running init script")
	for i, line := range b.opts.InitScript {
		reply, err := cmd.SendCommand(ctx, []byte(line+b.opts.CommandSuffix))
		switch {
		case errors.Is(err, device.ErrNoResponse):
			b.logger.Warn().Str("command", line).Msg("no reply to command")
		case err != nil:
			return fmt.Errorf("init script line %d %q: %w", i+1, line, err)
		default:
			b.logger.Info().Str("command", line).Str("reply", strings.TrimSpace(string(reply))).Msg("command sent")
		}
	}
	return nil
}

// Receive implements frame.Assembler.
func (b *Biostream) Receive(chunk []byte) {
	b.decodeMicros += util.TimeOperationMicroseconds(func() {
		b.pump.Receive(chunk)
	})
}

// emit tags a windowed sample and hands it to every output without waiting.
// Outputs share the sample and must not modify it.
func (b *Biostream) emit(values []int32) {
	b.sequence++
	sample := &types.TaggedSample{
		SourceID:  b.opts.Stream.SourceID,
		Sequence:  b.sequence,
		Timestamp: time.Now(),
		Values:    values,
	}

	var skippedOutputs uint64
	for _, output := range b.opts.Outputs {
		select {
		case output.Receive() <- sample:
			// We will not wait on blocked channels.
		default:
			skippedOutputs++
		}
	}
	if skippedOutputs > 0 {
		b.skipped.Add(skippedOutputs)
	}
}

func (b *Biostream) logResync(res packet.ScanResult) {
	b.logger.Debug().
		Str("reason", res.Reason.String()).
		Int("discarded", res.Discarded).
		Int("buffered", b.pump.Buffered()).
		Msg("resync")
}

func (b *Biostream) publishStats(int) {
	b.statusMu.Lock()
	b.status.Pump = b.pump.Stats()
	b.status.Buffered = b.pump.Buffered()
	b.status.DecodeMicros = b.decodeMicros
	b.statusMu.Unlock()
}

func (b *Biostream) Status() Status {
	b.statusMu.Lock()
	defer b.statusMu.Unlock()
	st := b.status
	st.SkippedOutputs = b.skipped.Load()
	return st
}

func (b *Biostream) drainOutputs(ctx context.Context) {
	deadline := time.Now().Add(b.opts.DrainTimeout)
	for time.Now().Before(deadline) {
		pending := 0
		for _, output := range b.opts.Outputs {
			pending += len(output.Receive())
		}
		if pending == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
	b.logger.Warn().Msg("outputs did not drain before shutdown")
}

func (b *Biostream) reportMetrics(ctx context.Context) error {
	ticker := time.NewTicker(b.opts.MetricsInterval)
	defer ticker.Stop()

	var last Status
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			st := b.Status()
			go b.writeAPI.WritePoint(influxdb2.NewPoint("biostream.pump",
				map[string]string{
					"stream":    st.Stream.Name,
					"source_id": st.Stream.SourceID,
				},
				map[string]interface{}{
					"bytes_received":  st.Pump.BytesReceived - last.Pump.BytesReceived,
					"samples":         st.Pump.Samples - last.Pump.Samples,
					"noise":           st.Pump.Noise - last.Pump.Noise,
					"length_mismatch": st.Pump.LengthMismatch - last.Pump.LengthMismatch,
					"runaway":         st.Pump.Runaway - last.Pump.Runaway,
					"unpaired":        st.Pump.Unpaired - last.Pump.Unpaired,
					"discarded_bytes": st.Pump.Discarded - last.Pump.Discarded,
					"skipped_outputs": st.SkippedOutputs - last.SkippedOutputs,
					"decode_us":       st.DecodeMicros - last.DecodeMicros,
					"buffered_bytes":  st.Buffered,
				}, now))
			last = st
		}
	}
}
