package packet

// Sink receives each windowed sample in arrival order. The slice is owned by
// the sink.
type Sink func(sample []int32)

// DiagnosticFunc observes every resync decision.
type DiagnosticFunc func(ScanResult)

// Stats counts pump activity since construction.
type Stats struct {
	BytesReceived  uint64 `json:"bytes_received"`
	Samples        uint64 `json:"samples"`
	Noise          uint64 `json:"noise"`
	LengthMismatch uint64 `json:"length_mismatch"`
	Runaway        uint64 `json:"runaway"`
	Unpaired       uint64 `json:"unpaired"`
	Discarded      uint64 `json:"discarded_bytes"`
}

// Pump drives the scanner, decoder and window over an accumulating buffer.
// It is not safe for concurrent use; one goroutine must own it.
type Pump struct {
	cfg     Config
	window  Window
	scanner *Scanner
	buf     Buffer
	frame   []int32
	sink    Sink
	diag    DiagnosticFunc
	stats   Stats
}

type PumpOption func(p *Pump)

func WithDiagnostics(fn DiagnosticFunc) PumpOption {
	return func(p *Pump) {
		p.diag = fn
	}
}

func NewPump(cfg Config, window Window, sink Sink, opts ...PumpOption) *Pump {
	p := &Pump{
		cfg:     cfg,
		window:  window,
		scanner: NewScanner(cfg),
		frame:   make([]int32, 0, cfg.ActiveChannelCount()),
		sink:    sink,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Receive appends a transport chunk and emits every complete packet it can.
// The chunk is buffered no faster than the scanner's runaway bound allows, so
// a read that starts mid-packet costs only the partial head.
func (p *Pump) Receive(chunk []byte) {
	p.stats.BytesReceived += uint64(len(chunk))

	for len(chunk) > 0 {
		n := p.scanner.Capacity() - p.buf.Len()
		if n < 1 {
			n = 1
		}
		if n > len(chunk) {
			n = len(chunk)
		}
		p.buf.Append(chunk[:n])
		chunk = chunk[n:]
		p.drain()
	}
}

func (p *Pump) drain() {
	for p.buf.Len() >= p.scanner.MinBuffered() {
		res := p.scanner.Scan(&p.buf)
		switch res.Status {
		case Candidate:
			p.frame = Decode(p.cfg, p.buf.Bytes()[res.Start:res.End], p.frame)
			sample := p.window.Project(p.frame)
			p.buf.Discard(res.End)
			p.stats.Samples++
			if p.sink != nil {
				p.sink(sample)
			}
		case Resync:
			p.countResync(res)
			if p.diag != nil {
				p.diag(res)
			}
		default:
			return
		}
	}
}

func (p *Pump) countResync(res ScanResult) {
	p.stats.Discarded += uint64(res.Discarded)
	switch res.Reason {
	case ReasonNoise:
		p.stats.Noise++
	case ReasonLengthMismatch:
		p.stats.LengthMismatch++
	case ReasonRunaway:
		p.stats.Runaway++
	case ReasonUnpaired:
		p.stats.Unpaired++
	}
}

func (p *Pump) Stats() Stats {
	return p.stats
}

// Buffered reports how many undecoded bytes are held.
func (p *Pump) Buffered() int {
	return p.buf.Len()
}

// Reset drops any partial packet without emitting it.
func (p *Pump) Reset() {
	p.buf.Reset()
}
