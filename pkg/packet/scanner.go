package packet

import "bytes"

// runawayFactor bounds how many packets' worth of unresolvable bytes are kept
// while waiting for a start/end pair.
const runawayFactor = 5

type Status int

const (
	NeedMoreData Status = iota
	Resync
	Candidate
)

func (s Status) String() string {
	switch s {
	case NeedMoreData:
		return "need_more_data"
	case Resync:
		return "resync"
	case Candidate:
		return "candidate"
	default:
		return "unknown"
	}
}

// Reason explains why a resync discarded data.
type Reason int

const (
	ReasonNone Reason = iota
	// ReasonNoise means neither marker was present.
	ReasonNoise
	// ReasonLengthMismatch means a start/end pair enclosed the wrong number of bytes.
	ReasonLengthMismatch
	// ReasonRunaway means the buffer outgrew the garbage bound without a usable pair.
	ReasonRunaway
	// ReasonUnpaired means only one marker, or an end before a start, was found.
	ReasonUnpaired
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNoise:
		return "noise"
	case ReasonLengthMismatch:
		return "length_mismatch"
	case ReasonRunaway:
		return "runaway"
	case ReasonUnpaired:
		return "unpaired"
	default:
		return "unknown"
	}
}

// ScanResult describes one scanner decision. For a Candidate, Start and End
// bound the packet including the whole end marker (End is exclusive). For a
// Resync, Discarded is the number of bytes dropped from the buffer head.
type ScanResult struct {
	Status    Status
	Reason    Reason
	Start     int
	End       int
	Discarded int
}

type Scanner struct {
	size int
}

func NewScanner(cfg Config) *Scanner {
	return &Scanner{size: cfg.PacketSize()}
}

// MinBuffered is the smallest buffer the scanner will classify: one packet
// plus the two trailing end marker bytes.
func (s *Scanner) MinBuffered() int {
	return s.size + len(EndMarker) - 1
}

// Capacity is the largest buffer Scan holds on to before declaring a runaway.
func (s *Scanner) Capacity() int {
	return runawayFactor * s.size
}

// Scan classifies the buffer. Resync decisions trim buf in place and always
// remove a non-empty prefix; candidates leave buf untouched.
func (s *Scanner) Scan(buf *Buffer) ScanResult {
	data := buf.Bytes()
	if len(data) < s.MinBuffered() {
		return ScanResult{Status: NeedMoreData}
	}

	start := bytes.IndexByte(data, StartMarker)
	end := bytes.Index(data, EndMarker)

	if start < 0 && end < 0 {
		n := len(data)
		buf.Reset()
		return ScanResult{Status: Resync, Reason: ReasonNoise, Discarded: n}
	}

	if start >= 0 && end > start {
		stop := end + len(EndMarker)
		if end-start+1 != s.size {
			buf.Discard(stop)
			return ScanResult{Status: Resync, Reason: ReasonLengthMismatch, Start: start, End: stop, Discarded: stop}
		}
		return ScanResult{Status: Candidate, Start: start, End: stop}
	}

	if len(data) > runawayFactor*s.size {
		n := len(data)
		buf.Reset()
		return ScanResult{Status: Resync, Reason: ReasonRunaway, Discarded: n}
	}

	var n int
	if end > start {
		// lone end marker: it can never close a packet, drop it too
		n = end + len(EndMarker)
	} else {
		// keep the start marker unless it already sits at the head with no
		// end marker in reach
		n = start
		if n == 0 {
			n = 1
		}
	}
	buf.Discard(n)
	return ScanResult{Status: Resync, Reason: ReasonUnpaired, Discarded: n}
}
