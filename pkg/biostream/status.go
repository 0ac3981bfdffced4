package biostream

import (
	"time"

	"github.com/norasector/biostream/pkg/packet"
	"github.com/norasector/biostream/pkg/types"
)

// Status is the snapshot served on the viz server's /status route.
type Status struct {
	Stream         types.StreamInfo `json:"stream"`
	Started        time.Time        `json:"started"`
	Pump           packet.Stats     `json:"pump"`
	Buffered       int              `json:"buffered_bytes"`
	SkippedOutputs uint64           `json:"skipped_outputs"`
	DecodeMicros   int64            `json:"decode_us"`
}
