package biostream

import (
	"context"

	"github.com/norasector/biostream/pkg/types"
)

// SampleOutput handles decoded, tagged samples.
type SampleOutput interface {
	// Start receives a context and should run in a loop, terminating upon ctx closing or on any errors.
	Start(ctx context.Context) error
	// Receive returns a channel that receives tagged samples.
	Receive() chan<- *types.TaggedSample
}
