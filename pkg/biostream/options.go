package biostream

import (
	"time"

	"github.com/norasector/biostream/pkg/biostream/config"
	"github.com/norasector/biostream/pkg/types"
)

type Options struct {
	Layout  config.Layout
	Outputs []SampleOutput
	// InitScript commands are sent to the device, each followed by
	// CommandSuffix, before acquisition starts.
	InitScript    []string
	CommandSuffix string
	Stream        types.StreamInfo
	// Advertise publishes Stream over mDNS on AdvertisePort.
	Advertise       bool
	AdvertisePort   int
	Diagnostics     bool
	MetricsInterval time.Duration
	// DrainTimeout bounds how long outputs get to empty their queues once
	// the device input is exhausted.
	DrainTimeout time.Duration
}

const (
	defaultMetricsInterval = 10 * time.Second
	defaultDrainTimeout    = 2 * time.Second
	rawChunkQueue          = 16
)
