package output

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/norasector/biostream/pkg/types"
)

const sampleBufferLength int = 8

// WriterOutput records samples as CSV rows: sequence, timestamp, then one
// column per channel label.
type WriterOutput struct {
	dest     io.Writer
	labels   []string
	recvChan chan *types.TaggedSample
}

func NewWriterOutput(dest io.Writer, labels []string) *WriterOutput {
	return &WriterOutput{
		dest:     dest,
		labels:   labels,
		recvChan: make(chan *types.TaggedSample, receiveChannels),
	}
}

func (s *WriterOutput) Receive() chan<- *types.TaggedSample {
	return s.recvChan
}

// Start writes the header row and then every received sample. Rows are
// flushed in batches and once more when ctx is done.
func (s *WriterOutput) Start(ctx context.Context) error {
	w := csv.NewWriter(s.dest)
	header := append([]string{"sequence", "timestamp"}, s.labels...)
	if err := w.Write(header); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	record := make([]string, 0, len(header))
	pending := 0
	for {
		select {
		case <-ctx.Done():
			w.Flush()
			if err := w.Error(); err != nil {
				return err
			}
			return ctx.Err()

		case sample := <-s.recvChan:
			record = append(record[:0],
				strconv.FormatUint(sample.Sequence, 10),
				sample.Timestamp.UTC().Format(time.RFC3339Nano))
			for _, v := range sample.Values {
				record = append(record, strconv.FormatInt(int64(v), 10))
			}
			if err := w.Write(record); err != nil {
				return err
			}

			pending++
			if pending == sampleBufferLength {
				w.Flush()
				if err := w.Error(); err != nil {
					return err
				}
				pending = 0
			}
		}
	}
}
