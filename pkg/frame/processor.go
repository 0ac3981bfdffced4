package frame

import "context"

// Processor is a long running stage of the decode pipeline.
type Processor interface {
	Start(context.Context) error
}

// ChunkProcessor hands transport chunks to an Assembler from a single
// goroutine, so the assembler never needs its own locking.
type ChunkProcessor struct {
	chunks    <-chan []byte
	assembler Assembler
	onChunk   func(n int)
}

type ChunkProcessorOption func(c *ChunkProcessor)

// WithChunkHook runs after each chunk has been assembled.
func WithChunkHook(fn func(n int)) ChunkProcessorOption {
	return func(c *ChunkProcessor) {
		c.onChunk = fn
	}
}

func NewChunkProcessor(chunks <-chan []byte, assembler Assembler, opts ...ChunkProcessorOption) *ChunkProcessor {
	c := &ChunkProcessor{
		chunks:    chunks,
		assembler: assembler,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start returns when ctx is done or the chunk channel is closed.
func (c *ChunkProcessor) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-c.chunks:
			if !ok {
				return nil
			}
			c.assembler.Receive(chunk)
			if c.onChunk != nil {
				c.onChunk(len(chunk))
			}
		}
	}
}
