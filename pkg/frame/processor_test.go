package frame

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAssembler struct {
	chunks [][]byte
}

func (r *recordingAssembler) Receive(b []byte) {
	r.chunks = append(r.chunks, b)
}

func TestChunkProcessorDrainsUntilClosed(t *testing.T) {
	chunks := make(chan []byte, 3)
	chunks <- []byte{1}
	chunks <- []byte{2, 3}
	chunks <- []byte{4, 5, 6}
	close(chunks)

	asm := &recordingAssembler{}
	var sizes []int
	proc := NewChunkProcessor(chunks, asm, WithChunkHook(func(n int) {
		sizes = append(sizes, n)
	}))

	require.NoError(t, proc.Start(context.Background()))
	assert.Equal(t, [][]byte{{1}, {2, 3}, {4, 5, 6}}, asm.chunks)
	assert.Equal(t, []int{1, 2, 3}, sizes)
}

func TestChunkProcessorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	proc := NewChunkProcessor(make(chan []byte), &recordingAssembler{})

	done := make(chan error, 1)
	go func() {
		done <- proc.Start(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("processor did not stop")
	}
}
