package device

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLink replays reads in order; an exhausted script reads as a timeout.
type scriptedLink struct {
	mu       sync.Mutex
	reads    [][]byte
	readErr  error
	written  bytes.Buffer
	timeouts []time.Duration
	closed   bool

	// timeoutErr, when set, decides whether a SetReadTimeout call fails
	timeoutErr func(call int, d time.Duration) error
}

func (l *scriptedLink) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.reads) == 0 {
		if l.readErr != nil {
			return 0, l.readErr
		}
		return 0, nil
	}
	n := copy(p, l.reads[0])
	l.reads = l.reads[1:]
	return n, nil
}

func (l *scriptedLink) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written.Write(p)
}

func (l *scriptedLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func (l *scriptedLink) SetReadTimeout(d time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timeouts = append(l.timeouts, d)
	if l.timeoutErr != nil {
		return l.timeoutErr(len(l.timeouts), d)
	}
	return nil
}

// gatedLink blocks every read until release is closed.
type gatedLink struct {
	scriptedLink
	reading chan struct{}
	release chan struct{}
	once    sync.Once
}

func (l *gatedLink) Read(p []byte) (int, error) {
	l.once.Do(func() { close(l.reading) })
	<-l.release
	return 0, nil
}

func (l *gatedLink) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func TestLinkDeviceDeliversChunks(t *testing.T) {
	link := &scriptedLink{
		reads:   [][]byte{{0xA0, 0x01}, {}, {0xC0, 0x0D, 0x0A}},
		readErr: errors.New("unplugged"),
	}
	capture := filepath.Join(t.TempDir(), "capture.bin")
	dev, err := NewLinkDevice("test", link, WithRecording(capture), WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)

	chunks := make(chan []byte, 4)
	err = dev.Start(context.Background(), chunks)
	assert.ErrorContains(t, err, "unplugged")

	require.Len(t, chunks, 2)
	assert.Equal(t, []byte{0xA0, 0x01}, <-chunks)
	assert.Equal(t, []byte{0xC0, 0x0D, 0x0A}, <-chunks)

	require.NoError(t, dev.Stop())
	assert.True(t, link.closed)

	recorded, err := os.ReadFile(capture)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA0, 0x01, 0xC0, 0x0D, 0x0A}, recorded)
}

func TestLinkDeviceStopsOnCancel(t *testing.T) {
	dev, err := NewLinkDevice("test", &scriptedLink{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, dev.Start(ctx, make(chan []byte)), context.Canceled)
}

func TestSendCommand(t *testing.T) {
	tests := []struct {
		name    string
		reads   [][]byte
		want    []byte
		wantErr error
	}{
		{"reply in pieces", [][]byte{[]byte("O"), []byte("K\r\n")}, []byte("OK\r\n"), nil},
		{"single reply", [][]byte{[]byte("READY")}, []byte("READY"), nil},
		{"silent device", nil, nil, ErrNoResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := &scriptedLink{reads: tt.reads}
			dev, err := NewLinkDevice("test", link, WithCommandTimeout(50*time.Millisecond))
			require.NoError(t, err)

			reply, err := dev.SendCommand(context.Background(), []byte("SDATAC\r\n"))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, reply)
			assert.Equal(t, "SDATAC\r\n", link.written.String())
			// poll, command wait, settle, then back to poll
			assert.Equal(t, []time.Duration{defaultPollInterval, 50 * time.Millisecond, replySettleTime, defaultPollInterval}, link.timeouts)
		})
	}
}

func TestLinkDeviceStopWaitsForRead(t *testing.T) {
	link := &gatedLink{reading: make(chan struct{}), release: make(chan struct{})}
	dev, err := NewLinkDevice("test", link)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan error, 1)
	go func() {
		started <- dev.Start(ctx, make(chan []byte))
	}()
	<-link.reading

	stopped := make(chan error, 1)
	go func() {
		stopped <- dev.Stop()
	}()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, link.isClosed())

	close(link.release)
	require.NoError(t, <-stopped)
	assert.True(t, link.isClosed())

	assert.ErrorIs(t, <-started, ErrLinkClosed)
}

func TestLinkDeviceAfterStop(t *testing.T) {
	link := &scriptedLink{reads: [][]byte{{0xA0}}}
	dev, err := NewLinkDevice("test", link)
	require.NoError(t, err)

	require.NoError(t, dev.Stop())
	require.NoError(t, dev.Stop())

	assert.ErrorIs(t, dev.Start(context.Background(), make(chan []byte, 1)), ErrLinkClosed)
	_, err = dev.SendCommand(context.Background(), []byte("SDATAC\r\n"))
	assert.ErrorIs(t, err, ErrLinkClosed)
	assert.Empty(t, link.written.String())
}

func TestSendCommandReportsTimeoutRestore(t *testing.T) {
	restoreErr := errors.New("ioctl failed")
	link := &scriptedLink{
		reads: [][]byte{[]byte("OK")},
		timeoutErr: func(call int, d time.Duration) error {
			if call > 1 && d == defaultPollInterval {
				return restoreErr
			}
			return nil
		},
	}
	dev, err := NewLinkDevice("test", link)
	require.NoError(t, err)

	reply, err := dev.SendCommand(context.Background(), []byte("RDATAC\r\n"))
	assert.Equal(t, []byte("OK"), reply)
	assert.ErrorIs(t, err, restoreErr)
}
