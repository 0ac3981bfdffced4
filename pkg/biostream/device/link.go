package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

const (
	defaultReadSize     = 4096
	defaultPollInterval = 100 * time.Millisecond
	defaultCommandWait  = time.Second
	// replies are considered complete once the link stays quiet this long
	replySettleTime = 10 * time.Millisecond
)

// ErrLinkClosed is returned by reads and commands issued after Stop.
var ErrLinkClosed = errors.New("link closed")

// Link is a bidirectional byte connection whose reads can be bounded. A read
// that times out returns 0 bytes and a nil error.
type Link interface {
	io.ReadWriteCloser
	SetReadTimeout(time.Duration) error
}

// LinkDevice adapts a Link (serial port, RFCOMM socket) to Device and Commander.
type LinkDevice struct {
	name         string
	link         Link
	readSize     int
	pollInterval time.Duration
	commandWait  time.Duration

	recordLocation string
	recordFile     *os.File

	mu     sync.Mutex
	closed bool
}

type LinkOption func(d *LinkDevice) error

func WithReadSize(n int) LinkOption {
	return func(d *LinkDevice) error {
		if n > 0 {
			d.readSize = n
		}
		return nil
	}
}

// WithPollInterval bounds each blocking read so cancellation is noticed.
func WithPollInterval(interval time.Duration) LinkOption {
	return func(d *LinkDevice) error {
		if interval > 0 {
			d.pollInterval = interval
		}
		return nil
	}
}

// WithCommandTimeout sets how long SendCommand waits for the first reply byte.
func WithCommandTimeout(timeout time.Duration) LinkOption {
	return func(d *LinkDevice) error {
		if timeout > 0 {
			d.commandWait = timeout
		}
		return nil
	}
}

// WithRecording copies every byte read from the link into a capture file that
// the file device can play back later.
func WithRecording(location string) LinkOption {
	return func(d *LinkDevice) error {
		if location == "" {
			return nil
		}
		f, err := os.Create(location)
		if err != nil {
			return fmt.Errorf("creating capture file: %w", err)
		}
		d.recordLocation = location
		d.recordFile = f
		return nil
	}
}

func NewLinkDevice(name string, link Link, opts ...LinkOption) (*LinkDevice, error) {
	d := &LinkDevice{
		name:         name,
		link:         link,
		readSize:     defaultReadSize,
		pollInterval: defaultPollInterval,
		commandWait:  defaultCommandWait,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if err := link.SetReadTimeout(d.pollInterval); err != nil {
		return nil, fmt.Errorf("%s: setting read timeout: %w", name, err)
	}
	return d, nil
}

func (d *LinkDevice) Name() string {
	return d.name
}

func (d *LinkDevice) Start(ctx context.Context, chunks chan<- []byte) error {
	buf := make([]byte, d.readSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, err := d.read(buf)
		if err != nil {
			if ctx.Err() != nil {
				// Stop closed the link underneath the read
				return ctx.Err()
			}
			return err
		}
		if chunk == nil {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunks <- chunk:
		}
	}
}

// read performs one bounded read and records what it got. It holds mu so Stop
// cannot release the link mid-read.
func (d *LinkDevice) read(buf []byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, fmt.Errorf("%s: %w", d.name, ErrLinkClosed)
	}
	n, err := d.link.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: read: %w", d.name, err)
	}
	if n == 0 {
		return nil, nil
	}

	chunk := make([]byte, n)
	copy(chunk, buf[:n])

	if d.recordFile != nil {
		if _, err := d.recordFile.Write(chunk); err != nil {
			return nil, fmt.Errorf("%s: writing capture %s: %w", d.name, d.recordLocation, err)
		}
	}
	return chunk, nil
}

// SendCommand writes command to the link and collects the reply: it waits up
// to the command timeout for the first bytes, then keeps reading until the
// link goes quiet.
func (d *LinkDevice) SendCommand(ctx context.Context, command []byte) (reply []byte, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, fmt.Errorf("%s: %w", d.name, ErrLinkClosed)
	}
	defer func() {
		if resetErr := d.link.SetReadTimeout(d.pollInterval); resetErr != nil && err == nil {
			err = fmt.Errorf("%s: restoring read timeout: %w", d.name, resetErr)
		}
	}()

	if _, err := d.link.Write(command); err != nil {
		return nil, fmt.Errorf("%s: write: %w", d.name, err)
	}

	if err := d.link.SetReadTimeout(d.commandWait); err != nil {
		return nil, err
	}
	buf := make([]byte, d.readSize)
	n, err := d.link.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: read reply: %w", d.name, err)
	}
	if n == 0 {
		return nil, ErrNoResponse
	}
	reply = append([]byte(nil), buf[:n]...)

	if err := d.link.SetReadTimeout(replySettleTime); err != nil {
		return nil, err
	}
	for ctx.Err() == nil {
		n, err := d.link.Read(buf)
		if err != nil {
			return reply, fmt.Errorf("%s: read reply: %w", d.name, err)
		}
		if n == 0 {
			break
		}
		reply = append(reply, buf[:n]...)
	}
	return reply, ctx.Err()
}

// Stop waits for any in-flight read, bounded by the poll interval, then
// releases the link. Later calls are no-ops.
func (d *LinkDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if d.recordFile != nil {
		defer d.recordFile.Close()
	}
	return d.link.Close()
}
