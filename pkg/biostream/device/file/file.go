// Package file plays back a raw capture recorded from a device link.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

type FileDevice struct {
	readFile    *os.File
	readSize    int
	timeBetween time.Duration
}

// NewFileDevice opens a capture. Every timeBetween, up to readSize bytes are
// delivered; a zero timeBetween delivers as fast as the pipeline accepts.
func NewFileDevice(file string, readSize int, timeBetween time.Duration) (*FileDevice, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	if readSize <= 0 {
		readSize = 4096
	}

	return &FileDevice{
		readFile:    f,
		readSize:    readSize,
		timeBetween: timeBetween,
	}, nil
}

// Start returns io.EOF once the whole capture has been delivered.
func (f *FileDevice) Start(ctx context.Context, chunks chan<- []byte) error {
	var tick <-chan time.Time
	if f.timeBetween > 0 {
		ticker := time.NewTicker(f.timeBetween)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}

		buf := make([]byte, f.readSize)
		n, err := f.readFile.Read(buf)
		if n > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case chunks <- buf[:n]:
			}
		}
		if err == io.EOF {
			return io.EOF
		}
		if err != nil {
			return fmt.Errorf("reading capture: %w", err)
		}
	}
}

func (f *FileDevice) Stop() error {
	return f.readFile.Close()
}
