package device

import (
	"context"
	"errors"
)

// Device is a source of raw device bytes. Start delivers chunks of any length
// until ctx is done or the source fails; Stop releases the underlying link.
type Device interface {
	Start(ctx context.Context, chunks chan<- []byte) error
	Stop() error
}

// Commander is implemented by devices that accept textual commands. The
// command bytes are forwarded as-is and the raw reply is returned.
type Commander interface {
	SendCommand(ctx context.Context, command []byte) ([]byte, error)
}

var ErrNoResponse = errors.New("device did not answer command")
