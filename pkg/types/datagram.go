package types

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Datagrams on the wire carry a little endian uint16 length and then the
// encoded message.
const datagramHeaderLength = 2

func AppendDatagram(b []byte, msg []byte) ([]byte, error) {
	if len(msg) > math.MaxUint16 {
		return b, fmt.Errorf("message of %d bytes does not fit a datagram", len(msg))
	}
	b = binary.LittleEndian.AppendUint16(b, uint16(len(msg)))
	return append(b, msg...), nil
}

// SplitDatagram returns the first message in b and whatever follows it.
func SplitDatagram(b []byte) (msg []byte, rest []byte, err error) {
	if len(b) < datagramHeaderLength {
		return nil, nil, fmt.Errorf("%w: %d byte datagram", ErrMalformedSample, len(b))
	}
	size := int(binary.LittleEndian.Uint16(b))
	b = b[datagramHeaderLength:]
	if len(b) < size {
		return nil, nil, fmt.Errorf("%w: header says %d bytes, have %d", ErrMalformedSample, size, len(b))
	}
	return b[:size], b[size:], nil
}
