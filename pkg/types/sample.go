package types

import (
	"errors"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// TaggedSample is one windowed device sample, tagged for distribution.
type TaggedSample struct {
	SourceID  string
	Sequence  uint64
	Timestamp time.Time
	Values    []int32
}

// Field numbers of the sample message.
const (
	sampleFieldSourceID  protowire.Number = 1
	sampleFieldSequence  protowire.Number = 2
	sampleFieldTimestamp protowire.Number = 3
	sampleFieldValues    protowire.Number = 4
)

var ErrMalformedSample = errors.New("malformed sample message")

// AppendProto appends the protobuf encoding of s to b. Values are packed
// zigzag varints (sint32), the timestamp is unix nanoseconds (sfixed64).
func (s *TaggedSample) AppendProto(b []byte) []byte {
	if s.SourceID != "" {
		b = protowire.AppendTag(b, sampleFieldSourceID, protowire.BytesType)
		b = protowire.AppendString(b, s.SourceID)
	}
	if s.Sequence != 0 {
		b = protowire.AppendTag(b, sampleFieldSequence, protowire.VarintType)
		b = protowire.AppendVarint(b, s.Sequence)
	}
	if !s.Timestamp.IsZero() {
		b = protowire.AppendTag(b, sampleFieldTimestamp, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, uint64(s.Timestamp.UnixNano()))
	}
	if len(s.Values) > 0 {
		var packed []byte
		for _, v := range s.Values {
			packed = protowire.AppendVarint(packed, protowire.EncodeZigZag(int64(v)))
		}
		b = protowire.AppendTag(b, sampleFieldValues, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b
}

func (s *TaggedSample) MarshalProto() []byte {
	return s.AppendProto(nil)
}

// UnmarshalTaggedSample decodes a sample message. Unknown fields are skipped.
func UnmarshalTaggedSample(b []byte) (*TaggedSample, error) {
	s := &TaggedSample{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == sampleFieldSourceID && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			s.SourceID = v
			n = m
		case num == sampleFieldSequence && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			s.Sequence = v
			n = m
		case num == sampleFieldTimestamp && typ == protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(b)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			s.Timestamp = time.Unix(0, int64(v)).UTC()
			n = m
		case num == sampleFieldValues && typ == protowire.BytesType:
			packed, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			for len(packed) > 0 {
				v, k := protowire.ConsumeVarint(packed)
				if k < 0 {
					return nil, protowire.ParseError(k)
				}
				s.Values = append(s.Values, int32(protowire.DecodeZigZag(v)))
				packed = packed[k:]
			}
			n = m
		case num == sampleFieldValues && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			s.Values = append(s.Values, int32(protowire.DecodeZigZag(v)))
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
		}
		b = b[n:]
	}
	return s, nil
}
