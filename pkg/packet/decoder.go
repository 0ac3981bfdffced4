package packet

// Decode extracts every active slot from pkt, which must start at the start
// marker and hold at least PacketSize bytes. Values are appended to dst[:0] so
// callers can reuse a frame between packets.
func Decode(cfg Config, pkt []byte, dst []int32) []int32 {
	dst = dst[:0]
	pos := 1
	for _, w := range cfg {
		if w == 0 {
			continue
		}
		width := int(w)
		var raw uint32
		for _, b := range pkt[pos : pos+width] {
			raw = raw<<8 | uint32(b)
		}
		dst = append(dst, SignExtend(raw, width))
		pos += width
	}
	return dst
}

// SignExtend widens a width-byte two's complement value to int32.
func SignExtend(raw uint32, width int) int32 {
	bits := uint(8 * width)
	if raw&(1<<(bits-1)) != 0 {
		raw |= ^uint32(0) << bits
	}
	return int32(raw)
}
