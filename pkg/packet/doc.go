// Package packet frames and decodes the binary packets emitted by the
// acquisition device.
//
// A packet is a start marker (0xA0), the active channel fields in slot order
// (each 1-3 bytes, big-endian two's complement) and an end marker
// (0xC0 0x0D 0x0A). Which of the 24 slots are present, and how wide each one
// is, comes from Config. The Pump accumulates transport bytes, resynchronizes
// on damaged input and hands each decoded, windowed sample to a Sink.
package packet
