package frame

// Assembler takes raw transport bytes and assembles them into packets.
type Assembler interface {
	// Receive accepts a chunk of any length. Chunks need not align with
	// packet boundaries.
	Receive([]byte)
}
