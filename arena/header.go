package arena

import "encoding/binary"

const (
	// headerSize is the number of bytes each entry header occupies within the
	// arena buffer.
	headerSize = 4
	// payloadAlign is the allocation granularity. Every payload size is rounded
	// up to a multiple of this value, and no stronger alignment is guaranteed.
	payloadAlign = 4

	// maxPayloadSize is the largest payload size the 31-bit size field can
	// encode.
	maxPayloadSize = 1<<31 - 1

	usedBit   = 0x1
	sizeShift = 1
)

// readHeader decodes the entry header at the given buffer offset into its
// used flag and payload size. The header is a little-endian 32-bit word with
// the used flag in bit 0 and the payload size in bits 1..31.
func readHeader(buf []byte, offset int) (used bool, size int) {
	word := binary.LittleEndian.Uint32(buf[offset:])
	return word&usedBit != 0, int(word >> sizeShift)
}

// writeHeader encodes an entry header at the given buffer offset.
func writeHeader(buf []byte, offset int, used bool, size int) {
	word := uint32(size) << sizeShift
	if used {
		word |= usedBit
	}
	binary.LittleEndian.PutUint32(buf[offset:], word)
}
