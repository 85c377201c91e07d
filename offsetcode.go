package bookcoder

import "encoding/binary"

// OffsetCode is one unit of the book code: the absolute offset of a byte in
// the book file. One code is emitted per input byte, so the book code is
// always exactly OffsetCodeSize times the size of the original file.
//
// On the wire a code is OffsetCodeSize bytes, little-endian regardless of
// host order, with no framing around it: the book code stream is nothing but
// back-to-back codes.
type OffsetCode uint32

const (
	// OffsetCodeSize is the width of one offset code on the wire, in bytes.
	OffsetCodeSize = 4

	// AddressableBookBytes is the number of leading book bytes an OffsetCode
	// can address. Larger books still work, since every byte value found
	// within the addressable prefix can be mapped, but offsets beyond it are
	// never emitted and the encoder stops scanning there.
	AddressableBookBytes = int64(1) << 32

	// byteAlphabetSize is the number of distinct byte values. The offset
	// digest is a fixed table of this many entries; nothing in the transform
	// works on units other than 8-bit bytes.
	byteAlphabetSize = 256
)

// putOffsetCode writes the wire form of code into dst, which must be at least
// OffsetCodeSize bytes long.
func putOffsetCode(dst []byte, code OffsetCode) {
	binary.LittleEndian.PutUint32(dst, uint32(code))
}

// getOffsetCode reads the wire form of a code from src, which must be at
// least OffsetCodeSize bytes long.
func getOffsetCode(src []byte) OffsetCode {
	return OffsetCode(binary.LittleEndian.Uint32(src))
}
