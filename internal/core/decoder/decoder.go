// Package decoder implements fixed-width and legacy-text field decoding over
// captured packet bytes.
//
// Every function is pure: it never mutates data and never fails. Reads that
// would run past the end of data return zero values, so decoding can proceed
// over truncated or malformed captures.
package decoder

import "encoding/binary"

const (
	byteLen  = 1
	shortLen = 2
	intLen   = 4
)

// available reports whether n bytes can be read at pos.
func available(data []byte, pos, n int) bool {
	return pos >= 0 && pos <= len(data)-n
}

// ReadByte returns the unsigned byte at pos, or 0 if pos is out of range.
func ReadByte(data []byte, pos int) int {
	if !available(data, pos, byteLen) {
		return 0
	}
	return int(data[pos])
}

// ReadShort returns the big-endian unsigned 16-bit value at pos, or 0 when
// fewer than 2 bytes remain.
func ReadShort(data []byte, pos int) int {
	if !available(data, pos, shortLen) {
		return 0
	}
	return int(binary.BigEndian.Uint16(data[pos : pos+shortLen]))
}

// ReadInt returns the big-endian 32-bit value at pos, or 0 when fewer than 4
// bytes remain. The result carries the unsigned bit pattern in an int32; use
// ReadUint32 for the unsigned interpretation.
func ReadInt(data []byte, pos int) int32 {
	return int32(ReadUint32(data, pos))
}

// ReadUint32 is ReadInt without the signed representation.
func ReadUint32(data []byte, pos int) uint32 {
	if !available(data, pos, intLen) {
		return 0
	}
	return binary.BigEndian.Uint32(data[pos : pos+intLen])
}
