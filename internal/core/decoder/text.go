package decoder

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// placeholder replaces byte values Windows-1252 leaves undefined.
const placeholder = '?'

// NullTerminatedEnd returns the offset of the first 0x00 at or after start,
// or len(data) when there is none.
func NullTerminatedEnd(data []byte, start int) int {
	if start < 0 {
		start = 0
	}
	end := start
	for end < len(data) && data[end] != 0 {
		end++
	}
	return end
}

// ReadStringNullTerminated decodes [start, terminator). The terminator is
// not consumed: a caller continuing to parse must skip it.
func ReadStringNullTerminated(data []byte, start int) string {
	if start < 0 {
		start = 0
	}
	return DecodeLegacyText(data, start, NullTerminatedEnd(data, start))
}

// ReadStringNullCircumfixed decodes a string framed as [0x00][text][0x00]
// where start points at the leading marker.
func ReadStringNullCircumfixed(data []byte, start int) string {
	if start < 0 {
		start = -1
	}
	begin := start + 1
	return DecodeLegacyText(data, begin, NullTerminatedEnd(data, begin))
}

// DecodeLegacyText decodes data[start:end] as Windows-1252. Bytes in the
// ASCII and Latin-1 ranges map to the same code point and 0x80-0x9F map to
// their typographic equivalents. The five undefined values and 0x00, which
// only ever appears as a terminator, become '?'.
func DecodeLegacyText(data []byte, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(data) {
		end = len(data)
	}
	if start >= end {
		return ""
	}

	var sb strings.Builder
	sb.Grow(end - start)
	for _, b := range data[start:end] {
		sb.WriteRune(decodeLegacyByte(b))
	}
	return sb.String()
}

func decodeLegacyByte(b byte) rune {
	if b == 0 {
		return placeholder
	}
	r := charmap.Windows1252.DecodeByte(b)
	// Undefined positions decode to their C1 control code point.
	if (r >= 0x80 && r <= 0x9F) || r == utf8.RuneError {
		return placeholder
	}
	return r
}
