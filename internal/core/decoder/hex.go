package decoder

import (
	"fmt"
	"strings"
)

const bytesPerLine = 16

// ToHexString formats each byte as two uppercase hex digits followed by a
// space, breaking the line after every 16 bytes. Display only.
func ToHexString(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data)*3 + len(data)/bytesPerLine)
	for i, b := range data {
		fmt.Fprintf(&sb, "%02X ", b)
		if (i+1)%bytesPerLine == 0 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// HexDump renders an offset column, the hex bytes and a printable ASCII
// column, 16 bytes per line.
func HexDump(data []byte) string {
	var sb strings.Builder
	for off := 0; off < len(data); off += bytesPerLine {
		end := off + bytesPerLine
		if end > len(data) {
			end = len(data)
		}
		line := data[off:end]

		fmt.Fprintf(&sb, "%08X  ", off)
		for i := 0; i < bytesPerLine; i++ {
			if i < len(line) {
				fmt.Fprintf(&sb, "%02X ", line[i])
			} else {
				sb.WriteString("   ")
			}
			if i == 7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(" |")
		for _, b := range line {
			if b >= 0x20 && b < 0x7F {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteString("|\n")
	}
	return sb.String()
}
