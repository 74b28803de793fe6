package decoder

import (
	"testing"
)

func TestReadFixedWidth(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x42, 0x00, 0x07, 0xFF}

	if got := ReadInt(data, 0); got != 0x42 {
		t.Errorf("ReadInt(0) = %d, expected 66", got)
	}
	if got := ReadShort(data, 4); got != 7 {
		t.Errorf("ReadShort(4) = %d, expected 7", got)
	}
	if got := ReadByte(data, 6); got != 255 {
		t.Errorf("ReadByte(6) = %d, expected 255", got)
	}
}

func TestReadIntUnsignedBits(t *testing.T) {
	data := []byte{0xFF, 0xFF, 0xFF, 0xFE}

	if got := ReadUint32(data, 0); got != 0xFFFFFFFE {
		t.Errorf("ReadUint32 = 0x%08X, expected 0xFFFFFFFE", got)
	}
	if got := ReadInt(data, 0); uint32(got) != 0xFFFFFFFE {
		t.Errorf("ReadInt bits = 0x%08X, expected 0xFFFFFFFE", uint32(got))
	}
}

func TestReadShortBigEndian(t *testing.T) {
	if got := ReadShort([]byte{0xAB, 0xCD}, 0); got != 0xABCD {
		t.Errorf("ReadShort = 0x%04X, expected 0xABCD", got)
	}
}

func TestReadOutOfRangeReturnsZero(t *testing.T) {
	for n := 0; n <= 8; n++ {
		data := make([]byte, n)
		for i := range data {
			data[i] = 0xFF
		}

		for pos := -2; pos <= n+2; pos++ {
			if pos < 0 || pos+1 > n {
				if got := ReadByte(data, pos); got != 0 {
					t.Errorf("len=%d ReadByte(%d) = %d, expected 0", n, pos, got)
				}
			}
			if pos < 0 || pos+2 > n {
				if got := ReadShort(data, pos); got != 0 {
					t.Errorf("len=%d ReadShort(%d) = %d, expected 0", n, pos, got)
				}
			}
			if pos < 0 || pos+4 > n {
				if got := ReadInt(data, pos); got != 0 {
					t.Errorf("len=%d ReadInt(%d) = %d, expected 0", n, pos, got)
				}
			}
		}
	}
}

func TestReadAtExactEnd(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04}

	if got := ReadByte(data, 3); got != 4 {
		t.Errorf("ReadByte(3) = %d, expected 4", got)
	}
	if got := ReadShort(data, 2); got != 0x0304 {
		t.Errorf("ReadShort(2) = 0x%04X, expected 0x0304", got)
	}
	if got := ReadInt(data, 0); got != 0x01020304 {
		t.Errorf("ReadInt(0) = 0x%08X, expected 0x01020304", got)
	}
}

func BenchmarkReadInt(b *testing.B) {
	data := []byte{0x00, 0x00, 0x00, 0x42}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if ReadInt(data, 0) != 0x42 {
			b.Fatal("unexpected value")
		}
	}
}
