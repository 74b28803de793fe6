// Package layout decodes snapshots into named, typed fields.
package layout

import (
	"fmt"

	"firestige.xyz/pktsnap/internal/config"
	"firestige.xyz/pktsnap/internal/core"
	"firestige.xyz/pktsnap/internal/core/decoder"
)

// Field kinds.
const (
	KindByte    = "byte"
	KindShort   = "short"
	KindInt     = "int"
	KindString  = "string"  // Null-terminated
	KindCString = "cstring" // Null-circumfixed
)

// FieldSpec is one typed field. A nil Offset places the field right after
// the previous one.
type FieldSpec struct {
	Name   string
	Kind   string
	Offset *int
}

// Layout describes one message shape.
type Layout struct {
	Name   string
	Opcode *uint8 // Expected first byte; nil never matches by content
	Fields []FieldSpec
}

// FromConfig converts a layout declaration.
func FromConfig(lc config.LayoutConfig) (Layout, error) {
	l := Layout{Name: lc.Name, Fields: make([]FieldSpec, 0, len(lc.Fields))}
	if lc.Opcode != nil {
		if *lc.Opcode < 0 || *lc.Opcode > 255 {
			return Layout{}, fmt.Errorf("%w: layout %q opcode %d", core.ErrConfigInvalid, lc.Name, *lc.Opcode)
		}
		op := uint8(*lc.Opcode)
		l.Opcode = &op
	}
	for _, fc := range lc.Fields {
		switch fc.Kind {
		case KindByte, KindShort, KindInt, KindString, KindCString:
		default:
			return Layout{}, fmt.Errorf("%w: layout %q field %q kind %q",
				core.ErrConfigInvalid, lc.Name, fc.Name, fc.Kind)
		}
		l.Fields = append(l.Fields, FieldSpec{Name: fc.Name, Kind: fc.Kind, Offset: fc.Offset})
	}
	return l, nil
}

// Decode reads every field of l from data. Reads past the end decode to
// zero values.
func (l Layout) Decode(data []byte) []core.Field {
	fields := make([]core.Field, 0, len(l.Fields))
	pos := 0
	for _, spec := range l.Fields {
		if spec.Offset != nil {
			pos = *spec.Offset
		}
		value, next := decodeField(data, pos, spec.Kind)
		fields = append(fields, core.Field{
			Name:   spec.Name,
			Kind:   spec.Kind,
			Offset: pos,
			Value:  value,
		})
		pos = next
	}
	return fields
}

// decodeField returns the value at pos and the offset just past it.
func decodeField(data []byte, pos int, kind string) (any, int) {
	switch kind {
	case KindByte:
		return decoder.ReadByte(data, pos), pos + 1
	case KindShort:
		return decoder.ReadShort(data, pos), pos + 2
	case KindInt:
		return decoder.ReadUint32(data, pos), pos + 4
	case KindString:
		end := decoder.NullTerminatedEnd(data, pos)
		return decoder.ReadStringNullTerminated(data, pos), end + 1
	case KindCString:
		end := decoder.NullTerminatedEnd(data, pos+1)
		return decoder.ReadStringNullCircumfixed(data, pos), end + 1
	default:
		return nil, pos
	}
}
