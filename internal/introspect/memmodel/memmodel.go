// Package memmodel is an introspect.Model over objects living in another
// process. Type layouts come from configuration; bytes come from a
// MemoryReader.
package memmodel

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/pktsnap/internal/config"
	"firestige.xyz/pktsnap/internal/core"
	"firestige.xyz/pktsnap/internal/introspect"
)

// MemoryReader reads raw bytes from a foreign address space.
type MemoryReader interface {
	ReadMemory(addr uint64, size int) ([]byte, error)
}

// Ref is an object at Addr whose layout is the configured type Type.
type Ref struct {
	Addr uint64
	Type string
}

// Handle returns a buffer handle for the object at addr. A null address
// yields the absent handle.
func Handle(addr uint64, typeName string) core.BufferHandle {
	if addr == 0 {
		return core.BufferHandle{}
	}
	return core.NewBufferHandle(Ref{Addr: addr, Type: typeName},
		core.HandleToken(fmt.Sprintf("%s@0x%x", typeName, addr)))
}

// Model resolves configured layouts against a MemoryReader.
type Model struct {
	reader  MemoryReader
	order   binary.ByteOrder
	ptrSize int
	types   map[string]*memType
}

// New builds a model from a validated layout configuration.
func New(cfg config.MemoryConfig, reader MemoryReader) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
	}

	m := &Model{
		reader:  reader,
		order:   binary.LittleEndian,
		ptrSize: cfg.PointerSize,
		types:   make(map[string]*memType, len(cfg.Types)),
	}
	if cfg.ByteOrder == "big" {
		m.order = binary.BigEndian
	}

	for _, tc := range cfg.Types {
		t := &memType{name: tc.Name, fields: make(map[string]*memField, len(tc.Fields))}
		for _, fc := range tc.Fields {
			t.fields[fc.Name] = &memField{
				model:        m,
				name:         fc.Name,
				kind:         fc.Kind,
				offset:       uint64(fc.Offset),
				pointee:      fc.Type,
				lengthOffset: uint64(fc.LengthOffset),
				dataOffset:   uint64(fc.DataOffset),
			}
		}
		m.types[tc.Name] = t
	}
	for _, tc := range cfg.Types {
		if tc.Super != "" {
			m.types[tc.Name].super = m.types[tc.Super]
		}
	}
	return m, nil
}

type memType struct {
	name   string
	super  *memType
	fields map[string]*memField
}

func (t *memType) Name() string {
	return t.name
}

func (t *memType) Super() (introspect.Type, bool) {
	if t.super == nil {
		return nil, false
	}
	return t.super, true
}

// TypeOf implements introspect.Model.
func (m *Model) TypeOf(obj introspect.Object) (introspect.Type, error) {
	ref, err := toRef(obj)
	if err != nil {
		return nil, err
	}
	t, ok := m.types[ref.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownType, ref.Type)
	}
	return t, nil
}

// ResolveField implements introspect.Model.
func (m *Model) ResolveField(t introspect.Type, name string) (introspect.Field, bool) {
	mt, ok := t.(*memType)
	if !ok {
		return nil, false
	}
	f, ok := mt.fields[name]
	return f, ok
}

func toRef(obj introspect.Object) (Ref, error) {
	var ref Ref
	switch v := obj.(type) {
	case Ref:
		ref = v
	case *Ref:
		if v == nil {
			return Ref{}, core.ErrNullPointer
		}
		ref = *v
	default:
		return Ref{}, fmt.Errorf("%w: %T is not a memory reference", core.ErrUnexpectedType, obj)
	}
	if ref.Addr == 0 {
		return Ref{}, core.ErrNullPointer
	}
	return ref, nil
}

// read fetches exactly size bytes at addr.
func (m *Model) read(addr uint64, size int) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	data, err := m.reader.ReadMemory(addr, size)
	if err != nil {
		return nil, fmt.Errorf("read %d bytes at 0x%x: %w", size, addr, err)
	}
	if len(data) != size {
		return nil, fmt.Errorf("%w: %d of %d bytes at 0x%x", core.ErrShortRead, len(data), size, addr)
	}
	return data, nil
}

func (m *Model) readUint(addr uint64, size int) (uint64, error) {
	b, err := m.read(addr, size)
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(m.order.Uint16(b)), nil
	case 4:
		return uint64(m.order.Uint32(b)), nil
	default:
		return m.order.Uint64(b), nil
	}
}

func (m *Model) readPointer(addr uint64) (uint64, error) {
	return m.readUint(addr, m.ptrSize)
}
