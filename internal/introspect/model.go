// Package introspect extracts the written prefix of foreign packet buffers.
//
// Field access goes through a Model so the extractor never depends on how
// the foreign runtime lays out its objects. reflectmodel serves in-process
// Go values; memmodel serves objects inside another OS process.
package introspect

import (
	"fmt"

	"firestige.xyz/pktsnap/internal/core"
)

// maxAncestorDepth bounds ancestor walks over model-supplied type chains.
const maxAncestorDepth = 64

// Object is a model-specific object reference. nil is the absent object.
type Object any

// Model resolves types and fields of foreign objects.
type Model interface {
	// TypeOf returns the concrete type of obj.
	TypeOf(obj Object) (Type, error)
	// ResolveField returns the field declared directly on t.
	ResolveField(t Type, name string) (Field, bool)
}

// Type is one link of a type's ancestor chain.
type Type interface {
	Name() string
	// Super returns the parent type, if any.
	Super() (Type, bool)
}

// Field reads one field of an object of the type that declared it, or of
// any descendant of that type.
type Field interface {
	Name() string
	// Object returns the referenced object, or nil when the reference is empty.
	Object(obj Object) (Object, error)
	// Storage returns the byte storage held by the field.
	Storage(obj Object) (Storage, error)
	// Int returns the field as a signed integer.
	Int(obj Object) (int64, error)
}

// Storage is a foreign byte container.
type Storage interface {
	// Cap returns the number of bytes the storage holds.
	Cap() int
	// CopyPrefix copies [0, n) into a new slice of exactly n bytes.
	CopyPrefix(n int) ([]byte, error)
}

// Lookup finds name on the type of obj, walking the ancestor chain.
func Lookup(m Model, obj Object, name string) (Field, error) {
	t, err := m.TypeOf(obj)
	if err != nil {
		return nil, err
	}
	concrete := t.Name()

	for depth := 0; depth < maxAncestorDepth; depth++ {
		if f, ok := m.ResolveField(t, name); ok {
			return f, nil
		}
		next, ok := t.Super()
		if !ok {
			break
		}
		t = next
	}
	return nil, fmt.Errorf("%w: %q on %s", core.ErrFieldNotFound, name, concrete)
}
