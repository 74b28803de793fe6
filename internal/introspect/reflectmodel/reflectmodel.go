// Package reflectmodel is an introspect.Model over in-process Go values.
//
// Objects are structs or pointers to structs. A struct's ancestor chain is
// its first embedded struct field, then that struct's first embedded struct,
// and so on. Unexported fields are readable when the object is addressable,
// which in practice means it was passed by pointer.
package reflectmodel

import (
	"fmt"
	"math"
	"reflect"
	"unsafe"

	"firestige.xyz/pktsnap/internal/core"
	"firestige.xyz/pktsnap/internal/introspect"
)

var byteType = reflect.TypeOf(byte(0))

// Model resolves fields with package reflect.
type Model struct{}

// New returns a reflection model.
func New() *Model {
	return &Model{}
}

// Handle wraps a Go value as a buffer handle. Nil pointers yield the
// absent handle.
func Handle(v any, token core.HandleToken) core.BufferHandle {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return core.BufferHandle{}
	}
	return core.NewBufferHandle(v, token)
}

// structType is a struct type reached from root through embedded fields
// at path.
type structType struct {
	root reflect.Type
	t    reflect.Type
	path []int
}

func (s structType) Name() string {
	return s.t.String()
}

func (s structType) Super() (introspect.Type, bool) {
	for i := 0; i < s.t.NumField(); i++ {
		sf := s.t.Field(i)
		if !sf.Anonymous {
			continue
		}
		ft := sf.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() != reflect.Struct {
			continue
		}
		path := make([]int, len(s.path)+1)
		copy(path, s.path)
		path[len(s.path)] = i
		return structType{root: s.root, t: ft, path: path}, true
	}
	return nil, false
}

// TypeOf implements introspect.Model.
func (m *Model) TypeOf(obj introspect.Object) (introspect.Type, error) {
	v, err := structValue(obj)
	if err != nil {
		return nil, err
	}
	return structType{root: v.Type(), t: v.Type()}, nil
}

// ResolveField implements introspect.Model. Only fields declared directly
// on t are considered; promoted fields are found by walking Super.
func (m *Model) ResolveField(t introspect.Type, name string) (introspect.Field, bool) {
	st, ok := t.(structType)
	if !ok {
		return nil, false
	}
	for i := 0; i < st.t.NumField(); i++ {
		sf := st.t.Field(i)
		if sf.Name != name {
			continue
		}
		index := make([]int, len(st.path)+1)
		copy(index, st.path)
		index[len(st.path)] = i
		return &field{root: st.root, name: name, index: index}, true
	}
	return nil, false
}

// structValue dereferences obj down to its struct value.
func structValue(obj introspect.Object) (reflect.Value, error) {
	v := reflect.ValueOf(obj)
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}, core.ErrNullPointer
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return reflect.Value{}, core.ErrNullPointer
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w: %s is not a struct", core.ErrUnexpectedType, v.Type())
	}
	return v, nil
}

type field struct {
	root  reflect.Type
	name  string
	index []int
}

func (f *field) Name() string {
	return f.name
}

// value returns the field of obj, unlocked for reading when it is
// unexported and addressable.
func (f *field) value(obj introspect.Object) (reflect.Value, error) {
	v, err := structValue(obj)
	if err != nil {
		return reflect.Value{}, err
	}
	if v.Type() != f.root {
		return reflect.Value{}, fmt.Errorf("%w: field %s belongs to %s, got %s",
			core.ErrUnexpectedType, f.name, f.root, v.Type())
	}
	fv, err := v.FieldByIndexErr(f.index)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%w: %s: %v", core.ErrNullPointer, f.name, err)
	}
	if fv.CanInterface() {
		return fv, nil
	}
	if !fv.CanAddr() {
		return reflect.Value{}, fmt.Errorf("%w: %s is unexported on a non-addressable value",
			core.ErrFieldInaccessible, f.name)
	}
	return reflect.NewAt(fv.Type(), unsafe.Pointer(fv.UnsafeAddr())).Elem(), nil
}

func (f *field) Object(obj introspect.Object) (introspect.Object, error) {
	v, err := f.value(obj)
	if err != nil {
		return nil, err
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return v.Interface(), nil
	case reflect.Struct:
		if v.CanAddr() {
			return v.Addr().Interface(), nil
		}
		return v.Interface(), nil
	default:
		return nil, fmt.Errorf("%w: %s is %s, want reference", core.ErrUnexpectedType, f.name, v.Type())
	}
}

func (f *field) Storage(obj introspect.Object) (introspect.Storage, error) {
	v, err := f.value(obj)
	if err != nil {
		return nil, err
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Type().Elem() != byteType {
			return nil, fmt.Errorf("%w: %s is %s, want bytes", core.ErrUnexpectedType, f.name, v.Type())
		}
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil, fmt.Errorf("%w: %s is nil", core.ErrStorageUnavailable, f.name)
		}
		return storage{v: v}, nil
	default:
		return nil, fmt.Errorf("%w: %s is %s, want bytes", core.ErrUnexpectedType, f.name, v.Type())
	}
}

func (f *field) Int(obj introspect.Object) (int64, error) {
	v, err := f.value(obj)
	if err != nil {
		return 0, err
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt64 {
			return math.MaxInt64, nil
		}
		return int64(u), nil
	default:
		return 0, fmt.Errorf("%w: %s is %s, want integer", core.ErrUnexpectedType, f.name, v.Type())
	}
}

// storage is a readable []byte or [N]byte value.
type storage struct {
	v reflect.Value
}

func (s storage) Cap() int {
	return s.v.Len()
}

func (s storage) CopyPrefix(n int) ([]byte, error) {
	if n < 0 || n > s.v.Len() {
		return nil, fmt.Errorf("%w: prefix %d of %d", core.ErrShortRead, n, s.v.Len())
	}
	dst := make([]byte, n)
	reflect.Copy(reflect.ValueOf(dst), s.v)
	return dst, nil
}
