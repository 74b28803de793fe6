package memmodel

import (
	"fmt"
	"math"

	"firestige.xyz/pktsnap/internal/core"
	"firestige.xyz/pktsnap/internal/introspect"
)

// intSizes maps integer kinds to their width and signedness.
var intSizes = map[string]struct {
	size   int
	signed bool
}{
	"int8":   {1, true},
	"int16":  {2, true},
	"int32":  {4, true},
	"int64":  {8, true},
	"uint8":  {1, false},
	"uint16": {2, false},
	"uint32": {4, false},
	"uint64": {8, false},
}

type memField struct {
	model        *Model
	name         string
	kind         string
	offset       uint64
	pointee      string
	lengthOffset uint64
	dataOffset   uint64
}

func (f *memField) Name() string {
	return f.name
}

func (f *memField) Object(obj introspect.Object) (introspect.Object, error) {
	ref, err := toRef(obj)
	if err != nil {
		return nil, err
	}
	if f.kind != "pointer" {
		return nil, fmt.Errorf("%w: %s is %s, want pointer", core.ErrUnexpectedType, f.name, f.kind)
	}
	addr, err := f.model.readPointer(ref.Addr + f.offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrFieldInaccessible, f.name, err)
	}
	if addr == 0 {
		return nil, nil
	}
	return Ref{Addr: addr, Type: f.pointee}, nil
}

func (f *memField) Storage(obj introspect.Object) (introspect.Storage, error) {
	ref, err := toRef(obj)
	if err != nil {
		return nil, err
	}
	base := ref.Addr + f.offset

	var data, length uint64
	switch f.kind {
	case "array":
		arr, err := f.model.readPointer(base)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", core.ErrFieldInaccessible, f.name, err)
		}
		if arr == 0 {
			return nil, fmt.Errorf("%w: %s is null", core.ErrStorageUnavailable, f.name)
		}
		n, err := f.model.readUint(arr+f.lengthOffset, 4)
		if err != nil {
			return nil, fmt.Errorf("%w: %s length: %w", core.ErrFieldInaccessible, f.name, err)
		}
		if int32(n) < 0 {
			return nil, fmt.Errorf("%w: %s has length %d", core.ErrNegativeLength, f.name, int32(n))
		}
		data, length = arr+f.dataOffset, n
	case "slice":
		ptr, err := f.model.readPointer(base)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", core.ErrFieldInaccessible, f.name, err)
		}
		n, err := f.model.readUint(base+uint64(f.model.ptrSize), f.model.ptrSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %s length: %w", core.ErrFieldInaccessible, f.name, err)
		}
		if ptr == 0 && n > 0 {
			return nil, fmt.Errorf("%w: %s is null", core.ErrStorageUnavailable, f.name)
		}
		if n > math.MaxInt32 {
			return nil, fmt.Errorf("%w: %s has length %d", core.ErrUnexpectedType, f.name, n)
		}
		data, length = ptr, n
	default:
		return nil, fmt.Errorf("%w: %s is %s, want array or slice", core.ErrUnexpectedType, f.name, f.kind)
	}

	return &storage{model: f.model, addr: data, size: int(length)}, nil
}

func (f *memField) Int(obj introspect.Object) (int64, error) {
	ref, err := toRef(obj)
	if err != nil {
		return 0, err
	}
	spec, ok := intSizes[f.kind]
	if !ok {
		return 0, fmt.Errorf("%w: %s is %s, want integer", core.ErrUnexpectedType, f.name, f.kind)
	}
	u, err := f.model.readUint(ref.Addr+f.offset, spec.size)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", core.ErrFieldInaccessible, f.name, err)
	}

	if !spec.signed {
		if u > math.MaxInt64 {
			return math.MaxInt64, nil
		}
		return int64(u), nil
	}
	switch spec.size {
	case 1:
		return int64(int8(u)), nil
	case 2:
		return int64(int16(u)), nil
	case 4:
		return int64(int32(u)), nil
	default:
		return int64(u), nil
	}
}

// storage is a byte range in the foreign address space. Nothing is read
// until CopyPrefix.
type storage struct {
	model *Model
	addr  uint64
	size  int
}

func (s *storage) Cap() int {
	return s.size
}

func (s *storage) CopyPrefix(n int) ([]byte, error) {
	if n < 0 || n > s.size {
		return nil, fmt.Errorf("%w: prefix %d of %d", core.ErrShortRead, n, s.size)
	}
	return s.model.read(s.addr, n)
}
