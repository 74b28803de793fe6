package core

// HandleToken is a correlation id for a buffer handle. It is safe to keep
// after the handle itself is gone.
type HandleToken string

// BufferHandle is an opaque reference to a buffer-carrying object owned by
// a foreign runtime. The zero value is the absent handle.
//
// Only the object model that produced a handle interprets Ref; everything
// else treats it as a black box.
type BufferHandle struct {
	ref   any
	token HandleToken
}

// NewBufferHandle wraps a model-specific reference. A nil ref yields the
// absent handle.
func NewBufferHandle(ref any, token HandleToken) BufferHandle {
	if ref == nil {
		return BufferHandle{}
	}
	return BufferHandle{ref: ref, token: token}
}

// IsAbsent reports whether the handle refers to nothing.
func (h BufferHandle) IsAbsent() bool {
	return h.ref == nil
}

// Ref returns the model-specific reference.
func (h BufferHandle) Ref() any {
	return h.ref
}

// Token returns the correlation token.
func (h BufferHandle) Token() HandleToken {
	return h.token
}
