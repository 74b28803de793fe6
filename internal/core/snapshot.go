// Package core defines core data structures with zero external dependencies.
package core

import "time"

// PacketSnapshot is an immutable copy of the written prefix of a foreign
// packet buffer. Values are safe to share between goroutines.
type PacketSnapshot struct {
	data       []byte
	capturedAt time.Time
}

// NewSnapshot takes ownership of data. Callers must not modify data after
// the call.
func NewSnapshot(data []byte, capturedAt time.Time) PacketSnapshot {
	if len(data) == 0 {
		return EmptySnapshot(capturedAt)
	}
	return PacketSnapshot{data: data, capturedAt: capturedAt}
}

// CopySnapshot builds a snapshot from a private copy of data.
func CopySnapshot(data []byte, capturedAt time.Time) PacketSnapshot {
	if len(data) == 0 {
		return EmptySnapshot(capturedAt)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return PacketSnapshot{data: buf, capturedAt: capturedAt}
}

// EmptySnapshot returns the canonical empty snapshot.
func EmptySnapshot(capturedAt time.Time) PacketSnapshot {
	return PacketSnapshot{data: []byte{}, capturedAt: capturedAt}
}

// Len returns the number of captured bytes.
func (s PacketSnapshot) Len() int {
	return len(s.data)
}

// IsEmpty reports whether nothing was captured.
func (s PacketSnapshot) IsEmpty() bool {
	return len(s.data) == 0
}

// CapturedAt returns the capture time.
func (s PacketSnapshot) CapturedAt() time.Time {
	return s.capturedAt
}

// Bytes returns a copy of the captured bytes.
func (s PacketSnapshot) Bytes() []byte {
	buf := make([]byte, len(s.data))
	copy(buf, s.data)
	return buf
}

// View calls fn with the captured bytes without copying. fn must not
// modify or retain the slice.
func (s PacketSnapshot) View(fn func(data []byte)) {
	fn(s.data)
}

// PacketSent is published once per intercepted invocation.
type PacketSent struct {
	Source   string      // Interceptor that produced the event
	Origin   HandleToken // Correlation token of the originating handle
	Snapshot PacketSnapshot
}

// Field is one decoded value of a packet layout.
type Field struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Offset int    `json:"offset"`
	Value  any    `json:"value"`
}

// PacketRecord is what reporters receive: the event plus layout decoding.
type PacketRecord struct {
	PacketSent
	Layout string  // Empty when no layout matched
	Fields []Field // Decoded fields in layout order
}
