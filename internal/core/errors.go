// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors following the errors.Is wrapping pattern.
var (
	// Introspection errors
	ErrFieldNotFound      = errors.New("pktsnap: field not found in type hierarchy")
	ErrFieldInaccessible  = errors.New("pktsnap: field not accessible")
	ErrUnexpectedType     = errors.New("pktsnap: unexpected runtime type")
	ErrNegativeLength     = errors.New("pktsnap: negative computed length")
	ErrStorageUnavailable = errors.New("pktsnap: byte storage unavailable")

	// Memory model errors
	ErrNullPointer   = errors.New("pktsnap: null pointer")
	ErrShortRead     = errors.New("pktsnap: short memory read")
	ErrUnknownType   = errors.New("pktsnap: unknown layout type")
	ErrProcessClosed = errors.New("pktsnap: process not open")

	// Bus errors
	ErrBusClosed     = errors.New("pktsnap: event bus closed")
	ErrPartitionFull = errors.New("pktsnap: partition queue full")

	// Plugin errors
	ErrReporterNotFound = errors.New("pktsnap: reporter not found")

	// Configuration errors
	ErrConfigInvalid = errors.New("pktsnap: invalid configuration")
)
