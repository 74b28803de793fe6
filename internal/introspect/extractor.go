package introspect

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"firestige.xyz/pktsnap/internal/core"
	"firestige.xyz/pktsnap/internal/metrics"
)

// Extractor copies the written prefix of a buffer into a PacketSnapshot.
// It is safe for concurrent use and holds no state between calls.
type Extractor struct {
	model  Model
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the capture time source.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewExtractor creates an extractor over model.
func NewExtractor(model Model, opts ...Option) *Extractor {
	e := &Extractor{
		model:  model,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns a snapshot of the bytes written to the buffer behind h.
//
// Extract never panics. An absent handle or buffer yields the empty
// snapshot silently; introspection failures are logged at error and also
// yield the empty snapshot. A cursor past the storage end is logged at
// warn and clamped.
func (e *Extractor) Extract(h core.BufferHandle, loc Locator) (snap core.PacketSnapshot) {
	result := metrics.ResultFailed
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("buffer extraction panicked",
				"token", h.Token(), "locator", loc.String(), "panic", r)
			snap = core.EmptySnapshot(e.now())
			result = metrics.ResultFailed
		}
		metrics.ExtractionsTotal.WithLabelValues(result).Inc()
	}()

	snap, result = e.extract(h, loc)
	return snap
}

func (e *Extractor) extract(h core.BufferHandle, loc Locator) (core.PacketSnapshot, string) {
	if h.IsAbsent() {
		return core.EmptySnapshot(e.now()), metrics.ResultAbsent
	}

	buf, err := e.resolveBuffer(h.Ref(), loc)
	if err != nil {
		return e.fail(h, loc, "resolve buffer", err), metrics.ResultFailed
	}
	if buf == nil {
		return core.EmptySnapshot(e.now()), metrics.ResultAbsent
	}

	storageField, err := Lookup(e.model, buf, loc.StorageField)
	if err != nil {
		return e.fail(h, loc, "resolve storage field", err), metrics.ResultFailed
	}
	cursorField, err := Lookup(e.model, buf, loc.CursorField)
	if err != nil {
		return e.fail(h, loc, "resolve cursor field", err), metrics.ResultFailed
	}

	storage, err := storageField.Storage(buf)
	if err != nil {
		return e.fail(h, loc, "read storage", err), metrics.ResultFailed
	}
	if storage == nil {
		return e.fail(h, loc, "read storage", core.ErrStorageUnavailable), metrics.ResultFailed
	}
	cursor, err := cursorField.Int(buf)
	if err != nil {
		return e.fail(h, loc, "read cursor", err), metrics.ResultFailed
	}

	length := scaledLength(cursor, int64(loc.ScaleFactor))
	if length < 0 {
		err := fmt.Errorf("%w: cursor %d scale %d", core.ErrNegativeLength, cursor, loc.ScaleFactor)
		return e.fail(h, loc, "compute length", err), metrics.ResultFailed
	}

	result := metrics.ResultOK
	capacity := int64(storage.Cap())
	if length > capacity {
		e.logger.Warn("buffer length exceeds storage capacity, clamping",
			"token", h.Token(), "locator", loc.String(),
			"length", length, "capacity", capacity)
		length = capacity
		result = metrics.ResultClamped
	}

	data, err := storage.CopyPrefix(int(length))
	if err != nil {
		return e.fail(h, loc, "copy storage", err), metrics.ResultFailed
	}
	if int64(len(data)) != length {
		err := fmt.Errorf("%w: copied %d of %d bytes", core.ErrShortRead, len(data), length)
		return e.fail(h, loc, "copy storage", err), metrics.ResultFailed
	}

	metrics.SnapshotBytes.Observe(float64(length))
	return core.NewSnapshot(data, e.now()), result
}

func (e *Extractor) resolveBuffer(obj Object, loc Locator) (Object, error) {
	if loc.BufferField == "" {
		return obj, nil
	}
	f, err := Lookup(e.model, obj, loc.BufferField)
	if err != nil {
		return nil, err
	}
	return f.Object(obj)
}

func (e *Extractor) fail(h core.BufferHandle, loc Locator, stage string, err error) core.PacketSnapshot {
	e.logger.Error("buffer extraction failed",
		"token", h.Token(), "locator", loc.String(), "stage", stage, "error", err)
	return core.EmptySnapshot(e.now())
}

// scaledLength multiplies in 64 bits, saturating instead of wrapping.
func scaledLength(cursor, scale int64) int64 {
	if cursor == 0 || scale == 0 {
		return 0
	}
	p := cursor * scale
	if p/scale != cursor || (cursor == -1 && scale == math.MinInt64) || (scale == -1 && cursor == math.MinInt64) {
		if (cursor < 0) != (scale < 0) {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return p
}
