package introspect

import (
	"fmt"

	"firestige.xyz/pktsnap/internal/config"
	"firestige.xyz/pktsnap/internal/core"
)

// Locator names the fields that hold a buffer's storage and write cursor.
type Locator struct {
	BufferField  string // Field on the handle object holding the buffer; empty means the handle is the buffer
	StorageField string
	CursorField  string
	ScaleFactor  int // Cursor units to bytes
}

// NewLocator builds a locator from configuration.
func NewLocator(cfg config.LocatorConfig) (Locator, error) {
	if !cfg.Configured() {
		return Locator{}, fmt.Errorf("%w: locator is not configured", core.ErrConfigInvalid)
	}
	if err := cfg.Validate(); err != nil {
		return Locator{}, fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
	}
	return Locator{
		BufferField:  cfg.BufferField,
		StorageField: cfg.StorageField,
		CursorField:  cfg.CursorField,
		ScaleFactor:  cfg.ScaleFactor,
	}, nil
}

func (l Locator) String() string {
	buffer := l.BufferField
	if buffer == "" {
		buffer = "<self>"
	}
	return fmt.Sprintf("%s{%s,%s}x%d", buffer, l.StorageField, l.CursorField, l.ScaleFactor)
}
