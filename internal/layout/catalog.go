package layout

import (
	"fmt"

	"firestige.xyz/pktsnap/internal/config"
	"firestige.xyz/pktsnap/internal/core"
)

// Catalog holds layouts in declaration order.
type Catalog struct {
	layouts []Layout
	byName  map[string]int
}

// NewCatalog builds a catalog. Layout names must be unique.
func NewCatalog(layouts ...Layout) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]int, len(layouts))}
	for _, l := range layouts {
		if _, dup := c.byName[l.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate layout %q", core.ErrConfigInvalid, l.Name)
		}
		c.byName[l.Name] = len(c.layouts)
		c.layouts = append(c.layouts, l)
	}
	return c, nil
}

// CatalogFromConfig builds a catalog from layout declarations.
func CatalogFromConfig(cfgs []config.LayoutConfig) (*Catalog, error) {
	layouts := make([]Layout, 0, len(cfgs))
	for _, lc := range cfgs {
		l, err := FromConfig(lc)
		if err != nil {
			return nil, err
		}
		layouts = append(layouts, l)
	}
	return NewCatalog(layouts...)
}

// Get returns the layout called name.
func (c *Catalog) Get(name string) (Layout, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Layout{}, false
	}
	return c.layouts[i], true
}

// Len returns the number of layouts.
func (c *Catalog) Len() int {
	return len(c.layouts)
}

// Match returns the first layout whose opcode equals the snapshot's first
// byte.
func (c *Catalog) Match(snap core.PacketSnapshot) (Layout, bool) {
	if snap.IsEmpty() {
		return Layout{}, false
	}
	var first byte
	snap.View(func(data []byte) { first = data[0] })

	for _, l := range c.layouts {
		if l.Opcode != nil && *l.Opcode == first {
			return l, true
		}
	}
	return Layout{}, false
}

// Decode matches snap and decodes it. ok is false when no layout matched.
func (c *Catalog) Decode(snap core.PacketSnapshot) (name string, fields []core.Field, ok bool) {
	l, ok := c.Match(snap)
	if !ok {
		return "", nil, false
	}
	snap.View(func(data []byte) { fields = l.Decode(data) })
	return l.Name, fields, true
}
