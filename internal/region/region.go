// Package region holds the six colorable regions of the keycap illustration
// and the registry that owns their current colors.
package region

import (
	"fmt"
	"strings"

	"keycap-preview/pkg/colorutil"
)

// ID identifies one of the six regions.
type ID int

const (
	A ID = iota
	B
	C
	D
	E
	F
)

// Count is the number of regions.
const Count = 6

// All lists the regions in their canonical order.
var All = [Count]ID{A, B, C, D, E, F}

func (id ID) String() string {
	if id < A || id > F {
		return fmt.Sprintf("ID(%d)", int(id))
	}
	return string(rune('A' + int(id)))
}

// Valid reports whether id names a region.
func (id ID) Valid() bool {
	return id >= A && id <= F
}

// Parse converts "A".."F" (case-insensitive) to an ID.
func Parse(s string) (ID, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 1 || s[0] < 'A' || s[0] > 'F' {
		return 0, fmt.Errorf("unknown region %q", s)
	}
	return ID(s[0] - 'A'), nil
}

// MarshalText implements encoding.TextMarshaler so IDs work as JSON map keys.
func (id ID) MarshalText() ([]byte, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("invalid region %d", int(id))
	}
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// Palette maps regions to target colors. A region missing from the map is
// drawn with its original art.
type Palette map[ID]colorutil.RGB

// Clone returns an independent copy of p.
func (p Palette) Clone() Palette {
	out := make(Palette, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Region is one colorable part of the illustration.
type Region struct {
	ID            ID
	OriginalColor colorutil.RGB
	CurrentColor  colorutil.RGB

	// CatalogIndex is the swatch number the current color was picked from,
	// or 0 when the color did not come from the catalog.
	CatalogIndex int
}

// HasCatalogIndex reports whether the current color came from a swatch.
func (r Region) HasCatalogIndex() bool {
	return r.CatalogIndex > 0
}
