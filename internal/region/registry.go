package region

import (
	"fmt"

	"keycap-preview/pkg/colorutil"
)

// Registry is the single source of truth for the intended region colors.
// It is not safe for concurrent use; the owning session serializes access.
type Registry struct {
	regions [Count]Region
}

// NewRegistry creates a registry whose current colors equal the originals.
func NewRegistry(originals map[ID]colorutil.RGB) *Registry {
	r := &Registry{}
	for _, id := range All {
		orig := originals[id]
		r.regions[id] = Region{ID: id, OriginalColor: orig, CurrentColor: orig}
	}
	return r
}

// Get returns a copy of the region.
func (r *Registry) Get(id ID) Region {
	return r.regions[id]
}

// Regions returns a snapshot of all regions in canonical order.
func (r *Registry) Regions() [Count]Region {
	return r.regions
}

// SetColor sets a color by any path other than catalog selection, which
// always invalidates the stored catalog index.
func (r *Registry) SetColor(id ID, c colorutil.RGB) error {
	if !id.Valid() {
		return fmt.Errorf("set color: invalid region %d", int(id))
	}
	r.regions[id].CurrentColor = c
	r.regions[id].CatalogIndex = 0
	return nil
}

// SetFromCatalog sets the color picked from swatch number index.
func (r *Registry) SetFromCatalog(id ID, c colorutil.RGB, index int) error {
	if !id.Valid() {
		return fmt.Errorf("set from catalog: invalid region %d", int(id))
	}
	if index <= 0 {
		return fmt.Errorf("set from catalog: invalid swatch number %d", index)
	}
	r.regions[id].CurrentColor = c
	r.regions[id].CatalogIndex = index
	return nil
}

// Restore sets color and catalog index together, as stored in a scheme.
// An index of 0 clears the catalog index.
func (r *Registry) Restore(id ID, c colorutil.RGB, index int) error {
	if !id.Valid() {
		return fmt.Errorf("restore: invalid region %d", int(id))
	}
	if index < 0 {
		index = 0
	}
	r.regions[id].CurrentColor = c
	r.regions[id].CatalogIndex = index
	return nil
}

// Reset restores every region to its original color and clears indexes.
func (r *Registry) Reset() {
	for i := range r.regions {
		r.regions[i].CurrentColor = r.regions[i].OriginalColor
		r.regions[i].CatalogIndex = 0
	}
}

// Palette returns the current colors of all regions.
func (r *Registry) Palette() Palette {
	p := make(Palette, Count)
	for _, reg := range r.regions {
		p[reg.ID] = reg.CurrentColor
	}
	return p
}

// Originals returns the original reference colors of all regions.
func (r *Registry) Originals() Palette {
	p := make(Palette, Count)
	for _, reg := range r.regions {
		p[reg.ID] = reg.OriginalColor
	}
	return p
}

// CatalogIndexes returns the swatch number per region, 0 when unset.
func (r *Registry) CatalogIndexes() [Count]int {
	var out [Count]int
	for i, reg := range r.regions {
		out[i] = reg.CatalogIndex
	}
	return out
}

// MissingCatalogIndexes lists regions whose color has no swatch number.
func (r *Registry) MissingCatalogIndexes() []ID {
	var missing []ID
	for _, reg := range r.regions {
		if !reg.HasCatalogIndex() {
			missing = append(missing, reg.ID)
		}
	}
	return missing
}
