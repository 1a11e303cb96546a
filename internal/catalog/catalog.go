package catalog

import (
	"fmt"
	"image"

	"keycap-preview/pkg/colorutil"
)

// Card is one catalog image and the grid printed on it.
type Card struct {
	Name  string
	Grid  Grid
	Image image.Image
}

// Selection is the result of picking a swatch.
type Selection struct {
	Card   int
	Number int
	Color  colorutil.RGB
}

// Catalog is an ordered set of cards with non-overlapping number ranges.
type Catalog struct {
	Cards []Card
}

// New validates that the cards' number ranges do not overlap.
func New(cards ...Card) (*Catalog, error) {
	for i := range cards {
		for j := i + 1; j < len(cards); j++ {
			a, b := cards[i].Grid, cards[j].Grid
			if a.Start <= b.Last() && b.Start <= a.Last() {
				return nil, fmt.Errorf("catalog cards %q and %q overlap (%d-%d, %d-%d)",
					cards[i].Name, cards[j].Name, a.Start, a.Last(), b.Start, b.Last())
			}
		}
	}
	return &Catalog{Cards: cards}, nil
}

// Pick returns the swatch under pixel (x, y) of the given card together with
// the color sampled at that pixel. Positions off the grid yield no selection.
func (c *Catalog) Pick(card, x, y int) (Selection, bool) {
	if card < 0 || card >= len(c.Cards) {
		return Selection{}, false
	}
	cd := c.Cards[card]
	if cd.Image == nil {
		return Selection{}, false
	}
	b := cd.Image.Bounds()
	n, ok := cd.Grid.SwatchAt(x, y, b.Dx(), b.Dy())
	if !ok {
		return Selection{}, false
	}
	return Selection{
		Card:   card,
		Number: n,
		Color:  colorutil.FromColor(cd.Image.At(b.Min.X+x, b.Min.Y+y)),
	}, true
}

// Lookup finds the card holding swatch n and samples the middle of its cell.
func (c *Catalog) Lookup(n int) (Selection, bool) {
	for i, cd := range c.Cards {
		if cd.Image == nil {
			continue
		}
		b := cd.Image.Bounds()
		x, y, ok := cd.Grid.Center(n, b.Dx(), b.Dy())
		if !ok {
			continue
		}
		return Selection{
			Card:   i,
			Number: n,
			Color:  colorutil.FromColor(cd.Image.At(b.Min.X+x, b.Min.Y+y)),
		}, true
	}
	return Selection{}, false
}

// Size returns the total number of swatches across all cards.
func (c *Catalog) Size() int {
	total := 0
	for _, cd := range c.Cards {
		total += cd.Grid.Last() - cd.Grid.Start + 1
	}
	return total
}
