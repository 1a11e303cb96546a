package recolor

import (
	"image"

	kimage "keycap-preview/internal/image"
	"keycap-preview/internal/region"
)

// BackgroundOrder is the priority order of background masks.
var BackgroundOrder = [region.Count - 1]region.ID{region.B, region.C, region.D, region.E, region.F}

// MaskPriority paints the base raster through prioritized region masks.
// The first main mask claiming a pixel wins; otherwise the first background
// mask paints the region's derived background shade.
type MaskPriority struct {
	Base            *image.NRGBA
	MainMasks       [region.Count]*image.NRGBA
	BackgroundMasks [region.Count]*image.NRGBA
	Coefficients    CoefficientSet
}

func (s *MaskPriority) Name() string { return string(KindMask) }

func (s *MaskPriority) Ready() error {
	var missing []string
	if s.Base == nil {
		missing = append(missing, "base")
	}
	for _, id := range region.All {
		if s.MainMasks[id] == nil {
			missing = append(missing, "mask "+id.String())
		}
	}
	return missingError(missing)
}

func (s *MaskPriority) Recolor(p region.Palette) (*image.NRGBA, error) {
	if err := s.Ready(); err != nil {
		return nil, err
	}

	var bg [region.Count][3]uint8
	var hasBG [region.Count]bool
	for _, id := range BackgroundOrder {
		if c, ok := p[id]; ok {
			d := s.Coefficients.For(id).Apply(c)
			bg[id] = [3]uint8{d.R, d.G, d.B}
			hasBG[id] = true
		}
	}

	out := kimage.Clone(s.Base)
	b := out.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := out.PixOffset(x, y)
			if out.Pix[i+3] < kimage.AlphaThreshold {
				continue
			}
			s.paint(out.Pix[i:i+3:i+3], x, y, p, &bg, &hasBG)
		}
	}
	return out, nil
}

func (s *MaskPriority) paint(px []uint8, x, y int, p region.Palette, bg *[region.Count][3]uint8, hasBG *[region.Count]bool) {
	for _, id := range region.All {
		if !kimage.Opaque(s.MainMasks[id], x, y) {
			continue
		}
		if c, ok := p[id]; ok {
			px[0], px[1], px[2] = c.R, c.G, c.B
		}
		return
	}
	for _, id := range BackgroundOrder {
		if !kimage.Opaque(s.BackgroundMasks[id], x, y) {
			continue
		}
		if hasBG[id] {
			px[0], px[1], px[2] = bg[id][0], bg[id][1], bg[id][2]
		}
		return
	}
}
