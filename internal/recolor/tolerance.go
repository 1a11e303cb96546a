package recolor

import (
	"image"
	"math"

	"gonum.org/v1/gonum/floats"

	kimage "keycap-preview/internal/image"
	"keycap-preview/internal/region"
	"keycap-preview/pkg/colorutil"
)

// ToleranceMatch recolors a flattened illustration without masks. Each
// opaque pixel is assigned to the nearest original region color within that
// region's tolerance and shifted onto the new color by its relative offset.
type ToleranceMatch struct {
	Base       *image.NRGBA
	Originals  region.Palette
	Tolerances [region.Count]float64
}

func (s *ToleranceMatch) Name() string { return string(KindTolerance) }

func (s *ToleranceMatch) Ready() error {
	if s.Base == nil {
		return missingError([]string{"base"})
	}
	return nil
}

func (s *ToleranceMatch) Recolor(p region.Palette) (*image.NRGBA, error) {
	if err := s.Ready(); err != nil {
		return nil, err
	}

	var orig [region.Count][]float64
	for _, id := range region.All {
		o := s.Originals[id]
		orig[id] = []float64{float64(o.R), float64(o.G), float64(o.B)}
	}

	out := kimage.Clone(s.Base)
	px := make([]float64, 3)
	b := out.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := out.PixOffset(x, y)
			if out.Pix[i+3] < kimage.AlphaThreshold {
				continue
			}
			px[0], px[1], px[2] = float64(out.Pix[i]), float64(out.Pix[i+1]), float64(out.Pix[i+2])

			id, ok := s.match(px, &orig)
			if !ok {
				continue
			}
			target, ok := p[id]
			if !ok {
				continue
			}
			out.Pix[i] = Remap(out.Pix[i], s.Originals[id].R, target.R)
			out.Pix[i+1] = Remap(out.Pix[i+1], s.Originals[id].G, target.G)
			out.Pix[i+2] = Remap(out.Pix[i+2], s.Originals[id].B, target.B)
		}
	}
	return out, nil
}

// match returns the nearest region whose original color lies within its
// tolerance. Ties go to the earlier region.
func (s *ToleranceMatch) match(px []float64, orig *[region.Count][]float64) (region.ID, bool) {
	best := region.ID(-1)
	bestDist := math.Inf(1)
	for _, id := range region.All {
		d := floats.Distance(px, orig[id], 2)
		if d > s.Tolerances[id] || d >= bestDist {
			continue
		}
		best, bestDist = id, d
	}
	return best, best.Valid()
}

// Remap carries the relative offset of pixel from original over to target:
// target × (1 + (pixel − original) / original), with a divisor of 1 when
// original is 0. The result is clamped then rounded.
func Remap(pixel, original, target uint8) uint8 {
	div := float64(original)
	if div == 0 {
		div = 1
	}
	ratio := (float64(pixel) - float64(original)) / div
	return colorutil.ClampRound(float64(target) * (1 + ratio))
}
