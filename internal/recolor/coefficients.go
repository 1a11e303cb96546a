package recolor

import (
	"image"

	"gonum.org/v1/gonum/stat"

	kimage "keycap-preview/internal/image"
	"keycap-preview/internal/region"
	"keycap-preview/pkg/colorutil"
)

// Coefficients are per-channel ratios from a region's main color to its
// background shade.
type Coefficients struct {
	R float64 `mapstructure:"r" yaml:"r" json:"r"`
	G float64 `mapstructure:"g" yaml:"g" json:"g"`
	B float64 `mapstructure:"b" yaml:"b" json:"b"`
}

// Identity leaves a color unchanged.
var Identity = Coefficients{R: 1, G: 1, B: 1}

// Apply multiplies c channel-wise, rounding to the nearest value.
func (k Coefficients) Apply(c colorutil.RGB) colorutil.RGB {
	return colorutil.RGB{
		R: colorutil.ClampRound(float64(c.R) * k.R),
		G: colorutil.ClampRound(float64(c.G) * k.G),
		B: colorutil.ClampRound(float64(c.B) * k.B),
	}
}

// IsZero reports whether no coefficient was configured.
func (k Coefficients) IsZero() bool {
	return k == Coefficients{}
}

// DeriveCoefficients returns bg / main per channel. A zero main channel
// yields a ratio of 1.
func DeriveCoefficients(main, bg colorutil.RGB) Coefficients {
	ratio := func(m, b uint8) float64 {
		if m == 0 {
			return 1
		}
		return float64(b) / float64(m)
	}
	return Coefficients{
		R: ratio(main.R, bg.R),
		G: ratio(main.G, bg.G),
		B: ratio(main.B, bg.B),
	}
}

// CoefficientSet holds per-region coefficients. Regions D, E and F fall back
// to C when unset.
type CoefficientSet map[region.ID]Coefficients

// For returns the coefficients used for id.
func (s CoefficientSet) For(id region.ID) Coefficients {
	if k, ok := s[id]; ok && !k.IsZero() {
		return k
	}
	switch id {
	case region.D, region.E, region.F:
		if k, ok := s[region.C]; ok && !k.IsZero() {
			return k
		}
	}
	return Identity
}

// DefaultCoefficients are measured from the stock art: B #AF1313 → #5B090D
// and C #FF812E → #CD5C22.
func DefaultCoefficients() CoefficientSet {
	return CoefficientSet{
		region.B: {R: 91.0 / 175, G: 9.0 / 19, B: 13.0 / 19},
		region.C: {R: 205.0 / 255, G: 92.0 / 129, B: 34.0 / 46},
	}
}

// CoefficientsFromArt learns coefficients from the original illustration by
// averaging base pixels under the main and background masks. ok is false
// when either mask covers no opaque base pixel.
func CoefficientsFromArt(base, mainMask, bgMask *image.NRGBA) (Coefficients, bool) {
	main, ok := meanUnder(base, mainMask)
	if !ok {
		return Coefficients{}, false
	}
	bg, ok := meanUnder(base, bgMask)
	if !ok {
		return Coefficients{}, false
	}

	ratio := func(m, b float64) float64 {
		if m == 0 {
			return 1
		}
		return b / m
	}
	return Coefficients{
		R: ratio(main[0], bg[0]),
		G: ratio(main[1], bg[1]),
		B: ratio(main[2], bg[2]),
	}, true
}

func meanUnder(base, mask *image.NRGBA) ([3]float64, bool) {
	var out [3]float64
	if base == nil || mask == nil {
		return out, false
	}

	var ch [3][]float64
	b := base.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !kimage.Opaque(mask, x, y) {
				continue
			}
			i := base.PixOffset(x, y)
			if base.Pix[i+3] < kimage.AlphaThreshold {
				continue
			}
			for c := 0; c < 3; c++ {
				ch[c] = append(ch[c], float64(base.Pix[i+c]))
			}
		}
	}
	if len(ch[0]) == 0 {
		return out, false
	}
	for c := 0; c < 3; c++ {
		out[c] = stat.Mean(ch[c], nil)
	}
	return out, true
}
