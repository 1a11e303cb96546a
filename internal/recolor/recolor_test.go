package recolor

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"keycap-preview/internal/compositor"
	kimage "keycap-preview/internal/image"
	"keycap-preview/internal/region"
	"keycap-preview/pkg/colorutil"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	return kimage.Fill(w, h, c)
}

// maskAt returns a w×h mask opaque only at the listed pixels.
func maskAt(w, h int, alpha uint8, pts ...image.Point) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	for _, p := range pts {
		m.SetNRGBA(p.X, p.Y, color.NRGBA{A: alpha})
	}
	return m
}

func fullPalette(c colorutil.RGB) region.Palette {
	p := region.Palette{}
	for _, id := range region.All {
		p[id] = c
	}
	return p
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Layer ")
	require.NoError(t, err)
	assert.Equal(t, KindLayer, k)
	_, err = ParseKind("magic")
	assert.Error(t, err)
}

func TestReplaceRGBKeepsAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 200})
	src.SetNRGBA(1, 0, color.NRGBA{R: 9, G: 9, B: 9, A: 0})

	target := colorutil.HexToRGB("#112233")
	out := ReplaceRGB(src, target.R, target.G, target.B)

	assert.Equal(t, color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 200}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 9, G: 9, B: 9, A: 0}, out.NRGBAAt(1, 0), "transparent pixels untouched")
	assert.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 200}, src.NRGBAAt(0, 0), "source not mutated")
}

func TestLayerReplaceStacksInOrder(t *testing.T) {
	s := &LayerReplace{BackdropRegion: region.B}
	for _, id := range region.All {
		s.Layers[id] = maskAt(3, 1, 255)
	}
	// Pixel 0 is covered by F and A; A is drawn last and wins.
	s.Layers[region.F].SetNRGBA(0, 0, color.NRGBA{A: 255})
	s.Layers[region.A].SetNRGBA(0, 0, color.NRGBA{A: 255})
	// Pixel 1 is covered by C only.
	s.Layers[region.C].SetNRGBA(1, 0, color.NRGBA{A: 255})
	// The frame sits on top of everything at pixel 2.
	s.Frame = maskAt(3, 1, 0)
	s.Frame.SetNRGBA(2, 0, color.NRGBA{R: 7, G: 7, B: 7, A: 255})

	p := region.Palette{
		region.A: {R: 200},
		region.B: {R: 150, G: 150, B: 150},
		region.C: {G: 200},
		region.F: {B: 200},
	}
	out, err := s.Recolor(p)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 3, 1), out.Bounds())

	assert.Equal(t, color.NRGBA{R: 200, A: 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{G: 200, A: 255}, out.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{R: 7, G: 7, B: 7, A: 255}, out.NRGBAAt(2, 0))

	for _, l := range s.Layers {
		assert.Equal(t, uint8(0), l.Pix[0], "layer art not mutated")
	}
}

func TestLayerReplaceBackdrop(t *testing.T) {
	s := &LayerReplace{BackdropRegion: region.B}
	for _, id := range region.All {
		s.Layers[id] = maskAt(2, 2, 0)
	}
	theme := colorutil.RGB{R: 150, G: 150, B: 150}
	out, err := s.Recolor(region.Palette{region.B: theme})
	require.NoError(t, err)
	assert.Equal(t, compositor.SmartBackground(theme).NRGBA(), out.NRGBAAt(1, 1))
}

func TestLayerReplaceUnsetRegionKeepsArt(t *testing.T) {
	s := &LayerReplace{}
	for _, id := range region.All {
		s.Layers[id] = maskAt(1, 1, 0)
	}
	s.Layers[region.D] = solid(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	out, err := s.Recolor(region.Palette{})
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, out.NRGBAAt(0, 0))
}

func TestLayerReplaceIncomplete(t *testing.T) {
	s := &LayerReplace{}
	s.Layers[region.A] = maskAt(1, 1, 0)
	err := s.Ready()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAssetsIncomplete))
	assert.Contains(t, err.Error(), "layer B")

	_, err = s.Recolor(region.Palette{})
	assert.ErrorIs(t, err, ErrAssetsIncomplete)
}

func newMaskStrategy(w, h int, base color.NRGBA) *MaskPriority {
	s := &MaskPriority{
		Base:         solid(w, h, base),
		Coefficients: DefaultCoefficients(),
	}
	for _, id := range region.All {
		s.MainMasks[id] = maskAt(w, h, 0)
		s.BackgroundMasks[id] = maskAt(w, h, 0)
	}
	return s
}

func TestMaskPriorityMainBeatsBackground(t *testing.T) {
	s := newMaskStrategy(4, 1, color.NRGBA{R: 1, G: 1, B: 1, A: 255})
	// Pixel 0: claimed by C and A main masks; A has priority.
	s.MainMasks[region.C].SetNRGBA(0, 0, color.NRGBA{A: 255})
	s.MainMasks[region.A].SetNRGBA(0, 0, color.NRGBA{A: 255})
	// Pixel 1: background of B and main of F; main wins.
	s.BackgroundMasks[region.B].SetNRGBA(1, 0, color.NRGBA{A: 255})
	s.MainMasks[region.F].SetNRGBA(1, 0, color.NRGBA{A: 255})
	// Pixel 2: background of B only.
	s.BackgroundMasks[region.B].SetNRGBA(2, 0, color.NRGBA{A: 255})
	// Pixel 3: unclaimed.

	p := region.Palette{
		region.A: {R: 10, G: 20, B: 30},
		region.B: {R: 175, G: 19, B: 19},
		region.C: {R: 99, G: 99, B: 99},
		region.D: {R: 1, G: 2, B: 3},
		region.E: {R: 4, G: 5, B: 6},
		region.F: {R: 40, G: 50, B: 60},
	}
	out, err := s.Recolor(p)
	require.NoError(t, err)

	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 40, G: 50, B: 60, A: 255}, out.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{R: 91, G: 9, B: 13, A: 255}, out.NRGBAAt(2, 0))
	assert.Equal(t, color.NRGBA{R: 1, G: 1, B: 1, A: 255}, out.NRGBAAt(3, 0))

	assert.Equal(t, color.NRGBA{R: 1, G: 1, B: 1, A: 255}, s.Base.NRGBAAt(0, 0), "base not mutated")
}

func TestMaskPriorityThresholds(t *testing.T) {
	s := newMaskStrategy(3, 1, color.NRGBA{R: 5, G: 5, B: 5, A: 255})
	s.Base.SetNRGBA(0, 0, color.NRGBA{R: 5, G: 5, B: 5, A: 127})
	s.MainMasks[region.A] = maskAt(3, 1, 255, image.Pt(0, 0))
	s.MainMasks[region.A].SetNRGBA(1, 0, color.NRGBA{A: 128})
	s.MainMasks[region.A].SetNRGBA(2, 0, color.NRGBA{A: 129})

	out, err := s.Recolor(fullPalette(colorutil.RGB{R: 200}))
	require.NoError(t, err)

	assert.Equal(t, color.NRGBA{R: 5, G: 5, B: 5, A: 127}, out.NRGBAAt(0, 0), "transparent base skipped")
	assert.Equal(t, color.NRGBA{R: 5, G: 5, B: 5, A: 255}, out.NRGBAAt(1, 0), "alpha 128 does not claim")
	assert.Equal(t, color.NRGBA{R: 200, A: 255}, out.NRGBAAt(2, 0))
}

func TestMaskPriorityCoefficientFallback(t *testing.T) {
	s := newMaskStrategy(1, 1, color.NRGBA{A: 255})
	s.BackgroundMasks[region.E] = maskAt(1, 1, 255, image.Pt(0, 0))

	main := colorutil.RGB{R: 255, G: 129, B: 46}
	out, err := s.Recolor(region.Palette{region.E: main})
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 205, G: 92, B: 34, A: 255}, out.NRGBAAt(0, 0))
}

func TestMaskPriorityIncomplete(t *testing.T) {
	s := &MaskPriority{}
	err := s.Ready()
	require.ErrorIs(t, err, ErrAssetsIncomplete)
	assert.Contains(t, err.Error(), "base")
	assert.Contains(t, err.Error(), "mask F")
}

func TestRemap(t *testing.T) {
	// ratio 2/10 applied to 200 gives 240.
	assert.Equal(t, uint8(240), Remap(12, 10, 200))
	assert.Equal(t, uint8(200), Remap(10, 10, 200))
	assert.Equal(t, uint8(255), Remap(30, 10, 200), "overflow clamps")
	assert.Equal(t, uint8(0), Remap(0, 200, 50), "ratio -1 gives 0")
	// original 0 divides by 1: 0 → 3 is a ratio of 3.
	assert.Equal(t, uint8(40), Remap(3, 0, 10))
}

func TestToleranceMatch(t *testing.T) {
	originals := region.Palette{
		region.A: {R: 10, G: 10, B: 10},
		region.B: {R: 200, G: 0, B: 0},
		region.C: {R: 0, G: 200, B: 0},
		region.D: {R: 0, G: 0, B: 200},
		region.E: {R: 100, G: 100, B: 0},
		region.F: {R: 0, G: 100, B: 100},
	}
	base := image.NewNRGBA(image.Rect(0, 0, 4, 1))
	base.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 10, B: 12, A: 255})
	base.SetNRGBA(1, 0, color.NRGBA{R: 128, G: 128, B: 250, A: 255})
	base.SetNRGBA(2, 0, color.NRGBA{R: 10, G: 10, B: 12, A: 127})
	base.SetNRGBA(3, 0, color.NRGBA{R: 190, G: 0, B: 0, A: 128})

	st, err := NewStrategy(KindTolerance, Sources{Base: base}, Options{
		Originals:           originals,
		ColorTolerance:      30,
		BackgroundTolerance: 80,
	})
	require.NoError(t, err)

	p := fullPalette(colorutil.RGB{R: 200, G: 200, B: 200})
	p[region.B] = colorutil.RGB{R: 100, G: 50, B: 25}
	out, err := st.Recolor(p)
	require.NoError(t, err)

	assert.Equal(t, color.NRGBA{R: 200, G: 200, B: 240, A: 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 128, G: 128, B: 250, A: 255}, out.NRGBAAt(1, 0), "no region in tolerance")
	assert.Equal(t, color.NRGBA{R: 10, G: 10, B: 12, A: 127}, out.NRGBAAt(2, 0), "translucent pixel skipped")
	// 190 vs 200 is a ratio of -0.05; 100 × 0.95 = 95. Zero channels divide by 1.
	assert.Equal(t, color.NRGBA{R: 95, G: 50, B: 25, A: 128}, out.NRGBAAt(3, 0))

	assert.Equal(t, color.NRGBA{R: 10, G: 10, B: 12, A: 255}, base.NRGBAAt(0, 0), "base not mutated")
}

func TestToleranceMatchNearestWins(t *testing.T) {
	s := &ToleranceMatch{
		Originals: region.Palette{
			region.A: {R: 100, G: 100, B: 100},
			region.B: {R: 110, G: 100, B: 100},
		},
		Tolerances: [region.Count]float64{5, 80, 80, 80, 80, 80},
	}
	for _, id := range region.All[2:] {
		s.Originals[id] = colorutil.RGB{R: 255, G: 255, B: 255}
	}
	px := []float64{104, 100, 100}
	var orig [region.Count][]float64
	for _, id := range region.All {
		o := s.Originals[id]
		orig[id] = []float64{float64(o.R), float64(o.G), float64(o.B)}
	}

	id, ok := s.match(px, &orig)
	require.True(t, ok)
	assert.Equal(t, region.A, id, "A is nearest and within its tolerance")

	px[0] = 107
	id, ok = s.match(px, &orig)
	require.True(t, ok)
	assert.Equal(t, region.B, id, "A out of tolerance, B qualifies")

	px[0] = 105
	id, ok = s.match(px, &orig)
	require.True(t, ok)
	assert.Equal(t, region.A, id, "ties go to the earlier region")
}

func TestCoefficients(t *testing.T) {
	k := DefaultCoefficients().For(region.B)
	got := k.Apply(colorutil.RGB{R: 175, G: 19, B: 19})
	assert.Equal(t, colorutil.RGB{R: 91, G: 9, B: 13}, got)

	assert.Equal(t, DefaultCoefficients()[region.C], DefaultCoefficients().For(region.F))
	assert.Equal(t, Identity, DefaultCoefficients().For(region.A))
	assert.Equal(t, Identity, CoefficientSet{}.For(region.D))

	d := DeriveCoefficients(colorutil.HexToRGB("#AF1313"), colorutil.HexToRGB("#5B090D"))
	assert.InDelta(t, 91.0/175, d.R, 1e-9)
	assert.InDelta(t, 9.0/19, d.G, 1e-9)
	assert.InDelta(t, 13.0/19, d.B, 1e-9)
	assert.Equal(t, 1.0, DeriveCoefficients(colorutil.RGB{}, colorutil.RGB{R: 5}).R)
}

func TestCoefficientsFromArt(t *testing.T) {
	base := image.NewNRGBA(image.Rect(0, 0, 4, 1))
	base.SetNRGBA(0, 0, color.NRGBA{R: 170, G: 20, B: 18, A: 255})
	base.SetNRGBA(1, 0, color.NRGBA{R: 180, G: 18, B: 20, A: 255})
	base.SetNRGBA(2, 0, color.NRGBA{R: 91, G: 9, B: 13, A: 255})
	base.SetNRGBA(3, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 10})

	mainMask := maskAt(4, 1, 255, image.Pt(0, 0), image.Pt(1, 0))
	bgMask := maskAt(4, 1, 255, image.Pt(2, 0), image.Pt(3, 0))

	k, ok := CoefficientsFromArt(base, mainMask, bgMask)
	require.True(t, ok)
	assert.InDelta(t, 91.0/175, k.R, 1e-9)
	assert.InDelta(t, 9.0/19, k.G, 1e-9)
	assert.InDelta(t, 13.0/19, k.B, 1e-9)

	_, ok = CoefficientsFromArt(base, mainMask, maskAt(4, 1, 0))
	assert.False(t, ok)
}

func TestEngineSuppressesIncomplete(t *testing.T) {
	st, err := NewStrategy(KindMask, Sources{}, Options{})
	require.NoError(t, err)
	e := NewEngine(st, zaptest.NewLogger(t))
	assert.Equal(t, "mask", e.Strategy().Name())

	out, err := e.Recolor(region.Palette{})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrAssetsIncomplete)
}

func TestEngineRuns(t *testing.T) {
	st, err := NewStrategy(KindTolerance, Sources{Base: solid(2, 2, color.NRGBA{R: 10, G: 10, B: 10, A: 255})}, Options{
		Originals:           region.Palette{region.A: {R: 10, G: 10, B: 10}},
		ColorTolerance:      30,
		BackgroundTolerance: 80,
	})
	require.NoError(t, err)

	out, err := NewEngine(st, nil).Recolor(region.Palette{region.A: {R: 50, G: 60, B: 70}})
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 50, G: 60, B: 70, A: 255}, out.NRGBAAt(1, 1))
}
