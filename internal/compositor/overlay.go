package compositor

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	kimage "keycap-preview/internal/image"
	"keycap-preview/internal/region"
	"keycap-preview/pkg/colorutil"
	"keycap-preview/pkg/geometry"
)

// Fonts holds the parsed decorative fonts. Either may be nil.
type Fonts struct {
	Display *opentype.Font
	Script  *opentype.Font
}

var (
	fallbackOnce sync.Once
	fallbackFont *opentype.Font
	fallbackErr  error
)

// boldFallback returns Go Bold, parsed once.
func boldFallback() (*opentype.Font, error) {
	fallbackOnce.Do(func() {
		fallbackFont, fallbackErr = ParseFont(gobold.TTF)
	})
	return fallbackFont, fallbackErr
}

// ParseFont parses TrueType or OpenType data.
func ParseFont(data []byte) (*opentype.Font, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return f, nil
}

// Input is everything the overlay reads for one pass.
type Input struct {
	Palette        region.Palette
	Originals      region.Palette
	CatalogIndexes [region.Count]int
	Text           Text
	// Scale maps original-art coordinates onto the canvas.
	Scale float64
}

func (in Input) colorOf(id region.ID) colorutil.RGB {
	if c, ok := in.Palette[id]; ok {
		return c
	}
	return in.Originals[id]
}

// Overlay draws the decorative text layer.
type Overlay struct {
	Layout Layout
	Fonts  Fonts
	logger *zap.Logger
}

// NewOverlay creates an overlay. A nil logger discards output.
func NewOverlay(layout Layout, fonts Fonts, logger *zap.Logger) *Overlay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Overlay{Layout: layout, Fonts: fonts, logger: logger}
}

// Draw paints every overlay element onto dst with source-over blending.
// Elements whose font is missing are skipped, except the watermark, which
// falls back to Go Bold.
func (o *Overlay) Draw(dst *image.NRGBA, in Input) {
	if !o.Layout.Enabled {
		return
	}
	if in.Scale <= 0 {
		in.Scale = 1
	}

	o.drawWatermark(dst, in)

	if o.Fonts.Display == nil {
		o.logger.Warn("display font not loaded, skipping overlay text",
			zap.String("year", in.Text.Year),
			zap.String("word", in.Text.Word))
	} else {
		if in.Text.Year != "" {
			o.drawPlacement(dst, o.Fonts.Display, o.Layout.Year, in, region.B, in.Text.Year)
		}
		if in.Text.Word != "" {
			o.drawPlacement(dst, o.Fonts.Display, o.Layout.Word, in, region.B, Capitalize(in.Text.Word))
		}
		o.drawLabels(dst, in)
		if header := in.Text.Header(); header != "" {
			o.drawPlacement(dst, o.Fonts.Display, o.Layout.Header, in, region.F, header)
		}
	}

	if word := in.Text.ScriptWord(); word != "" {
		if o.Fonts.Script == nil {
			o.logger.Warn("script font not loaded, skipping script word", zap.String("word", word))
		} else {
			o.drawPlacement(dst, o.Fonts.Script, o.Layout.Script, in, region.B, Capitalize(word))
		}
	}
}

func (o *Overlay) drawWatermark(dst *image.NRGBA, in Input) {
	wm := o.Layout.Watermark
	if wm.Text == "" {
		return
	}
	f := o.Fonts.Display
	if f == nil {
		fb, err := boldFallback()
		if err != nil {
			o.logger.Warn("display font not loaded and fallback failed, skipping watermark", zap.Error(err))
			return
		}
		o.logger.Warn("display font not loaded, drawing watermark in Go Bold")
		f = fb
	}

	width := float64(dst.Bounds().Dx())
	height := float64(dst.Bounds().Dy())
	size := math.Max(wm.MinSize, width*wm.SizeRatio)

	face, err := newFace(f, size)
	if err != nil {
		o.logger.Warn("failed to create watermark face", zap.Error(err))
		return
	}
	defer face.Close()

	spacing := size * wm.Spacing
	letters := []rune(wm.Text)
	widths := make([]float64, len(letters))
	total := 0.0
	for i, r := range letters {
		widths[i] = advance(face, r)
		total += widths[i]
		if i < len(letters)-1 {
			total += spacing
		}
	}

	x := math.Max(wm.Padding, width-wm.Padding-total)
	// Baseline sits at the bottom of the line box.
	bottom := height - wm.Padding
	top := bottom - lineHeight(face)

	shadow := color.NRGBA{A: colorutil.ClampRound(wm.ShadowAlpha * 255)}
	for i, r := range letters {
		mask := renderText(face, string(r), 0)
		at := geometry.Translation(x, top)
		if wm.ShadowOffset != 0 && shadow.A > 0 {
			blit(dst, mask, geometry.Translation(x+wm.ShadowOffset, top+wm.ShadowOffset), shadow)
		}
		fill := in.colorOf(region.A)
		if id, ok := wm.LetterRegion(r); ok {
			fill = in.colorOf(id)
		}
		blit(dst, mask, at, fill.NRGBA())
		x += widths[i] + spacing
	}
}

func (o *Overlay) drawLabels(dst *image.NRGBA, in Input) {
	p := o.Layout.Labels
	face, err := newFace(o.Fonts.Display, p.Size*in.Scale)
	if err != nil {
		o.logger.Warn("failed to create label face", zap.Error(err))
		return
	}
	defer face.Close()

	fill := in.colorOf(p.FillRegion(region.F)).NRGBA()
	lh := p.Size * in.Scale * p.LineHeight
	if lh <= 0 {
		lh = lineHeight(face)
	}
	for i, id := range region.All {
		mask := renderText(face, Label(id, in.CatalogIndexes[i]), p.Spacing*p.Size*in.Scale)
		at := geometry.Translation(p.X*in.Scale, p.Y*in.Scale+float64(i)*lh)
		blit(dst, mask, at, fill)
	}
}

// Label formats one catalog line, "A - 12" or "A -" when unset.
func Label(id region.ID, index int) string {
	if index > 0 {
		return fmt.Sprintf("%s - %d", id, index)
	}
	return fmt.Sprintf("%s -", id)
}

func (o *Overlay) drawPlacement(dst *image.NRGBA, f *opentype.Font, p Placement, in Input, def region.ID, s string) {
	size := p.Size * in.Scale
	face, err := newFace(f, size)
	if err != nil {
		o.logger.Warn("failed to create face", zap.String("text", s), zap.Error(err))
		return
	}
	defer face.Close()

	mask := renderText(face, s, p.Spacing*size)
	blit(dst, mask, p.transform(in.Scale), in.colorOf(p.FillRegion(def)).NRGBA())
}

// transform places text local coordinates onto the canvas: skew about the
// anchor, then move to the scaled anchor.
func (p Placement) transform(scale float64) geometry.AffineTransform {
	at := geometry.Translation(p.X*scale, p.Y*scale)
	if p.Skew != 0 {
		at = at.Compose(geometry.SkewX(p.Skew))
	}
	return at
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid font size %v", size)
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

func advance(face font.Face, r rune) float64 {
	adv, ok := face.GlyphAdvance(r)
	if !ok {
		return 0
	}
	return fix2f(adv)
}

func lineHeight(face font.Face) float64 {
	m := face.Metrics()
	return fix2f(m.Ascent + m.Descent)
}

func fix2f(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

// renderText rasterizes s into a coverage mask whose origin is the top-left
// of the line box. spacing is added after every character but the last.
func renderText(face font.Face, s string, spacing float64) *image.Alpha {
	runes := []rune(s)
	m := face.Metrics()
	ascent := fix2f(m.Ascent)

	width := 0.0
	for i, r := range runes {
		width += advance(face, r)
		if i < len(runes)-1 {
			width += spacing
		}
	}
	// Glyphs may overhang their advance, so leave room on both sides.
	pad := int(math.Ceil(lineHeight(face) / 2))
	w := int(math.Ceil(width)) + 2*pad
	h := int(math.Ceil(lineHeight(face))) + 2*pad
	mask := image.NewAlpha(image.Rect(-pad, -pad, w-pad, h-pad))

	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
	}
	x := 0.0
	for _, r := range runes {
		d.Dot = fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(ascent * 64)}
		d.DrawString(string(r))
		x += advance(face, r) + spacing
	}
	return mask
}

// blit paints fill through mask, placed on dst by the transform at.
func blit(dst *image.NRGBA, mask *image.Alpha, at geometry.AffineTransform, fill color.NRGBA) {
	inv, ok := at.Inverse()
	if !ok {
		return
	}
	area := at.Bounds(mask.Bounds()).Intersect(dst.Bounds())
	if area.Empty() {
		return
	}

	src := image.NewNRGBA(image.Rect(0, 0, area.Dx(), area.Dy()))
	painted := false
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			q := inv.Apply(geometry.Point2D{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			mx, my := int(math.Floor(q.X)), int(math.Floor(q.Y))
			if !(image.Point{X: mx, Y: my}.In(mask.Rect)) {
				continue
			}
			cov := mask.AlphaAt(mx, my).A
			if cov == 0 {
				continue
			}
			src.SetNRGBA(x-area.Min.X, y-area.Min.Y, color.NRGBA{
				R: fill.R,
				G: fill.G,
				B: fill.B,
				A: uint8(uint32(cov) * uint32(fill.A) / 255),
			})
			painted = true
		}
	}
	if painted {
		kimage.DrawOver(dst, src, area.Min.X-dst.Rect.Min.X, area.Min.Y-dst.Rect.Min.Y, kimage.BlendNormal, 1)
	}
}
