package recolor

import (
	"image"

	"keycap-preview/internal/compositor"
	kimage "keycap-preview/internal/image"
	"keycap-preview/internal/region"
)

// DrawOrder is the bottom-to-top stacking of region layers. The frame is
// drawn after the last one.
var DrawOrder = [region.Count]region.ID{region.F, region.E, region.D, region.C, region.B, region.A}

// LayerReplace recolors discrete per-region layer art. Every pixel with any
// coverage takes the flat target RGB and keeps its alpha; layers are then
// composited source-over on a smart backdrop.
type LayerReplace struct {
	Layers     [region.Count]*image.NRGBA
	Frame      *image.NRGBA
	FrameBlend kimage.BlendMode

	// BackdropRegion supplies the theme color for SmartBackground.
	BackdropRegion region.ID
	Originals      region.Palette
}

func (s *LayerReplace) Name() string { return string(KindLayer) }

func (s *LayerReplace) Ready() error {
	var missing []string
	for _, id := range region.All {
		if s.Layers[id] == nil {
			missing = append(missing, "layer "+id.String())
		}
	}
	return missingError(missing)
}

// Size returns the canvas size, the union of all layer bounds.
func (s *LayerReplace) Size() image.Point {
	var r image.Rectangle
	for _, l := range s.Layers {
		if l != nil {
			r = r.Union(image.Rect(0, 0, l.Bounds().Dx(), l.Bounds().Dy()))
		}
	}
	if s.Frame != nil {
		r = r.Union(image.Rect(0, 0, s.Frame.Bounds().Dx(), s.Frame.Bounds().Dy()))
	}
	return r.Size()
}

func (s *LayerReplace) Recolor(p region.Palette) (*image.NRGBA, error) {
	if err := s.Ready(); err != nil {
		return nil, err
	}

	theme, ok := p[s.BackdropRegion]
	if !ok {
		theme = s.Originals[s.BackdropRegion]
	}
	size := s.Size()
	comp := kimage.NewComposite(size.X, size.Y)
	comp.BackColor = compositor.SmartBackground(theme).NRGBA()

	for _, id := range DrawOrder {
		art := s.Layers[id]
		if c, ok := p[id]; ok {
			art = ReplaceRGB(art, c.R, c.G, c.B)
		}
		comp.AddLayer(kimage.NewLayer(id.String(), art), kimage.BlendNormal, 0, 0)
	}
	if s.Frame != nil {
		comp.AddLayer(kimage.NewLayer("Frame", s.Frame), s.FrameBlend, 0, 0)
	}
	return comp.Render(), nil
}

// ReplaceRGB returns a copy of src whose pixels with alpha > 0 carry the
// given RGB. Alpha is preserved exactly.
func ReplaceRGB(src *image.NRGBA, r, g, b uint8) *image.NRGBA {
	out := kimage.Clone(src)
	for i := 0; i+3 < len(out.Pix); i += 4 {
		if out.Pix[i+3] == 0 {
			continue
		}
		out.Pix[i] = r
		out.Pix[i+1] = g
		out.Pix[i+2] = b
	}
	return out
}
