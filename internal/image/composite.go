package image

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
)

// BlendMode specifies how layers are composited.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
	BlendOverlay
	BlendDifference
)

func (m BlendMode) String() string {
	switch m {
	case BlendNormal:
		return "Normal"
	case BlendMultiply:
		return "Multiply"
	case BlendScreen:
		return "Screen"
	case BlendOverlay:
		return "Overlay"
	case BlendDifference:
		return "Difference"
	default:
		return "Unknown"
	}
}

// ParseBlendMode accepts the lower-case mode names used in configuration.
// An empty string selects BlendNormal ("source-over").
func ParseBlendMode(s string) (BlendMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "source-over":
		return BlendNormal, nil
	case "multiply":
		return BlendMultiply, nil
	case "screen":
		return BlendScreen, nil
	case "overlay":
		return BlendOverlay, nil
	case "difference":
		return BlendDifference, nil
	default:
		return BlendNormal, fmt.Errorf("unknown blend mode %q", s)
	}
}

// Composite combines multiple layers into a single image.
type Composite struct {
	Width     int
	Height    int
	Layers    []*CompositeLayer
	BackColor color.NRGBA
}

// CompositeLayer wraps a Layer with compositing settings.
type CompositeLayer struct {
	Layer     *Layer
	BlendMode BlendMode
	OffsetX   int
	OffsetY   int
}

// NewComposite creates a new Composite with the specified dimensions and a
// transparent background.
func NewComposite(width, height int) *Composite {
	return &Composite{
		Width:  width,
		Height: height,
	}
}

// AddLayer adds a layer to the composite. Layers are drawn in insertion
// order, bottom to top.
func (c *Composite) AddLayer(layer *Layer, mode BlendMode, offsetX, offsetY int) {
	c.Layers = append(c.Layers, &CompositeLayer{
		Layer:     layer,
		BlendMode: mode,
		OffsetX:   offsetX,
		OffsetY:   offsetY,
	})
}

// Render produces the final composited image.
func (c *Composite) Render() *image.NRGBA {
	result := Fill(c.Width, c.Height, c.BackColor)

	for _, cl := range c.Layers {
		if cl.Layer == nil || cl.Layer.Image == nil || !cl.Layer.Visible {
			continue
		}
		c.compositeLayer(result, cl)
	}

	return result
}

// compositeLayer blends a single layer onto the result.
func (c *Composite) compositeLayer(dst *image.NRGBA, cl *CompositeLayer) {
	DrawOver(dst, cl.Layer.Image, cl.OffsetX, cl.OffsetY, cl.BlendMode, cl.Layer.Opacity)
}

// DrawOver composites src onto dst at the given offset using the blend mode
// followed by source-over alpha compositing.
func DrawOver(dst, src *image.NRGBA, offsetX, offsetY int, mode BlendMode, opacity float64) {
	srcBounds := src.Bounds()
	dstBounds := dst.Bounds()

	for y := srcBounds.Min.Y; y < srcBounds.Max.Y; y++ {
		dstY := y - srcBounds.Min.Y + offsetY + dstBounds.Min.Y
		if dstY < dstBounds.Min.Y || dstY >= dstBounds.Max.Y {
			continue
		}

		for x := srcBounds.Min.X; x < srcBounds.Max.X; x++ {
			dstX := x - srcBounds.Min.X + offsetX + dstBounds.Min.X
			if dstX < dstBounds.Min.X || dstX >= dstBounds.Max.X {
				continue
			}

			si := src.PixOffset(x, y)
			if src.Pix[si+3] == 0 {
				continue
			}
			di := dst.PixOffset(dstX, dstY)
			blendPixel(dst.Pix[di:di+4:di+4], src.Pix[si:si+4:si+4], mode, opacity)
		}
	}
}

// blendPixel performs the blend operation between two non-premultiplied
// pixels, writing the result into dst.
func blendPixel(dst, src []uint8, mode BlendMode, opacity float64) {
	// Convert to 0-1 range
	sf := [4]float64{float64(src[0]) / 255, float64(src[1]) / 255, float64(src[2]) / 255, float64(src[3]) / 255}
	df := [4]float64{float64(dst[0]) / 255, float64(dst[1]) / 255, float64(dst[2]) / 255, float64(dst[3]) / 255}

	var rf [3]float64

	switch mode {
	case BlendMultiply:
		rf[0] = sf[0] * df[0]
		rf[1] = sf[1] * df[1]
		rf[2] = sf[2] * df[2]

	case BlendScreen:
		rf[0] = 1 - (1-sf[0])*(1-df[0])
		rf[1] = 1 - (1-sf[1])*(1-df[1])
		rf[2] = 1 - (1-sf[2])*(1-df[2])

	case BlendOverlay:
		for i := 0; i < 3; i++ {
			if df[i] < 0.5 {
				rf[i] = 2 * sf[i] * df[i]
			} else {
				rf[i] = 1 - 2*(1-sf[i])*(1-df[i])
			}
		}

	case BlendDifference:
		rf[0] = math.Abs(sf[0] - df[0])
		rf[1] = math.Abs(sf[1] - df[1])
		rf[2] = math.Abs(sf[2] - df[2])

	default:
		rf[0] = sf[0]
		rf[1] = sf[1]
		rf[2] = sf[2]
	}

	// Over a transparent backdrop the blend mode has nothing to mix with.
	if mode != BlendNormal {
		for i := 0; i < 3; i++ {
			rf[i] = rf[i]*df[3] + sf[i]*(1-df[3])
		}
	}

	alpha := sf[3] * opacity
	outA := alpha + df[3]*(1-alpha)
	if outA <= 0 {
		dst[0], dst[1], dst[2], dst[3] = 0, 0, 0, 0
		return
	}
	for i := 0; i < 3; i++ {
		v := (rf[i]*alpha + df[i]*df[3]*(1-alpha)) / outA
		dst[i] = to8(v)
	}
	dst[3] = to8(outA)
}

func to8(v float64) uint8 {
	return uint8(math.Round(clamp(v, 0, 1) * 255))
}

func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
