package image

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePNG(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.SetNRGBA(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 40})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 40}, img.NRGBAAt(1, 1))
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

func TestToNRGBAKeepsLowAlphaColor(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 7, 7))
	src.SetNRGBA(6, 6, color.NRGBA{R: 201, G: 99, B: 3, A: 2})

	out := ToNRGBA(src)
	assert.Equal(t, image.Rect(0, 0, 2, 2), out.Bounds())
	assert.Equal(t, color.NRGBA{R: 201, G: 99, B: 3, A: 2}, out.NRGBAAt(1, 1))

	out.SetNRGBA(1, 1, color.NRGBA{})
	assert.Equal(t, uint8(201), src.NRGBAAt(6, 6).R, "source must not alias")
}

func TestCloneIsIndependent(t *testing.T) {
	src := Fill(2, 2, color.NRGBA{R: 1, A: 255})
	dup := Clone(src)
	dup.SetNRGBA(0, 0, color.NRGBA{R: 9, A: 255})
	assert.Equal(t, uint8(1), src.NRGBAAt(0, 0).R)
	assert.Nil(t, Clone(nil))
}

func TestScaleAndFit(t *testing.T) {
	assert.Equal(t, 1.0, FitScale(800, 1200))
	assert.Equal(t, 0.5, FitScale(2400, 1200))
	assert.Equal(t, 1.0, FitScale(2400, 0))

	src := Fill(40, 20, color.NRGBA{R: 255, A: 255})
	half := Scale(src, 0.5)
	assert.Equal(t, image.Rect(0, 0, 20, 10), half.Bounds())
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, half.NRGBAAt(10, 5))
}

func TestOpaqueThreshold(t *testing.T) {
	mask := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	mask.SetNRGBA(0, 0, color.NRGBA{A: 128})
	mask.SetNRGBA(1, 0, color.NRGBA{A: 129})

	assert.False(t, Opaque(mask, 0, 0), "threshold itself is not opaque")
	assert.True(t, Opaque(mask, 1, 0))
	assert.False(t, Opaque(mask, 2, 0))
	assert.False(t, Opaque(mask, 9, 9))
	assert.False(t, Opaque(nil, 0, 0))
}

func TestCompositeSourceOver(t *testing.T) {
	c := NewComposite(2, 1)
	c.BackColor = color.NRGBA{R: 0, G: 0, B: 255, A: 255}

	top := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	top.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	top.SetNRGBA(1, 0, color.NRGBA{R: 255, A: 0})
	c.AddLayer(NewLayer("top", top), BlendNormal, 0, 0)

	out := c.Render()
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, out.NRGBAAt(1, 0))
}

func TestCompositeHalfAlpha(t *testing.T) {
	dst := Fill(1, 1, color.NRGBA{R: 0, G: 0, B: 0, A: 255})
	src := Fill(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 128})
	DrawOver(dst, src, 0, 0, BlendNormal, 1)

	px := dst.NRGBAAt(0, 0)
	assert.InDelta(t, 128, int(px.R), 1)
	assert.Equal(t, uint8(255), px.A)
}

func TestCompositeOntoTransparentKeepsColor(t *testing.T) {
	dst := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src := Fill(1, 1, color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 200})
	DrawOver(dst, src, 0, 0, BlendMultiply, 1)
	assert.Equal(t, color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 200}, dst.NRGBAAt(0, 0))
}

func TestCompositeHiddenLayerAndOffset(t *testing.T) {
	c := NewComposite(3, 1)
	hidden := NewLayer("hidden", Fill(3, 1, color.NRGBA{R: 255, A: 255}))
	hidden.Visible = false
	c.AddLayer(hidden, BlendNormal, 0, 0)
	c.AddLayer(NewLayer("dot", Fill(1, 1, color.NRGBA{G: 255, A: 255})), BlendNormal, 2, 0)

	out := c.Render()
	assert.Equal(t, color.NRGBA{}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{G: 255, A: 255}, out.NRGBAAt(2, 0))
}

func TestBlendModes(t *testing.T) {
	gray := color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}

	dst := Fill(1, 1, gray)
	DrawOver(dst, Fill(1, 1, white), 0, 0, BlendMultiply, 1)
	assert.Equal(t, gray, dst.NRGBAAt(0, 0))

	dst = Fill(1, 1, gray)
	DrawOver(dst, Fill(1, 1, white), 0, 0, BlendDifference, 1)
	assert.Equal(t, uint8(127), dst.NRGBAAt(0, 0).R)

	dst = Fill(1, 1, gray)
	DrawOver(dst, Fill(1, 1, color.NRGBA{A: 255}), 0, 0, BlendScreen, 1)
	assert.Equal(t, gray, dst.NRGBAAt(0, 0))
}

func TestParseBlendMode(t *testing.T) {
	for in, want := range map[string]BlendMode{
		"":            BlendNormal,
		"source-over": BlendNormal,
		"Multiply":    BlendMultiply,
		"screen":      BlendScreen,
		"overlay":     BlendOverlay,
		"difference":  BlendDifference,
	} {
		got, err := ParseBlendMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseBlendMode("dodge")
	assert.Error(t, err)
	assert.Equal(t, "Multiply", BlendMultiply.String())
}
