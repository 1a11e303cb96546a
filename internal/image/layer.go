// Package image provides raster loading, copying, scaling and layer
// compositing.
package image

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/disintegration/imageorient"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// AlphaThreshold is the alpha above which a mask pixel belongs to its region.
const AlphaThreshold = 128

// Layer represents a single raster layer of the illustration.
type Layer struct {
	Name    string       // Region or frame name
	Path    string       // Source file path
	Image   *image.NRGBA // Non-premultiplied pixels
	Visible bool         // Layer visibility
	Opacity float64      // Layer opacity (0.0 - 1.0)
}

// NewLayer creates a visible, fully opaque layer around img.
func NewLayer(name string, img *image.NRGBA) *Layer {
	return &Layer{
		Name:    name,
		Image:   img,
		Visible: true,
		Opacity: 1.0,
	}
}

// Load loads an image from the specified path and returns a Layer.
func Load(name, path string) (*Layer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	layer := NewLayer(name, img)
	layer.Path = path
	return layer, nil
}

// Decode reads any supported format, applies EXIF orientation and returns
// non-premultiplied pixels.
func Decode(r io.Reader) (*image.NRGBA, error) {
	img, _, err := imageorient.Decode(r)
	if err != nil {
		return nil, err
	}
	return ToNRGBA(img), nil
}

// Width returns the image width in pixels.
func (l *Layer) Width() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (l *Layer) Height() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dy()
}

// ToNRGBA converts any image to an NRGBA raster anchored at the origin.
// The result never aliases img.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		// Row copy keeps RGB exact under low alpha.
		for y := 0; y < b.Dy(); y++ {
			srcOff := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()*4], src.Pix[srcOff:srcOff+b.Dx()*4])
		}
		return dst
	}
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Clone returns a deep copy of img.
func Clone(img *image.NRGBA) *image.NRGBA {
	if img == nil {
		return nil
	}
	out := &image.NRGBA{
		Pix:    make([]uint8, len(img.Pix)),
		Stride: img.Stride,
		Rect:   img.Rect,
	}
	copy(out.Pix, img.Pix)
	return out
}

// Scale resizes img by factor with Catmull-Rom resampling. A factor of 1
// returns a copy.
func Scale(img *image.NRGBA, factor float64) *image.NRGBA {
	if factor == 1 || img == nil {
		return Clone(img)
	}
	b := img.Bounds()
	w := max(1, int(float64(b.Dx())*factor))
	h := max(1, int(float64(b.Dy())*factor))
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// FitScale returns the factor that shrinks width to at most maxWidth.
// Images are never enlarged.
func FitScale(width, maxWidth int) float64 {
	if maxWidth <= 0 || width <= maxWidth {
		return 1
	}
	return float64(maxWidth) / float64(width)
}

// Fill returns a w×h raster filled with c.
func Fill(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// Opaque reports whether the pixel at (x, y) of a mask exceeds AlphaThreshold.
// Pixels outside the mask are never opaque.
func Opaque(mask *image.NRGBA, x, y int) bool {
	if mask == nil || !(image.Point{X: x, Y: y}.In(mask.Rect)) {
		return false
	}
	return mask.Pix[mask.PixOffset(x, y)+3] > AlphaThreshold
}
