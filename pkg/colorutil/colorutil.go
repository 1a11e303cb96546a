// Package colorutil provides the color model shared by the recoloring engine,
// the compositor and the catalog picker.
package colorutil

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB is an opaque 24-bit color.
type RGB struct {
	R, G, B uint8
}

// Common fill colors used by the compositor.
var (
	Black     = RGB{0, 0, 0}
	White     = RGB{255, 255, 255}
	LightGray = RGB{0xE8, 0xE8, 0xE8} // complementary fallback
	PaleGray  = RGB{0xE0, 0xE0, 0xE0} // too-dark background fallback
)

// HexToRGB parses "#rrggbb" or "rrggbb", case-insensitive.
// Malformed input yields black.
func HexToRGB(hex string) RGB {
	c, err := ParseHex(hex)
	if err != nil {
		return Black
	}
	return c
}

// ParseHex is HexToRGB with an error for malformed input.
func ParseHex(hex string) (RGB, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) != 6 {
		return Black, fmt.Errorf("invalid hex color %q: must be 6 hex digits", hex)
	}
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return Black, fmt.Errorf("invalid hex color %q: bad digit %q", hex, s[i])
		}
	}
	c, err := colorful.Hex("#" + strings.ToLower(s))
	if err != nil {
		return Black, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return RGB{r, g, b}, nil
}

func isHexDigit(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// Hex returns the lower-case "#rrggbb" form used for storage.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// DisplayHex returns the upper-case "#RRGGBB" form shown to users.
func (c RGB) DisplayHex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// String implements fmt.Stringer.
func (c RGB) String() string {
	return c.DisplayHex()
}

// NRGBA returns c as an opaque color.NRGBA.
func (c RGB) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// FromColor drops alpha from any color.Color after un-premultiplying it.
func FromColor(c color.Color) RGB {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{n.R, n.G, n.B}
}

// Brightness returns perceptual luma in [0,255].
func Brightness(c RGB) float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

// RGBToHSL converts to hue in degrees [0,360) and saturation/lightness in [0,1].
func RGBToHSL(c RGB) (h, s, l float64) {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hsl()
}

// HSLToRGB converts back, rounding each channel to the nearest integer.
func HSLToRGB(h, s, l float64) RGB {
	r, g, b := colorful.Hsl(math.Mod(h, 360), s, l).Clamped().RGB255()
	return RGB{r, g, b}
}

// Complementary rotates the hue by 180 degrees, mutes the saturation and
// flips the lightness to the opposite end so the result reads as a
// background behind c.
func Complementary(c RGB) RGB {
	h, s, l := RGBToHSL(c)
	h = math.Mod(h+180, 360)
	s = math.Min(0.4, s*0.6)
	if l < 0.3 {
		l = 0.85
	} else {
		l = 0.15
	}
	return HSLToRGB(h, s, l)
}

// RelativeLuminance is the WCAG 2.0 relative luminance of c.
func RelativeLuminance(c RGB) float64 {
	lin := func(v uint8) float64 {
		f := float64(v) / 255
		if f <= 0.03928 {
			return f / 12.92
		}
		return math.Pow((f+0.055)/1.055, 2.4)
	}
	return 0.2126*lin(c.R) + 0.7152*lin(c.G) + 0.0722*lin(c.B)
}

// ContrastRatio returns the WCAG contrast ratio between two colors, in [1,21].
func ContrastRatio(c1, c2 RGB) float64 {
	l1 := RelativeLuminance(c1)
	l2 := RelativeLuminance(c2)
	lighter := math.Max(l1, l2)
	darker := math.Min(l1, l2)
	return (lighter + 0.05) / (darker + 0.05)
}

// Darken multiplies each channel by factor (expected in [0,1]).
func Darken(c RGB, factor float64) RGB {
	return scale(c, factor)
}

// Lighten multiplies each channel by factor (expected > 1).
func Lighten(c RGB, factor float64) RGB {
	return scale(c, factor)
}

func scale(c RGB, factor float64) RGB {
	return RGB{
		R: floorClamp(float64(c.R) * factor),
		G: floorClamp(float64(c.G) * factor),
		B: floorClamp(float64(c.B) * factor),
	}
}

func floorClamp(v float64) uint8 {
	v = math.Floor(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// ClampRound rounds v to the nearest integer after clamping to [0,255].
func ClampRound(v float64) uint8 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(math.Round(v))
}
