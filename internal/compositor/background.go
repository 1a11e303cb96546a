// Package compositor chooses the canvas backdrop and draws the decorative
// text that sits on top of a recolored illustration.
package compositor

import (
	"keycap-preview/pkg/colorutil"
)

// Brightness buckets for SmartBackground.
const (
	veryDarkBelow = 50
	darkBelow     = 120
	mediumBelow   = 200

	tooDarkBelow  = 30
	tooLightAbove = 240

	minContrast = 1.5
)

// SmartBackground picks a backdrop that stays visually distinct from the
// theme color whatever its lightness.
func SmartBackground(theme colorutil.RGB) colorutil.RGB {
	var bg colorutil.RGB

	switch b := colorutil.Brightness(theme); {
	case b < veryDarkBelow:
		bg = colorutil.Lighten(colorutil.Complementary(theme), 2.2)
		if colorutil.Brightness(bg) < 180 {
			bg = colorutil.LightGray
		}
	case b < darkBelow:
		bg = colorutil.Darken(theme, 0.55)
		if colorutil.ContrastRatio(theme, bg) < minContrast {
			bg = colorutil.Darken(theme, 0.65)
		}
	case b < mediumBelow:
		bg = colorutil.Darken(theme, 0.5)
	default:
		bg = colorutil.Darken(theme, 0.45)
	}

	switch b := colorutil.Brightness(bg); {
	case b < tooDarkBelow:
		bg = colorutil.PaleGray
	case b > tooLightAbove:
		bg = colorutil.Darken(bg, 0.9)
	}
	return bg
}
