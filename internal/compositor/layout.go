package compositor

import (
	"strings"

	"keycap-preview/internal/region"
)

// Placement positions one text element in original-art coordinates.
type Placement struct {
	X    float64 `mapstructure:"x" yaml:"x"`
	Y    float64 `mapstructure:"y" yaml:"y"`
	Size float64 `mapstructure:"size" yaml:"size"`

	// Fill names the region whose current color paints the text.
	Fill string `mapstructure:"fill" yaml:"fill"`

	// Spacing is extra advance per character as a fraction of Size.
	Spacing float64 `mapstructure:"spacing" yaml:"spacing"`
	// LineHeight is the line advance as a multiple of Size.
	LineHeight float64 `mapstructure:"line_height" yaml:"line_height"`
	// Skew leans the text by this many degrees (negative leans right).
	Skew float64 `mapstructure:"skew" yaml:"skew"`
}

// FillRegion resolves Fill to a region, falling back to def.
func (p Placement) FillRegion(def region.ID) region.ID {
	id, err := region.Parse(p.Fill)
	if err != nil {
		return def
	}
	return id
}

// Watermark describes the bottom-right signature.
type Watermark struct {
	Text    string  `mapstructure:"text" yaml:"text"`
	Padding float64 `mapstructure:"padding" yaml:"padding"`
	// Size is max(MinSize, canvas width × SizeRatio).
	MinSize   float64 `mapstructure:"min_size" yaml:"min_size"`
	SizeRatio float64 `mapstructure:"size_ratio" yaml:"size_ratio"`
	Spacing   float64 `mapstructure:"spacing" yaml:"spacing"`

	ShadowOffset float64 `mapstructure:"shadow_offset" yaml:"shadow_offset"`
	ShadowAlpha  float64 `mapstructure:"shadow_alpha" yaml:"shadow_alpha"`

	// Letters maps each watermark letter to the region coloring it.
	Letters map[string]string `mapstructure:"letters" yaml:"letters"`
}

// LetterRegion returns the region that colors letter, if any.
func (w Watermark) LetterRegion(letter rune) (region.ID, bool) {
	for k, v := range w.Letters {
		if strings.EqualFold(k, string(letter)) {
			id, err := region.Parse(v)
			return id, err == nil
		}
	}
	return 0, false
}

// Layout groups every overlay element.
type Layout struct {
	Enabled   bool      `mapstructure:"enabled" yaml:"enabled"`
	Watermark Watermark `mapstructure:"watermark" yaml:"watermark"`
	Year      Placement `mapstructure:"year" yaml:"year"`
	Word      Placement `mapstructure:"word" yaml:"word"`
	Script    Placement `mapstructure:"script" yaml:"script"`
	Labels    Placement `mapstructure:"labels" yaml:"labels"`
	Header    Placement `mapstructure:"header" yaml:"header"`
}

// DefaultLayout returns the placements used on the stock illustration.
func DefaultLayout() Layout {
	return Layout{
		Enabled: true,
		Watermark: Watermark{
			Text:         "WUKDS",
			Padding:      80,
			MinSize:      36,
			SizeRatio:    0.05,
			Spacing:      0.05,
			ShadowOffset: 2,
			ShadowAlpha:  0.3,
			Letters: map[string]string{
				"W": "C",
				"U": "D",
				"K": "E",
				"D": "F",
				"S": "A",
			},
		},
		Year:   Placement{X: 780, Y: 400, Size: 18, Fill: "B", Spacing: -0.05, Skew: -10},
		Word:   Placement{X: 780, Y: 418, Size: 11, Fill: "B", Skew: -10},
		Script: Placement{X: 470, Y: 515, Size: 22, Fill: "B"},
		Labels: Placement{X: 900, Y: 640, Size: 40, Fill: "F", LineHeight: 1.2},
		Header: Placement{X: 80, Y: 80, Size: 80, Fill: "F"},
	}
}

// Text is the free-text metadata printed on the illustration.
type Text struct {
	Year string `json:"year" mapstructure:"year" yaml:"year"`
	Word string `json:"word" mapstructure:"word" yaml:"word"`
	// WordSpace replaces Word in the script placement when non-blank.
	WordSpace string `json:"wordSpace,omitempty" mapstructure:"word_space" yaml:"word_space"`
}

// DefaultText is shown before the user enters anything.
func DefaultText() Text {
	return Text{Year: "1970", Word: "Music"}
}

// ScriptWord returns the word drawn in the script placement.
func (t Text) ScriptWord() string {
	if strings.TrimSpace(t.WordSpace) != "" {
		return t.WordSpace
	}
	return t.Word
}

// Header returns "year word", or whichever of the two is set. A missing
// part leaves no separator, so the header never starts or ends with a space.
func (t Text) Header() string {
	switch {
	case t.Word == "":
		return t.Year
	case t.Year == "":
		return t.Word
	default:
		return t.Year + " " + t.Word
	}
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
}
