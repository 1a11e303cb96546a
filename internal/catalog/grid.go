// Package catalog maps pixel positions on color chart images to numbered
// swatches.
package catalog

import (
	"math"
)

// Margins are the pixel insets between an image edge and its swatch grid.
type Margins struct {
	Left   int `mapstructure:"left" yaml:"left"`
	Top    int `mapstructure:"top" yaml:"top"`
	Right  int `mapstructure:"right" yaml:"right"`
	Bottom int `mapstructure:"bottom" yaml:"bottom"`
}

// Grid describes a rows × cols block of swatches numbered left to right,
// top to bottom starting at Start.
type Grid struct {
	Rows    int
	Cols    int
	Start   int
	End     int // last valid number; 0 means Start+Rows*Cols-1
	Margins Margins
}

// Last returns the highest swatch number on the grid.
func (g Grid) Last() int {
	if g.End > 0 {
		return g.End
	}
	return g.Start + g.Rows*g.Cols - 1
}

// Number returns the swatch number of a cell.
func (g Grid) Number(row, col int) (int, bool) {
	if row < 0 || row >= g.Rows || col < 0 || col >= g.Cols {
		return 0, false
	}
	n := g.Start + row*g.Cols + col
	if n < g.Start || n > g.Last() {
		return 0, false
	}
	return n, true
}

// Cell returns the row and column of pixel (x, y) on an image of the given
// size. Pixels outside the grid area report false; they never wrap or clamp.
func (g Grid) Cell(x, y, width, height int) (row, col int, ok bool) {
	if g.Rows <= 0 || g.Cols <= 0 {
		return 0, 0, false
	}
	innerW := float64(width - g.Margins.Left - g.Margins.Right)
	innerH := float64(height - g.Margins.Top - g.Margins.Bottom)
	if innerW <= 0 || innerH <= 0 {
		return 0, 0, false
	}

	cellW := innerW / float64(g.Cols)
	cellH := innerH / float64(g.Rows)
	col = int(math.Floor(float64(x-g.Margins.Left) / cellW))
	row = int(math.Floor(float64(y-g.Margins.Top) / cellH))
	if col < 0 || col >= g.Cols || row < 0 || row >= g.Rows {
		return 0, 0, false
	}
	return row, col, true
}

// SwatchAt returns the swatch number under pixel (x, y).
func (g Grid) SwatchAt(x, y, width, height int) (int, bool) {
	row, col, ok := g.Cell(x, y, width, height)
	if !ok {
		return 0, false
	}
	return g.Number(row, col)
}

// Center returns the pixel at the middle of the cell holding number n.
func (g Grid) Center(n, width, height int) (x, y int, ok bool) {
	if n < g.Start || n > g.Last() || g.Rows <= 0 || g.Cols <= 0 {
		return 0, 0, false
	}
	idx := n - g.Start
	row, col := idx/g.Cols, idx%g.Cols
	if row >= g.Rows {
		return 0, 0, false
	}
	innerW := float64(width - g.Margins.Left - g.Margins.Right)
	innerH := float64(height - g.Margins.Top - g.Margins.Bottom)
	cellW := innerW / float64(g.Cols)
	cellH := innerH / float64(g.Rows)
	x = g.Margins.Left + int((float64(col)+0.5)*cellW)
	y = g.Margins.Top + int((float64(row)+0.5)*cellH)
	return x, y, true
}
