package geometry

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkewX(t *testing.T) {
	skew := SkewX(-10)
	p := skew.Apply(Point2D{X: 0, Y: 10})
	assert.InDelta(t, 10*math.Tan(-10*math.Pi/180), p.X, 1e-9)
	assert.InDelta(t, 10, p.Y, 1e-9)

	// Points on the baseline do not move.
	assert.Equal(t, Point2D{X: 5, Y: 0}, skew.Apply(Point2D{X: 5, Y: 0}))
}

func TestComposeAndInverse(t *testing.T) {
	tr := Translation(780, 400).Compose(SkewX(-10))
	inv, ok := tr.Inverse()
	require.True(t, ok)

	p := Point2D{X: 12, Y: 7}
	back := inv.Apply(tr.Apply(p))
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)

	_, ok = AffineTransform{A: 0, D: 1}.Inverse()
	assert.False(t, ok)
}

func TestBounds(t *testing.T) {
	r := image.Rect(0, 0, 10, 20)
	assert.Equal(t, image.Rect(5, 5, 15, 25), Translation(5, 5).Bounds(r))

	b := SkewX(-10).Bounds(r)
	assert.Equal(t, 0, b.Min.Y)
	assert.Equal(t, 20, b.Max.Y)
	assert.Less(t, b.Min.X, 0)
}
