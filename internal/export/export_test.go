package export

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	assert.Equal(t, "wukds-keycap-1700000000123.png", FileName(ts))
}

func TestToDirRoundTrip(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(2, 1, color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 200})

	dir := filepath.Join(t.TempDir(), "out")
	path, err := ToDir(dir, img, time.UnixMilli(42))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "wukds-keycap-42.png"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 200},
		color.NRGBAModel.Convert(decoded.At(2, 1)))
}

func TestNothingToExport(t *testing.T) {
	_, err := Bytes(nil)
	assert.Error(t, err)
}
