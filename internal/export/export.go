// Package export writes recolored rasters as PNG files.
package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"time"
)

// FilePrefix starts every exported file name.
const FilePrefix = "wukds-keycap-"

// FileName returns the timestamped export name for t.
func FileName(t time.Time) string {
	return fmt.Sprintf("%s%d.png", FilePrefix, t.UnixMilli())
}

// PNG encodes img to w.
func PNG(w io.Writer, img image.Image) error {
	if img == nil {
		return fmt.Errorf("nothing to export")
	}
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

// Bytes returns img as a PNG byte stream.
func Bytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := PNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToDir writes img into dir under FileName(now) and returns the full path.
func ToDir(dir string, img image.Image, now time.Time) (string, error) {
	data, err := Bytes(img)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, FileName(now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
