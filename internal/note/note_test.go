package note

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"keycap-preview/internal/region"
	"keycap-preview/pkg/colorutil"
)

func TestValidateYear(t *testing.T) {
	assert.NoError(t, ValidateYear("1975"))
	assert.NoError(t, ValidateYear(" 2024 "))
	for _, bad := range []string{"", "197", "19755", "19a5", "١٩٧٥"} {
		assert.ErrorIs(t, ValidateYear(bad), ErrValidation, bad)
	}
}

func TestValidateWord(t *testing.T) {
	assert.NoError(t, ValidateWord("Synth"))
	assert.NoError(t, ValidateWord(" x "))
	for _, bad := range []string{"", "   ", "synth1", "two words", "a-b"} {
		assert.ErrorIs(t, ValidateWord(bad), ErrValidation, bad)
	}
}

func TestGenerateEndToEnd(t *testing.T) {
	reg := region.NewRegistry(nil)
	for i, id := range region.All {
		require.NoError(t, reg.SetFromCatalog(id, colorutil.RGB{R: uint8(i)}, 10*(i+1)))
	}

	got, err := Generate(reg.CatalogIndexes(), "1975", "Synth")
	require.NoError(t, err)
	assert.Equal(t, "A-10, B-20, C-30, D-40, E-50, F-60, 1975, Synth", got)
}

func TestGenerateMissingSwatches(t *testing.T) {
	reg := region.NewRegistry(nil)
	for i, id := range region.All {
		require.NoError(t, reg.SetFromCatalog(id, colorutil.RGB{}, i+1))
	}
	require.NoError(t, reg.SetColor(region.B, colorutil.RGB{R: 1}))
	require.NoError(t, reg.SetColor(region.E, colorutil.RGB{R: 1}))

	got, err := Generate(reg.CatalogIndexes(), "1975", "Synth")
	assert.Empty(t, got)
	require.ErrorIs(t, err, ErrValidation)

	var missing *MissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []region.ID{region.B, region.E}, missing.Regions)
	assert.Contains(t, err.Error(), "B, E")
}

func TestGenerateValidatesTextFirst(t *testing.T) {
	var idx [region.Count]int
	_, err := Generate(idx, "75", "Synth")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "year")

	_, err = Generate(idx, "1975", "")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "word")
}

func TestCopyPrimary(t *testing.T) {
	var got string
	var term bytes.Buffer
	c := NewCopier(zaptest.NewLogger(t))
	c.WriteAll = func(s string) error { got = s; return nil }
	c.Terminal = &term

	require.NoError(t, c.Copy("A-1"))
	assert.Equal(t, "A-1", got)
	assert.Zero(t, term.Len(), "fallback unused")
}

func TestCopyFallsBackToOSC52(t *testing.T) {
	var term bytes.Buffer
	c := NewCopier(zaptest.NewLogger(t))
	c.WriteAll = func(string) error { return errors.New("no display") }
	c.Terminal = &term

	require.NoError(t, c.Copy("A-1, B-2"))
	assert.Contains(t, term.String(), "\x1b]52;")
	assert.Contains(t, term.String(), base64.StdEncoding.EncodeToString([]byte("A-1, B-2")))
}

func TestCopyFailsWithoutFallback(t *testing.T) {
	c := NewCopier(nil)
	c.WriteAll = func(string) error { return errors.New("no display") }
	c.Terminal = nil

	err := c.Copy("A-1")
	assert.ErrorIs(t, err, ErrClipboard)
	assert.ErrorIs(t, c.Copy(""), ErrValidation)
}
