// Package note builds the order note listing the catalog swatch of every
// region and copies it to the clipboard.
package note

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"keycap-preview/internal/region"
)

// ErrValidation is returned for input that cannot produce a note.
var ErrValidation = errors.New("validation failed")

// ValidateYear requires exactly four ASCII digits.
func ValidateYear(year string) error {
	year = strings.TrimSpace(year)
	if len(year) != 4 {
		return fmt.Errorf("%w: year must be 4 digits, got %q", ErrValidation, year)
	}
	for _, r := range year {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: year must be 4 digits, got %q", ErrValidation, year)
		}
	}
	return nil
}

// ValidateWord requires at least one letter and nothing but letters.
func ValidateWord(word string) error {
	word = strings.TrimSpace(word)
	if word == "" {
		return fmt.Errorf("%w: word is required", ErrValidation)
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return fmt.Errorf("%w: word must contain only letters, got %q", ErrValidation, word)
		}
	}
	return nil
}

// MissingError lists regions without a catalog swatch.
type MissingError struct {
	Regions []region.ID
}

func (e *MissingError) Error() string {
	names := make([]string, len(e.Regions))
	for i, id := range e.Regions {
		names[i] = id.String()
	}
	return "select catalog swatches for: " + strings.Join(names, ", ")
}

// Unwrap lets errors.Is match ErrValidation.
func (e *MissingError) Unwrap() error { return ErrValidation }

// Generate returns "A-n, B-n, C-n, D-n, E-n, F-n, year, word". Every region
// needs a swatch number; no partial note is produced.
func Generate(indexes [region.Count]int, year, word string) (string, error) {
	year = strings.TrimSpace(year)
	word = strings.TrimSpace(word)
	if err := ValidateYear(year); err != nil {
		return "", err
	}
	if err := ValidateWord(word); err != nil {
		return "", err
	}

	var missing []region.ID
	for _, id := range region.All {
		if indexes[id] <= 0 {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return "", &MissingError{Regions: missing}
	}

	parts := make([]string, 0, region.Count+2)
	for _, id := range region.All {
		parts = append(parts, id.String()+"-"+strconv.Itoa(indexes[id]))
	}
	parts = append(parts, year, word)
	return strings.Join(parts, ", "), nil
}
