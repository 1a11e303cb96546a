// Package scheme persists named color schemes as one JSON collection in a
// key-value store.
package scheme

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"keycap-preview/internal/compositor"
	"keycap-preview/internal/kv"
	"keycap-preview/internal/region"
	"keycap-preview/pkg/colorutil"
)

// CollectionKey is the store key holding the scheme list.
const CollectionKey = "wukds_color_schemes"

var (
	// ErrNotFound is returned for an index outside the stored list.
	ErrNotFound = errors.New("scheme not found")
	// ErrValidation is returned when a scheme cannot be named.
	ErrValidation = errors.New("invalid scheme")
)

// Record is one saved scheme. Field names match the records written by the
// browser tool.
type Record struct {
	ID           string               `json:"id,omitempty"`
	Name         string               `json:"name"`
	Colors       map[region.ID]string `json:"colors"`
	ColorNumbers map[region.ID]*int   `json:"colorNumbers"`
	TextConfig   compositor.Text      `json:"textConfig"`
	CreatedAt    time.Time            `json:"createdAt"`
}

// CatalogIndex returns the stored swatch number of id, or 0.
func (r Record) CatalogIndex(id region.ID) int {
	if n := r.ColorNumbers[id]; n != nil && *n > 0 {
		return *n
	}
	return 0
}

// Apply restores colors and swatch numbers into reg and returns the stored
// text with defaults for blank fields. Regions without a stored number get
// their catalog index cleared.
func (r Record) Apply(reg *region.Registry) (compositor.Text, error) {
	for _, id := range region.All {
		c := reg.Get(id).OriginalColor
		if hex, ok := r.Colors[id]; ok {
			c = colorutil.HexToRGB(hex)
		}
		if err := reg.Restore(id, c, r.CatalogIndex(id)); err != nil {
			return compositor.Text{}, err
		}
	}

	text := r.TextConfig
	def := compositor.DefaultText()
	if text.Year == "" {
		text.Year = def.Year
	}
	if text.Word == "" {
		text.Word = def.Word
	}
	return text, nil
}

// DefaultName returns "year word", or the year alone.
func DefaultName(text compositor.Text) (string, error) {
	year := strings.TrimSpace(text.Year)
	word := strings.TrimSpace(text.Word)
	if year == "" && word == "" {
		return "", fmt.Errorf("%w: enter a year and word first", ErrValidation)
	}
	if word == "" {
		return year, nil
	}
	return year + " " + word, nil
}

// Store reads and writes the scheme collection.
type Store struct {
	mu     sync.Mutex
	kv     kv.Store
	key    string
	logger *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewStore creates a scheme store over backend. A nil logger discards
// output.
func NewStore(backend kv.Store, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		kv:     backend,
		key:    CollectionKey,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (s *Store) read(ctx context.Context) ([]Record, error) {
	data, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read schemes: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode schemes: %w", err)
	}
	return records, nil
}

func (s *Store) write(ctx context.Context, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode schemes: %w", err)
	}
	if err := s.kv.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("failed to write schemes: %w", err)
	}
	return nil
}

// Save appends a new record built from the given regions and text. An
// empty name falls back to DefaultName.
func (s *Store) Save(ctx context.Context, name string, regions [region.Count]region.Region, text compositor.Text) (Record, error) {
	if strings.TrimSpace(name) == "" {
		n, err := DefaultName(text)
		if err != nil {
			return Record{}, err
		}
		name = n
	}

	rec := Record{
		ID:           s.newID(),
		Name:         name,
		Colors:       make(map[region.ID]string, region.Count),
		ColorNumbers: make(map[region.ID]*int, region.Count),
		TextConfig:   text,
		CreatedAt:    s.now().UTC(),
	}
	for _, r := range regions {
		rec.Colors[r.ID] = r.CurrentColor.Hex()
		if r.HasCatalogIndex() {
			n := r.CatalogIndex
			rec.ColorNumbers[r.ID] = &n
		} else {
			rec.ColorNumbers[r.ID] = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.read(ctx)
	if err != nil {
		return Record{}, err
	}
	if err := s.write(ctx, append(records, rec)); err != nil {
		return Record{}, err
	}
	s.logger.Info("scheme saved", zap.String("name", rec.Name), zap.String("id", rec.ID))
	return rec, nil
}

// List returns all records in insertion order.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx)
}

// Load returns the record at index.
func (s *Store) Load(ctx context.Context, index int) (Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return Record{}, err
	}
	if index < 0 || index >= len(records) {
		return Record{}, fmt.Errorf("%w: index %d of %d", ErrNotFound, index, len(records))
	}
	return records[index], nil
}

// Delete removes the record at index once confirm approves it. It reports
// whether a record was removed; a declined confirmation is not an error.
func (s *Store) Delete(ctx context.Context, index int, confirm func(Record) bool) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read(ctx)
	if err != nil {
		return Record{}, false, err
	}
	if index < 0 || index >= len(records) {
		return Record{}, false, fmt.Errorf("%w: index %d of %d", ErrNotFound, index, len(records))
	}
	rec := records[index]
	if confirm == nil || !confirm(rec) {
		return rec, false, nil
	}

	records = append(records[:index], records[index+1:]...)
	if err := s.write(ctx, records); err != nil {
		return Record{}, false, err
	}
	s.logger.Info("scheme deleted", zap.String("name", rec.Name), zap.Int("index", index))
	return rec, true, nil
}
