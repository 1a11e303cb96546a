// Package app owns the editing session: region colors, text, the last
// rendered raster, scheme persistence and events.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	"keycap-preview/internal/catalog"
	"keycap-preview/internal/compositor"
	"keycap-preview/internal/export"
	"keycap-preview/internal/note"
	"keycap-preview/internal/recolor"
	"keycap-preview/internal/region"
	"keycap-preview/internal/scheme"
	"keycap-preview/pkg/colorutil"
)

var (
	// ErrNoSwatch is returned when a catalog position or number maps to no
	// swatch.
	ErrNoSwatch = errors.New("no swatch at position")
	// ErrNothingRendered is returned when export runs before any successful
	// render.
	ErrNothingRendered = errors.New("nothing rendered yet")
	// ErrUnavailable is returned when an optional collaborator is absent.
	ErrUnavailable = errors.New("not configured")
)

// EventType identifies session events.
type EventType int

const (
	EventColorsChanged EventType = iota
	EventSelectionChanged
	EventTextChanged
	EventRendered
	EventRenderFailed
	EventSchemeSaved
	EventSchemeLoaded
	EventSchemeDeleted
	EventExported
	EventAssetsReloaded
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Options wires a session's collaborators. Only Engine is required.
type Options struct {
	Engine    *recolor.Engine
	Overlay   *compositor.Overlay
	Catalog   *catalog.Catalog
	Schemes   *scheme.Store
	Copier    *note.Copier
	Originals map[region.ID]colorutil.RGB
	Text      compositor.Text
	// Scale maps overlay coordinates onto the canvas.
	Scale     float64
	Debounce  time.Duration
	ExportDir string
	Now       func() time.Time
}

// Session is the single owner of the editing state. Its methods are safe
// for concurrent use; render passes are serialized.
type Session struct {
	mu       sync.RWMutex
	renderMu sync.Mutex

	registry *region.Registry
	selected region.ID
	text     compositor.Text

	engine    *recolor.Engine
	overlay   *compositor.Overlay
	catalog   *catalog.Catalog
	scale     float64
	last      *image.NRGBA
	schemes   *scheme.Store
	copier    *note.Copier
	exportDir string
	now       func() time.Time

	debouncer *Debouncer
	listeners map[EventType][]EventListener
	logger    *zap.Logger
}

// NewSession creates a session with every region at its original color.
// A nil logger discards output.
func NewSession(opts Options, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if opts.Text == (compositor.Text{}) {
		opts.Text = compositor.DefaultText()
	}
	s := &Session{
		registry:  region.NewRegistry(opts.Originals),
		selected:  region.A,
		text:      opts.Text,
		engine:    opts.Engine,
		overlay:   opts.Overlay,
		catalog:   opts.Catalog,
		scale:     opts.Scale,
		schemes:   opts.Schemes,
		copier:    opts.Copier,
		exportDir: opts.ExportDir,
		now:       opts.Now,
		listeners: make(map[EventType][]EventListener),
		logger:    logger,
	}
	s.debouncer = NewDebouncer(opts.Debounce, func() {
		if _, err := s.Render(); err != nil {
			s.logger.Debug("debounced render failed", zap.Error(err))
		}
	})
	return s
}

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Regions returns a snapshot of every region.
func (s *Session) Regions() [region.Count]region.Region {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Regions()
}

// Text returns the current overlay text.
func (s *Session) Text() compositor.Text {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// Selected returns the region catalog picks apply to.
func (s *Session) Selected() region.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SelectRegion changes the region catalog picks apply to.
func (s *Session) SelectRegion(id region.ID) error {
	if !id.Valid() {
		return fmt.Errorf("select: invalid region %d", int(id))
	}
	s.mu.Lock()
	s.selected = id
	s.mu.Unlock()
	s.Emit(EventSelectionChanged, id)
	return nil
}

// SetRegionColor sets a color directly, clearing its swatch number.
func (s *Session) SetRegionColor(id region.ID, c colorutil.RGB) error {
	s.mu.Lock()
	err := s.registry.SetColor(id, c)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.logger.Debug("region color set", zap.Stringer("region", id), zap.String("color", c.DisplayHex()))
	s.Emit(EventColorsChanged, id)
	s.RequestRender()
	return nil
}

// PickCatalogSwatch samples the swatch under (x, y) of a catalog card and
// applies it to the selected region.
func (s *Session) PickCatalogSwatch(card, x, y int) (catalog.Selection, error) {
	if s.catalog == nil {
		return catalog.Selection{}, fmt.Errorf("catalog: %w", ErrUnavailable)
	}
	sel, ok := s.catalog.Pick(card, x, y)
	if !ok {
		return catalog.Selection{}, fmt.Errorf("%w: card %d (%d,%d)", ErrNoSwatch, card, x, y)
	}
	return sel, s.applySelection(sel)
}

// SelectCatalogNumber applies swatch n to the selected region.
func (s *Session) SelectCatalogNumber(n int) (catalog.Selection, error) {
	if s.catalog == nil {
		return catalog.Selection{}, fmt.Errorf("catalog: %w", ErrUnavailable)
	}
	sel, ok := s.catalog.Lookup(n)
	if !ok {
		return catalog.Selection{}, fmt.Errorf("%w: number %d", ErrNoSwatch, n)
	}
	return sel, s.applySelection(sel)
}

func (s *Session) applySelection(sel catalog.Selection) error {
	s.mu.Lock()
	id := s.selected
	err := s.registry.SetFromCatalog(id, sel.Color, sel.Number)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.logger.Info("swatch applied",
		zap.Stringer("region", id),
		zap.Int("number", sel.Number),
		zap.String("color", sel.Color.DisplayHex()))
	s.Emit(EventColorsChanged, id)
	s.RequestRender()
	return nil
}

// SetText replaces the overlay text.
func (s *Session) SetText(t compositor.Text) {
	s.mu.Lock()
	s.text = t
	s.mu.Unlock()
	s.Emit(EventTextChanged, t)
	s.RequestRender()
}

// Reset restores original colors, clears swatch numbers and restores the
// default text.
func (s *Session) Reset() {
	s.mu.Lock()
	s.registry.Reset()
	s.text = compositor.DefaultText()
	s.mu.Unlock()
	s.Emit(EventColorsChanged, nil)
	s.Emit(EventTextChanged, compositor.DefaultText())
	s.RequestRender()
}

// RequestRender schedules a debounced render.
func (s *Session) RequestRender() {
	s.debouncer.Trigger()
}

// Flush runs a pending debounced render immediately.
func (s *Session) Flush() bool {
	return s.debouncer.Flush()
}

// Render runs a recolor pass and draws the overlay. On failure the last
// good raster is kept and the error returned.
func (s *Session) Render() (*image.NRGBA, error) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	s.mu.RLock()
	engine, overlay, scale := s.engine, s.overlay, s.scale
	in := compositor.Input{
		Palette:        s.registry.Palette(),
		Originals:      s.registry.Originals(),
		CatalogIndexes: s.registry.CatalogIndexes(),
		Text:           s.text,
		Scale:          scale,
	}
	s.mu.RUnlock()

	if engine == nil {
		return nil, fmt.Errorf("recolor engine: %w", ErrUnavailable)
	}
	start := time.Now()
	out, err := engine.Recolor(in.Palette)
	if err != nil {
		s.Emit(EventRenderFailed, err)
		return nil, err
	}
	if overlay != nil {
		overlay.Draw(out, in)
	}

	s.mu.Lock()
	s.last = out
	s.mu.Unlock()
	s.logger.Debug("render complete", zap.Duration("elapsed", time.Since(start)))
	s.Emit(EventRendered, out)
	return out, nil
}

// Last returns the most recent successful render, or nil.
func (s *Session) Last() *image.NRGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// ReplaceAssets swaps the engine, overlay fonts and catalog after a reload
// and renders with them before EventAssetsReloaded fires. The raster of the
// previous assets is dropped even when the new pass fails.
func (s *Session) ReplaceAssets(engine *recolor.Engine, overlay *compositor.Overlay, cat *catalog.Catalog, scale float64) {
	if scale <= 0 {
		scale = 1
	}
	s.mu.Lock()
	s.engine = engine
	s.overlay = overlay
	s.catalog = cat
	s.scale = scale
	s.last = nil
	s.mu.Unlock()

	if !s.Flush() {
		if _, err := s.Render(); err != nil {
			s.logger.Warn("render after asset reload failed", zap.Error(err))
		}
	}
	s.Emit(EventAssetsReloaded, nil)
}

// SaveScheme stores the current colors and text. An empty name falls back
// to "year word".
func (s *Session) SaveScheme(ctx context.Context, name string) (scheme.Record, error) {
	if s.schemes == nil {
		return scheme.Record{}, fmt.Errorf("scheme store: %w", ErrUnavailable)
	}
	s.mu.RLock()
	regions, text := s.registry.Regions(), s.text
	s.mu.RUnlock()

	rec, err := s.schemes.Save(ctx, name, regions, text)
	if err != nil {
		return scheme.Record{}, err
	}
	s.Emit(EventSchemeSaved, rec)
	return rec, nil
}

// ListSchemes returns the saved schemes in insertion order.
func (s *Session) ListSchemes(ctx context.Context) ([]scheme.Record, error) {
	if s.schemes == nil {
		return nil, fmt.Errorf("scheme store: %w", ErrUnavailable)
	}
	return s.schemes.List(ctx)
}

// LoadScheme applies the scheme at index to the session.
func (s *Session) LoadScheme(ctx context.Context, index int) (scheme.Record, error) {
	if s.schemes == nil {
		return scheme.Record{}, fmt.Errorf("scheme store: %w", ErrUnavailable)
	}
	rec, err := s.schemes.Load(ctx, index)
	if err != nil {
		return scheme.Record{}, err
	}

	s.mu.Lock()
	text, err := rec.Apply(s.registry)
	if err == nil {
		s.text = text
	}
	s.mu.Unlock()
	if err != nil {
		return scheme.Record{}, fmt.Errorf("failed to apply scheme %q: %w", rec.Name, err)
	}

	s.logger.Info("scheme loaded", zap.String("name", rec.Name), zap.Int("index", index))
	s.Emit(EventSchemeLoaded, rec)
	s.RequestRender()
	return rec, nil
}

// DeleteScheme removes the scheme at index once confirm approves it.
func (s *Session) DeleteScheme(ctx context.Context, index int, confirm func(scheme.Record) bool) (scheme.Record, bool, error) {
	if s.schemes == nil {
		return scheme.Record{}, false, fmt.Errorf("scheme store: %w", ErrUnavailable)
	}
	rec, deleted, err := s.schemes.Delete(ctx, index, confirm)
	if err == nil && deleted {
		s.Emit(EventSchemeDeleted, rec)
	}
	return rec, deleted, err
}

// GenerateNote builds the order note from the current swatch numbers.
func (s *Session) GenerateNote() (string, error) {
	s.mu.RLock()
	indexes, text := s.registry.CatalogIndexes(), s.text
	s.mu.RUnlock()
	return note.Generate(indexes, text.Year, text.Word)
}

// CopyNote generates the note and places it on the clipboard.
func (s *Session) CopyNote() (string, error) {
	text, err := s.GenerateNote()
	if err != nil {
		return "", err
	}
	if s.copier == nil {
		return text, fmt.Errorf("clipboard: %w", ErrUnavailable)
	}
	return text, s.copier.Copy(text)
}

// Export flushes any pending render and writes the last raster as a PNG
// into the export directory.
func (s *Session) Export() (string, error) {
	s.Flush()
	img := s.Last()
	if img == nil {
		var err error
		if img, err = s.Render(); err != nil {
			return "", fmt.Errorf("%w: %w", ErrNothingRendered, err)
		}
	}
	dir := s.exportDir
	if dir == "" {
		dir = "."
	}
	path, err := export.ToDir(dir, img, s.now())
	if err != nil {
		return "", err
	}
	s.logger.Info("exported", zap.String("path", path))
	s.Emit(EventExported, path)
	return path, nil
}

// Close cancels pending renders.
func (s *Session) Close() {
	s.debouncer.Stop()
}
