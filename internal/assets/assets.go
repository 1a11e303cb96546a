// Package assets loads the illustration rasters, catalog cards and fonts a
// session needs, concurrently and with per-file failure tracking.
package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/image/font/opentype"
	"golang.org/x/sync/errgroup"

	"keycap-preview/internal/catalog"
	"keycap-preview/internal/compositor"
	kimage "keycap-preview/internal/image"
	"keycap-preview/internal/recolor"
	"keycap-preview/internal/region"
)

// ErrAssetLoad wraps every per-file load failure.
var ErrAssetLoad = errors.New("asset load failed")

// CardSpec locates one catalog card.
type CardSpec struct {
	Name string
	Path string
	Grid catalog.Grid
}

// Paths lists every file the loader may read. Empty paths are skipped.
type Paths struct {
	Base            string
	Frame           string
	Layers          map[region.ID]string
	Masks           map[region.ID]string
	BackgroundMasks map[region.ID]string
	Cards           []CardSpec
	DisplayFont     string
	ScriptFont      string
}

// Files returns every non-empty path the loader reads for kind.
func (p Paths) Files(kind recolor.Kind) []string {
	var out []string
	add := func(s string) {
		if s != "" {
			out = append(out, s)
		}
	}
	switch kind {
	case recolor.KindLayer:
		add(p.Frame)
		for _, id := range region.All {
			add(p.Layers[id])
		}
	case recolor.KindMask:
		add(p.Base)
		for _, id := range region.All {
			add(p.Masks[id])
			if id != region.A {
				add(p.BackgroundMasks[id])
			}
		}
	case recolor.KindTolerance:
		add(p.Base)
	}
	for _, c := range p.Cards {
		add(c.Path)
	}
	add(p.DisplayFont)
	add(p.ScriptFont)
	sort.Strings(out)
	return out
}

// Failure records one asset that could not be loaded.
type Failure struct {
	Name string
	Path string
	Err  error
}

// Set is the outcome of a load. Rasters that failed are nil.
type Set struct {
	Sources recolor.Sources
	Catalog *catalog.Catalog
	Fonts   compositor.Fonts
	// Scale is the factor applied to every illustration raster so the
	// canvas fits the configured maximum width.
	Scale    float64
	Failures []Failure
}

// Err joins the recorded failures, or returns nil.
func (s *Set) Err() error {
	if len(s.Failures) == 0 {
		return nil
	}
	names := make([]string, len(s.Failures))
	errs := make([]error, len(s.Failures))
	for i, f := range s.Failures {
		names[i] = f.Name
		errs[i] = fmt.Errorf("%s (%s): %w", f.Name, f.Path, f.Err)
	}
	return fmt.Errorf("%w: %s: %w", ErrAssetLoad, strings.Join(names, ", "), errors.Join(errs...))
}

// Loader reads asset files.
type Loader struct {
	// MaxWidth caps the canvas width; zero disables scaling.
	MaxWidth int
	// Limit bounds concurrent decodes; zero uses GOMAXPROCS.
	Limit int

	logger *zap.Logger
}

// NewLoader returns a loader. A nil logger discards output.
func NewLoader(maxWidth int, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{MaxWidth: maxWidth, logger: logger}
}

type job struct {
	name string
	path string
	// exactly one of raster or font is set
	raster **kimage.Layer
	font   **opentype.Font
}

// Load reads the assets kind needs, plus catalog cards and fonts. A file
// that fails is recorded in Set.Failures and does not stop the others;
// only cancellation of ctx returns an error.
func (l *Loader) Load(ctx context.Context, p Paths, kind recolor.Kind) (*Set, error) {
	var (
		base, frame       *kimage.Layer
		layers, masks, bg [region.Count]*kimage.Layer
		cards             = make([]*kimage.Layer, len(p.Cards))
		display, script   *opentype.Font
	)

	var jobs []job
	addRaster := func(name, path string, dst **kimage.Layer) {
		if path != "" {
			jobs = append(jobs, job{name: name, path: path, raster: dst})
		}
	}
	switch kind {
	case recolor.KindLayer:
		addRaster("frame", p.Frame, &frame)
		for _, id := range region.All {
			addRaster("layer "+id.String(), p.Layers[id], &layers[id])
		}
	case recolor.KindMask:
		addRaster("base", p.Base, &base)
		for _, id := range region.All {
			addRaster("mask "+id.String(), p.Masks[id], &masks[id])
			if id != region.A {
				addRaster("background mask "+id.String(), p.BackgroundMasks[id], &bg[id])
			}
		}
	case recolor.KindTolerance:
		addRaster("base", p.Base, &base)
	default:
		return nil, fmt.Errorf("unknown strategy %q", kind)
	}
	for i, c := range p.Cards {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("card %d", i+1)
		}
		addRaster(name, c.Path, &cards[i])
	}
	if p.DisplayFont != "" {
		jobs = append(jobs, job{name: "display font", path: p.DisplayFont, font: &display})
	}
	if p.ScriptFont != "" {
		jobs = append(jobs, job{name: "script font", path: p.ScriptFont, font: &script})
	}

	var (
		mu       sync.Mutex
		failures []Failure
	)
	g, gctx := errgroup.WithContext(ctx)
	limit := l.Limit
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)

	for _, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var err error
			if j.raster != nil {
				*j.raster, err = kimage.Load(j.name, j.path)
			} else {
				*j.font, err = loadFont(j.path)
			}
			if err != nil {
				l.logger.Warn("asset failed to load",
					zap.String("asset", j.name),
					zap.String("path", j.path),
					zap.Error(err))
				mu.Lock()
				failures = append(failures, Failure{Name: j.name, Path: j.path, Err: err})
				mu.Unlock()
				return nil
			}
			l.logger.Debug("asset loaded", zap.String("asset", j.name), zap.String("path", j.path))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].Name < failures[j].Name })

	set := &Set{
		Fonts:    compositor.Fonts{Display: display, Script: script},
		Failures: failures,
	}
	set.Scale = kimage.FitScale(referenceWidth(frame, base, layers), l.MaxWidth)

	scale := func(layer *kimage.Layer) *image.NRGBA {
		if layer == nil {
			return nil
		}
		if set.Scale == 1 {
			return layer.Image
		}
		return kimage.Scale(layer.Image, set.Scale)
	}
	set.Sources.Base = scale(base)
	set.Sources.Frame = scale(frame)
	for _, id := range region.All {
		set.Sources.Layers[id] = scale(layers[id])
		set.Sources.MainMasks[id] = scale(masks[id])
		set.Sources.BackgroundMasks[id] = scale(bg[id])
	}

	catCards := make([]catalog.Card, 0, len(p.Cards))
	for i, c := range p.Cards {
		card := catalog.Card{Name: c.Name, Grid: c.Grid}
		if cards[i] != nil {
			card.Image = cards[i].Image
		}
		catCards = append(catCards, card)
	}
	cat, err := catalog.New(catCards...)
	if err != nil {
		return nil, err
	}
	set.Catalog = cat

	l.logger.Info("assets loaded",
		zap.String("strategy", string(kind)),
		zap.Int("files", len(jobs)),
		zap.Int("failed", len(failures)),
		zap.Float64("scale", set.Scale))
	return set, nil
}

// referenceWidth picks the raster that sizes the canvas: the frame, then
// the base, then the widest layer.
func referenceWidth(frame, base *kimage.Layer, layers [region.Count]*kimage.Layer) int {
	switch {
	case frame != nil:
		return frame.Width()
	case base != nil:
		return base.Width()
	}
	w := 0
	for _, l := range layers {
		if l != nil {
			w = max(w, l.Width())
		}
	}
	return w
}

func loadFont(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font: %w", err)
	}
	return compositor.ParseFont(data)
}
