// Package recolor turns the original keycap art and a palette of region
// colors into a recolored raster.
package recolor

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"go.uber.org/zap"

	kimage "keycap-preview/internal/image"
	"keycap-preview/internal/region"
)

// ErrAssetsIncomplete is returned while a strategy lacks required rasters.
var ErrAssetsIncomplete = errors.New("assets incomplete")

// Kind selects a recoloring strategy.
type Kind string

const (
	KindLayer     Kind = "layer"
	KindMask      Kind = "mask"
	KindTolerance Kind = "tolerance"
)

// ParseKind validates a configured strategy name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindLayer, KindMask, KindTolerance:
		return k, nil
	default:
		return "", fmt.Errorf("unknown strategy %q (want layer, mask or tolerance)", s)
	}
}

// Strategy is one recoloring algorithm. Implementations never modify their
// source rasters; every call returns a fresh image.
type Strategy interface {
	Name() string
	// Ready reports ErrAssetsIncomplete while required rasters are missing.
	Ready() error
	Recolor(p region.Palette) (*image.NRGBA, error)
}

// Sources are the rasters a strategy may draw from.
type Sources struct {
	// Base is the flattened illustration (mask and tolerance strategies).
	Base *image.NRGBA
	// Layers are the per-region layer art (layer strategy).
	Layers [region.Count]*image.NRGBA
	// Frame is drawn unrecolored on top of the layers.
	Frame *image.NRGBA
	// MainMasks claim pixels for a region's main color.
	MainMasks [region.Count]*image.NRGBA
	// BackgroundMasks claim pixels for a region's derived background shade.
	// A is never consulted.
	BackgroundMasks [region.Count]*image.NRGBA
}

// Options tune strategy behavior.
type Options struct {
	Originals           region.Palette
	ColorTolerance      float64
	BackgroundTolerance float64
	Coefficients        CoefficientSet
	// BackdropRegion picks the theme color for the layer strategy backdrop.
	BackdropRegion region.ID
	FrameBlend     kimage.BlendMode
}

// NewStrategy builds the strategy for kind.
func NewStrategy(kind Kind, src Sources, opts Options) (Strategy, error) {
	switch kind {
	case KindLayer:
		return &LayerReplace{
			Layers:         src.Layers,
			Frame:          src.Frame,
			FrameBlend:     opts.FrameBlend,
			BackdropRegion: opts.BackdropRegion,
			Originals:      opts.Originals,
		}, nil
	case KindMask:
		return &MaskPriority{
			Base:            src.Base,
			MainMasks:       src.MainMasks,
			BackgroundMasks: src.BackgroundMasks,
			Coefficients:    opts.Coefficients,
		}, nil
	case KindTolerance:
		tol := [region.Count]float64{}
		for _, id := range region.All {
			if id == region.A {
				tol[id] = opts.ColorTolerance
			} else {
				tol[id] = opts.BackgroundTolerance
			}
		}
		return &ToleranceMatch{
			Base:       src.Base,
			Originals:  opts.Originals,
			Tolerances: tol,
		}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", kind)
	}
}

// Engine runs the configured strategy and logs the outcome of each pass.
type Engine struct {
	strategy Strategy
	logger   *zap.Logger
}

// NewEngine wraps strategy. A nil logger discards output.
func NewEngine(strategy Strategy, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{strategy: strategy, logger: logger}
}

// Strategy returns the wrapped strategy.
func (e *Engine) Strategy() Strategy {
	return e.strategy
}

// Recolor produces a new raster for p. Incomplete assets suppress the pass.
func (e *Engine) Recolor(p region.Palette) (*image.NRGBA, error) {
	if err := e.strategy.Ready(); err != nil {
		e.logger.Warn("recolor suppressed",
			zap.String("strategy", e.strategy.Name()),
			zap.Error(err))
		return nil, err
	}
	out, err := e.strategy.Recolor(p)
	if err != nil {
		e.logger.Error("recolor failed",
			zap.String("strategy", e.strategy.Name()),
			zap.Error(err))
		return nil, err
	}
	e.logger.Debug("recolor complete",
		zap.String("strategy", e.strategy.Name()),
		zap.Int("width", out.Bounds().Dx()),
		zap.Int("height", out.Bounds().Dy()))
	return out, nil
}

func missingError(names []string) error {
	if len(names) == 0 {
		return nil
	}
	return fmt.Errorf("%w: missing %s", ErrAssetsIncomplete, strings.Join(names, ", "))
}
