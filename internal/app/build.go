package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"keycap-preview/internal/assets"
	"keycap-preview/internal/compositor"
	"keycap-preview/internal/config"
	"keycap-preview/internal/kv"
	"keycap-preview/internal/note"
	"keycap-preview/internal/recolor"
	"keycap-preview/internal/region"
	"keycap-preview/internal/scheme"
)

// Runtime is a session wired from configuration together with the
// resources it owns.
type Runtime struct {
	Config  *config.Config
	Session *Session
	Paths   assets.Paths
	Store   kv.Store

	mu     sync.Mutex
	assets *assets.Set
	loader *assets.Loader
	logger *zap.Logger
}

// Build loads assets, opens the scheme store and creates the session.
// Asset failures are logged and leave the session unable to render until
// a reload succeeds; they do not fail Build.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	paths, err := cfg.AssetPaths()
	if err != nil {
		return nil, err
	}
	originals, err := cfg.OriginalColors()
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config: cfg,
		Paths:  paths,
		Store:  store,
		loader: assets.NewLoader(cfg.Canvas.MaxWidth, logger.Named("assets")),
		logger: logger,
	}
	set, engine, overlay, err := rt.load(ctx)
	if err != nil {
		store.Close()
		return nil, err
	}
	rt.assets = set

	rt.Session = NewSession(Options{
		Engine:    engine,
		Overlay:   overlay,
		Catalog:   set.Catalog,
		Schemes:   scheme.NewStore(store, logger.Named("scheme")),
		Copier:    note.NewCopier(logger.Named("clipboard")),
		Originals: originals,
		Text:      cfg.Text,
		Scale:     set.Scale,
		Debounce:  cfg.Render.Debounce,
		ExportDir: cfg.Export.Dir,
	}, logger.Named("session"))
	return rt, nil
}

func (rt *Runtime) load(ctx context.Context) (*assets.Set, *recolor.Engine, *compositor.Overlay, error) {
	set, err := rt.loader.Load(ctx, rt.Paths, rt.Config.Kind())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load assets: %w", err)
	}
	if err := set.Err(); err != nil {
		rt.logger.Warn("some assets are unavailable", zap.Error(err))
	}
	engine, err := NewEngine(rt.Config, set, rt.logger.Named("recolor"))
	if err != nil {
		return nil, nil, nil, err
	}
	overlay := compositor.NewOverlay(rt.Config.Overlay, set.Fonts, rt.logger.Named("overlay"))
	return set, engine, overlay, nil
}

// Assets returns the most recently loaded asset set.
func (rt *Runtime) Assets() *assets.Set {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.assets
}

// Reload re-reads every asset and swaps them into the session.
func (rt *Runtime) Reload(ctx context.Context) error {
	set, engine, overlay, err := rt.load(ctx)
	if err != nil {
		return err
	}
	rt.mu.Lock()
	rt.assets = set
	rt.mu.Unlock()
	rt.Session.ReplaceAssets(engine, overlay, set.Catalog, set.Scale)
	return nil
}

// Watch reloads assets whenever one of the active strategy's files changes.
func (rt *Runtime) Watch(ctx context.Context) (*AssetWatcher, error) {
	files := rt.Paths.Files(rt.Config.Kind())
	w, err := NewAssetWatcher(files, rt.Config.Render.Debounce*5, func() {
		if err := rt.Reload(ctx); err != nil {
			rt.logger.Error("asset reload failed", zap.Error(err))
		}
	}, rt.logger.Named("watch"))
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return nil, err
	}
	return w, nil
}

// Close stops the session and closes the store.
func (rt *Runtime) Close() error {
	if rt.Session != nil {
		rt.Session.Close()
	}
	if rt.Store != nil {
		return rt.Store.Close()
	}
	return nil
}

// NewEngine builds the configured strategy over the loaded rasters. With
// learn_coefficients set, background coefficients are measured from the
// art wherever a main and background mask overlap the base.
func NewEngine(cfg *config.Config, set *assets.Set, logger *zap.Logger) (*recolor.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	originals, err := cfg.OriginalColors()
	if err != nil {
		return nil, err
	}
	coeffs, err := cfg.CoefficientSet()
	if err != nil {
		return nil, err
	}
	src := set.Sources
	if cfg.Assets.LearnCoefficients && src.Base != nil {
		for _, id := range recolor.BackgroundOrder {
			if k, ok := recolor.CoefficientsFromArt(src.Base, src.MainMasks[id], src.BackgroundMasks[id]); ok {
				coeffs[id] = k
				logger.Debug("coefficients learned",
					zap.Stringer("region", id),
					zap.Float64("r", k.R), zap.Float64("g", k.G), zap.Float64("b", k.B))
			}
		}
	}

	strategy, err := recolor.NewStrategy(cfg.Kind(), src, recolor.Options{
		Originals:           region.Palette(originals),
		ColorTolerance:      cfg.Tolerance.Color,
		BackgroundTolerance: cfg.Tolerance.Background,
		Coefficients:        coeffs,
		BackdropRegion:      cfg.Backdrop(),
		FrameBlend:          cfg.FrameBlend(),
	})
	if err != nil {
		return nil, err
	}
	return recolor.NewEngine(strategy, logger), nil
}

// OpenStore opens the configured scheme store. Persistent backends are
// wrapped so that writes survive a failing primary in a file under the
// temp directory derived from the primary's path.
func OpenStore(sc config.StorageConfig, logger *zap.Logger) (kv.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	primary, err := kv.Open(kv.Backend(sc.Backend), sc.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", sc.Backend, err)
	}
	if kv.Backend(sc.Backend) == kv.BackendMemory {
		return primary, nil
	}
	secondary := kv.NewFileStore(kv.FallbackPath(kv.ResolvePath(kv.Backend(sc.Backend), sc.Path)))
	return kv.NewFallback(primary, secondary, logger.Named("kv")), nil
}

// IsAssetError reports whether err means the session cannot render yet.
func IsAssetError(err error) bool {
	return errors.Is(err, recolor.ErrAssetsIncomplete) || errors.Is(err, assets.ErrAssetLoad)
}
