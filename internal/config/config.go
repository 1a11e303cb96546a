// Package config loads keycap-preview settings from defaults, a YAML file,
// KEYCAP_* environment variables and bound command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"keycap-preview/internal/assets"
	"keycap-preview/internal/catalog"
	"keycap-preview/internal/compositor"
	kimage "keycap-preview/internal/image"
	"keycap-preview/internal/kv"
	"keycap-preview/internal/recolor"
	"keycap-preview/internal/region"
	"keycap-preview/pkg/colorutil"
)

const (
	// DefaultConfigFileName is searched for as keycap.yaml.
	DefaultConfigFileName = "keycap"
	// EnvPrefix prefixes environment overrides, e.g. KEYCAP_STRATEGY.
	EnvPrefix = "KEYCAP"
)

// Config is the static configuration of the tool.
type Config struct {
	Strategy string `mapstructure:"strategy" yaml:"strategy"`

	Colors       ColorsConfig                    `mapstructure:"colors" yaml:"colors"`
	Tolerance    ToleranceConfig                 `mapstructure:"tolerance" yaml:"tolerance"`
	Coefficients map[string]recolor.Coefficients `mapstructure:"coefficients" yaml:"coefficients"`
	Assets       AssetsConfig                    `mapstructure:"assets" yaml:"assets"`
	Catalog      CatalogConfig                   `mapstructure:"catalog" yaml:"catalog"`
	Canvas       CanvasConfig                    `mapstructure:"canvas" yaml:"canvas"`
	Render       RenderConfig                    `mapstructure:"render" yaml:"render"`
	Overlay      compositor.Layout               `mapstructure:"overlay" yaml:"overlay"`
	Text         compositor.Text                 `mapstructure:"text" yaml:"text"`
	Storage      StorageConfig                   `mapstructure:"storage" yaml:"storage"`
	Export       ExportConfig                    `mapstructure:"export" yaml:"export"`
	Logging      LoggingConfig                   `mapstructure:"logging" yaml:"logging"`
}

// ColorsConfig holds reference colors measured from the original art.
type ColorsConfig struct {
	// Original maps region letters to the art's reference colors.
	Original map[string]string `mapstructure:"original" yaml:"original"`
	// OriginalBackground maps regions to their original background shade.
	// Used to derive coefficients that are not configured explicitly.
	OriginalBackground map[string]string `mapstructure:"original_background" yaml:"original_background"`
}

// ToleranceConfig are RGB distance limits for tolerance matching.
type ToleranceConfig struct {
	Color      float64 `mapstructure:"color" yaml:"color"`
	Background float64 `mapstructure:"background" yaml:"background"`
}

// AssetsConfig lists the image and font files. Relative paths resolve
// against Dir.
type AssetsConfig struct {
	Dir             string            `mapstructure:"dir" yaml:"dir"`
	Base            string            `mapstructure:"base" yaml:"base"`
	Frame           string            `mapstructure:"frame" yaml:"frame"`
	Layers          map[string]string `mapstructure:"layers" yaml:"layers"`
	Masks           map[string]string `mapstructure:"masks" yaml:"masks"`
	BackgroundMasks map[string]string `mapstructure:"background_masks" yaml:"background_masks"`
	DisplayFont     string            `mapstructure:"display_font" yaml:"display_font"`
	ScriptFont      string            `mapstructure:"script_font" yaml:"script_font"`
	// LearnCoefficients derives mask coefficients from the base art.
	LearnCoefficients bool `mapstructure:"learn_coefficients" yaml:"learn_coefficients"`
}

// Resolve joins a configured path onto Dir.
func (a AssetsConfig) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || a.Dir == "" {
		return p
	}
	return filepath.Join(a.Dir, p)
}

// CardConfig describes one catalog image.
type CardConfig struct {
	Name    string          `mapstructure:"name" yaml:"name"`
	Path    string          `mapstructure:"path" yaml:"path"`
	Rows    int             `mapstructure:"rows" yaml:"rows"`
	Cols    int             `mapstructure:"cols" yaml:"cols"`
	Start   int             `mapstructure:"start" yaml:"start"`
	End     int             `mapstructure:"end" yaml:"end"`
	Margins catalog.Margins `mapstructure:"margins" yaml:"margins"`
}

// Grid returns the card's swatch grid.
func (c CardConfig) Grid() catalog.Grid {
	return catalog.Grid{Rows: c.Rows, Cols: c.Cols, Start: c.Start, End: c.End, Margins: c.Margins}
}

// CatalogConfig lists the catalog cards.
type CatalogConfig struct {
	Cards []CardConfig `mapstructure:"cards" yaml:"cards"`
}

// CanvasConfig controls the output raster.
type CanvasConfig struct {
	MaxWidth int `mapstructure:"max_width" yaml:"max_width"`
	// Backdrop names the region whose color picks the smart background.
	Backdrop   string `mapstructure:"backdrop" yaml:"backdrop"`
	FrameBlend string `mapstructure:"frame_blend" yaml:"frame_blend"`
}

// RenderConfig controls re-render scheduling.
type RenderConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// StorageConfig selects the scheme store.
type StorageConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ExportConfig controls PNG output.
type ExportConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// LoggingConfig selects the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // console, json
	File   string `mapstructure:"file" yaml:"file"`
}

// SplitCards is the two-card catalog layout, 9×10 swatches each.
func SplitCards() []CardConfig {
	return []CardConfig{
		{Name: "card1", Path: "card1-90.png", Rows: 9, Cols: 10, Start: 1, End: 90},
		{Name: "card2", Path: "card91-180.png", Rows: 9, Cols: 10, Start: 91, End: 180},
	}
}

// SingleCard is the single 12×15 catalog layout.
func SingleCard() []CardConfig {
	return []CardConfig{
		{Name: "card", Path: "card.png", Rows: 12, Cols: 15, Start: 1, End: 180},
	}
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Strategy: string(recolor.KindLayer),
		Colors: ColorsConfig{
			Original: map[string]string{
				"A": "#FFFFFF",
				"B": "#8B1A1A",
				"C": "#FF8C42",
				"D": "#FFB884",
				"E": "#FFCFA8",
				"F": "#FFE4C8",
			},
			OriginalBackground: map[string]string{
				"B": "#5B090D",
				"C": "#CD5C22",
			},
		},
		Tolerance: ToleranceConfig{Color: 30, Background: 80},
		Coefficients: map[string]recolor.Coefficients{
			"B": recolor.DefaultCoefficients()[region.B],
			"C": recolor.DefaultCoefficients()[region.C],
		},
		Assets: AssetsConfig{
			Dir:   "assets",
			Base:  "original.png",
			Frame: "layer_Frame.png",
			Layers: map[string]string{
				"A": "layer_A.png",
				"B": "layer_B.png",
				"C": "layer_C.png",
				"D": "layer_D.png",
				"E": "layer_E.png",
				"F": "layer_F.png",
			},
			Masks: map[string]string{
				"A": "layer_A.png",
				"B": "layer_B.png",
				"C": "layer_C.png",
				"D": "layer_D.png",
				"E": "layer_E.png",
				"F": "layer_F.png",
			},
			BackgroundMasks: map[string]string{
				"B": "bg_b.png",
				"C": "bg_c.png",
				"D": "bg_d.png",
				"E": "bg_e.png",
				"F": "bg_f.png",
			},
			DisplayFont: "fonts/ERASB.TTF",
			ScriptFont:  "fonts/Riverside.ttf",
		},
		Catalog: CatalogConfig{Cards: SplitCards()},
		Canvas: CanvasConfig{
			MaxWidth:   1200,
			Backdrop:   "B",
			FrameBlend: "normal",
		},
		Render:  RenderConfig{Debounce: 100 * time.Millisecond},
		Overlay: compositor.DefaultLayout(),
		Text:    compositor.DefaultText(),
		Storage: StorageConfig{Backend: string(kv.BackendFile)},
		Export:  ExportConfig{Dir: "."},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// New returns a viper instance seeded with Default and wired for KEYCAP_*
// environment overrides.
func New() (*viper.Viper, error) {
	v := viper.New()
	data, err := yaml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("failed to encode defaults: %w", err)
	}
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

// Load merges the config file into v and decodes the result. With an
// empty cfgFile, keycap.yaml is searched in the working directory and the
// user config directory; a missing file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(kv.DefaultDir())
		v.SetConfigName(DefaultConfigFileName)
		v.SetConfigType("yaml")
	}

	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	if _, err := recolor.ParseKind(c.Strategy); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.OriginalColors(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.CoefficientSet(); err != nil {
		errs = append(errs, err)
	}
	if c.Tolerance.Color < 0 || c.Tolerance.Background < 0 {
		errs = append(errs, fmt.Errorf("tolerances must not be negative"))
	}
	if c.Canvas.MaxWidth < 0 {
		errs = append(errs, fmt.Errorf("canvas.max_width must not be negative"))
	}
	if _, err := region.Parse(c.Canvas.Backdrop); err != nil {
		errs = append(errs, fmt.Errorf("canvas.backdrop: %w", err))
	}
	if _, err := kimage.ParseBlendMode(c.Canvas.FrameBlend); err != nil {
		errs = append(errs, fmt.Errorf("canvas.frame_blend: %w", err))
	}
	if c.Render.Debounce < 0 {
		errs = append(errs, fmt.Errorf("render.debounce must not be negative"))
	}
	for i, card := range c.Catalog.Cards {
		if card.Rows <= 0 || card.Cols <= 0 || card.Start <= 0 {
			errs = append(errs, fmt.Errorf("catalog.cards[%d]: rows, cols and start must be positive", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Kind returns the configured strategy.
func (c *Config) Kind() recolor.Kind {
	k, _ := recolor.ParseKind(c.Strategy)
	return k
}

// OriginalColors parses the reference colors. Every region is required.
func (c *Config) OriginalColors() (map[region.ID]colorutil.RGB, error) {
	out, err := parseColorMap(c.Colors.Original)
	if err != nil {
		return nil, fmt.Errorf("colors.original: %w", err)
	}
	for _, id := range region.All {
		if _, ok := out[id]; !ok {
			return nil, fmt.Errorf("colors.original: missing region %s", id)
		}
	}
	return out, nil
}

// CoefficientSet returns explicit coefficients, filling gaps from the
// original background colors.
func (c *Config) CoefficientSet() (recolor.CoefficientSet, error) {
	set := recolor.CoefficientSet{}
	for k, v := range c.Coefficients {
		id, err := region.Parse(k)
		if err != nil {
			return nil, fmt.Errorf("coefficients: %w", err)
		}
		set[id] = v
	}

	bgs, err := parseColorMap(c.Colors.OriginalBackground)
	if err != nil {
		return nil, fmt.Errorf("colors.original_background: %w", err)
	}
	originals, _ := parseColorMap(c.Colors.Original)
	for id, bg := range bgs {
		if k, ok := set[id]; ok && !k.IsZero() {
			continue
		}
		if main, ok := originals[id]; ok {
			set[id] = recolor.DeriveCoefficients(main, bg)
		}
	}
	return set, nil
}

// Backdrop returns the region that picks the smart background.
func (c *Config) Backdrop() region.ID {
	id, err := region.Parse(c.Canvas.Backdrop)
	if err != nil {
		return region.B
	}
	return id
}

// FrameBlend returns the blend mode for the frame layer.
func (c *Config) FrameBlend() kimage.BlendMode {
	m, _ := kimage.ParseBlendMode(c.Canvas.FrameBlend)
	return m
}

// RegionPaths resolves a region → file map against the assets directory.
func (c *Config) RegionPaths(m map[string]string) (map[region.ID]string, error) {
	out := make(map[region.ID]string, len(m))
	for k, p := range m {
		id, err := region.Parse(k)
		if err != nil {
			return nil, err
		}
		if p != "" {
			out[id] = c.Assets.Resolve(p)
		}
	}
	return out, nil
}

// AssetPaths resolves every configured asset file.
func (c *Config) AssetPaths() (assets.Paths, error) {
	p := assets.Paths{
		Base:        c.Assets.Resolve(c.Assets.Base),
		Frame:       c.Assets.Resolve(c.Assets.Frame),
		DisplayFont: c.Assets.Resolve(c.Assets.DisplayFont),
		ScriptFont:  c.Assets.Resolve(c.Assets.ScriptFont),
	}
	var err error
	if p.Layers, err = c.RegionPaths(c.Assets.Layers); err != nil {
		return p, fmt.Errorf("assets.layers: %w", err)
	}
	if p.Masks, err = c.RegionPaths(c.Assets.Masks); err != nil {
		return p, fmt.Errorf("assets.masks: %w", err)
	}
	if p.BackgroundMasks, err = c.RegionPaths(c.Assets.BackgroundMasks); err != nil {
		return p, fmt.Errorf("assets.background_masks: %w", err)
	}
	for _, card := range c.Catalog.Cards {
		p.Cards = append(p.Cards, assets.CardSpec{
			Name: card.Name,
			Path: c.Assets.Resolve(card.Path),
			Grid: card.Grid(),
		})
	}
	return p, nil
}

func parseColorMap(m map[string]string) (map[region.ID]colorutil.RGB, error) {
	out := make(map[region.ID]colorutil.RGB, len(m))
	for k, hex := range m {
		id, err := region.Parse(k)
		if err != nil {
			return nil, err
		}
		c, err := colorutil.ParseHex(hex)
		if err != nil {
			return nil, fmt.Errorf("region %s: %w", id, err)
		}
		out[id] = c
	}
	return out, nil
}

// YAML renders cfg as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
