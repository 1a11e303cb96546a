// Package cli implements the keycap command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"keycap-preview/internal/app"
	"keycap-preview/internal/compositor"
	"keycap-preview/internal/config"
	"keycap-preview/internal/region"
	"keycap-preview/internal/version"
	"keycap-preview/pkg/colorutil"
)

// cli carries state shared by every subcommand of one command tree.
type cli struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	logger  *zap.Logger
	in      io.Reader
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCommand builds the keycap command tree.
func NewRootCommand() *cobra.Command {
	c := &cli{in: os.Stdin}
	v, err := config.New()
	if err != nil {
		panic(err)
	}
	c.v = v

	rootCmd := &cobra.Command{
		Use:   "keycap",
		Short: "Keycap preview - recolor the keycap illustration",
		Long: `keycap recolors the six regions (A-F) of a keycap illustration, using
colors picked freely or from the numbered color catalog, exports the
result as PNG, saves named schemes and builds the order note.`,
		Version:       version.Get(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c.in = cmd.InOrStdin()
			return c.initConfig()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "config file (default: ./keycap.yaml or "+config.DefaultConfigFileName+".yaml in the user config dir)")
	pf.String("strategy", "", "recolor strategy (layer, mask, tolerance)")
	pf.String("assets", "", "asset directory")
	pf.String("storage", "", "scheme storage backend (file, sqlite, memory)")
	pf.String("storage-path", "", "scheme storage file")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "", "log format (console, json)")

	_ = v.BindPFlag("strategy", pf.Lookup("strategy"))
	_ = v.BindPFlag("assets.dir", pf.Lookup("assets"))
	_ = v.BindPFlag("storage.backend", pf.Lookup("storage"))
	_ = v.BindPFlag("storage.path", pf.Lookup("storage-path"))
	_ = v.BindPFlag("logging.level", pf.Lookup("log-level"))
	_ = v.BindPFlag("logging.format", pf.Lookup("log-format"))

	rootCmd.AddCommand(
		c.renderCommand(),
		c.pickCommand(),
		c.noteCommand(),
		c.schemeCommand(),
		c.catalogCommand(),
		c.configCommand(),
		versionCommand(),
	)
	return rootCmd
}

func (c *cli) initConfig() error {
	cfg, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	c.cfg = cfg
	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	c.logger = logger
	if used := c.v.ConfigFileUsed(); used != "" {
		logger.Debug("Config file loaded", zap.String("path", used))
	} else {
		logger.Debug("No config file found, using defaults and environment")
	}
	return nil
}

// NewLogger builds a production zap logger at the configured level.
// Logs go to stderr unless a file is configured.
func NewLogger(lc config.LoggingConfig) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()

	logLevel := zap.InfoLevel
	if lc.Level != "" {
		if err := logLevel.UnmarshalText([]byte(lc.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", lc.Level, err)
		}
	}
	zapConfig.Level = zap.NewAtomicLevelAt(logLevel)

	switch strings.ToLower(lc.Format) {
	case "", "console", "text":
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	case "json":
	default:
		return nil, fmt.Errorf("invalid log format %q", lc.Format)
	}

	zapConfig.OutputPaths = []string{"stderr"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	if lc.File != "" {
		zapConfig.OutputPaths = []string{lc.File}
		zapConfig.ErrorOutputPaths = []string{lc.File}
	}

	logger, err := zapConfig.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func (c *cli) runtime(ctx context.Context) (*app.Runtime, error) {
	return app.Build(ctx, c.cfg, c.logger)
}

// edits are the region and text changes most commands accept.
type edits struct {
	scheme   int
	colors   map[string]string
	swatches map[string]int
	year     string
	word     string
	space    string
}

func (e *edits) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&e.scheme, "scheme", 0, "start from the saved scheme with this number (see 'scheme list')")
	f.StringToStringVar(&e.colors, "color", nil, "set region colors, e.g. --color A=#ffffff,B=#8b1a1a")
	f.StringToIntVar(&e.swatches, "swatch", nil, "pick catalog swatches, e.g. --swatch A=12,C=140")
	f.StringVar(&e.year, "year", "", "year printed on the illustration")
	f.StringVar(&e.word, "word", "", "word printed on the illustration")
	f.StringVar(&e.space, "word-space", "", "alternate word for the script placement")
}

// apply replays the edits onto the session: scheme first, then swatches,
// then direct colors, then text.
func (e *edits) apply(ctx context.Context, cmd *cobra.Command, s *app.Session) error {
	if e.scheme > 0 {
		if _, err := s.LoadScheme(ctx, e.scheme-1); err != nil {
			return err
		}
	}

	for _, key := range sortedKeys(e.swatches) {
		id, err := region.Parse(key)
		if err != nil {
			return fmt.Errorf("--swatch: %w", err)
		}
		if err := s.SelectRegion(id); err != nil {
			return err
		}
		if _, err := s.SelectCatalogNumber(e.swatches[key]); err != nil {
			return fmt.Errorf("--swatch %s=%d: %w", id, e.swatches[key], err)
		}
	}

	for _, key := range sortedKeys(e.colors) {
		id, err := region.Parse(key)
		if err != nil {
			return fmt.Errorf("--color: %w", err)
		}
		col, err := colorutil.ParseHex(e.colors[key])
		if err != nil {
			return fmt.Errorf("--color %s: %w", id, err)
		}
		if err := s.SetRegionColor(id, col); err != nil {
			return err
		}
	}

	f := cmd.Flags()
	if f.Changed("year") || f.Changed("word") || f.Changed("word-space") {
		t := s.Text()
		if f.Changed("year") {
			t.Year = e.year
		}
		if f.Changed("word") {
			t.Word = e.word
		}
		if f.Changed("word-space") {
			t.WordSpace = e.space
		}
		s.SetText(t)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

func printRegions(w io.Writer, regions [region.Count]region.Region, text compositor.Text) {
	for _, r := range regions {
		fmt.Fprintf(w, "  %s  %s  %s\n", r.ID, r.CurrentColor.DisplayHex(), compositor.Label(r.ID, r.CatalogIndex))
	}
	fmt.Fprintf(w, "  text: %s\n", text.Header())
}
