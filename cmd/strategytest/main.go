// Command strategytest renders the same palette with every recolor
// strategy and writes one PNG per strategy for side-by-side comparison.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"keycap-preview/internal/app"
	"keycap-preview/internal/assets"
	"keycap-preview/internal/config"
	"keycap-preview/internal/export"
	"keycap-preview/internal/recolor"
	"keycap-preview/internal/region"
	"keycap-preview/pkg/colorutil"
)

func main() {
	cfgPath := flag.String("config", "", "Path to keycap.yaml (default: built-in settings)")
	outDir := flag.String("out", "strategytest", "Output directory")
	invert := flag.Bool("complementary", true, "Use the complement of every original color")
	flag.Parse()

	v, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(v, *cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	paths, err := cfg.AssetPaths()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid asset paths: %v\n", err)
		os.Exit(1)
	}
	paths.Cards = nil

	originals, _ := cfg.OriginalColors()
	palette := region.Palette{}
	fmt.Printf("Palette:\n")
	for _, id := range region.All {
		c := originals[id]
		if *invert {
			c = colorutil.Complementary(c)
		}
		palette[id] = c
		fmt.Printf("  %s  %s -> %s\n", id, originals[id].DisplayHex(), c.DisplayHex())
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", *outDir, err)
		os.Exit(1)
	}

	fmt.Printf("\n%-10s %10s %12s  %s\n", "Strategy", "Size", "Time", "Result")
	for _, kind := range []recolor.Kind{recolor.KindLayer, recolor.KindMask, recolor.KindTolerance} {
		cfg.Strategy = string(kind)
		set, err := assets.NewLoader(cfg.Canvas.MaxWidth, nil).Load(context.Background(), paths, kind)
		if err != nil {
			fmt.Printf("%-10s %10s %12s  load failed: %v\n", kind, "-", "-", err)
			continue
		}
		engine, err := app.NewEngine(cfg, set, nil)
		if err != nil {
			fmt.Printf("%-10s %10s %12s  %v\n", kind, "-", "-", err)
			continue
		}

		start := time.Now()
		img, err := engine.Recolor(palette)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("%-10s %10s %12s  %v\n", kind, "-", elapsed.Round(time.Microsecond), err)
			continue
		}

		path := filepath.Join(*outDir, string(kind)+".png")
		f, err := os.Create(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", path, err)
			os.Exit(1)
		}
		err = export.PNG(f, img)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", path, err)
			os.Exit(1)
		}
		b := img.Bounds()
		fmt.Printf("%-10s %10s %12s  %s\n", kind, fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
			elapsed.Round(time.Microsecond), path)
	}
}
