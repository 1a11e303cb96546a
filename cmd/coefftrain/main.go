// Command coefftrain learns background coefficients from the original art.
// It averages the base illustration under each region's main and
// background masks and writes the ratios as a YAML coefficients block
// ready to paste into keycap.yaml.
//
// Usage: coefftrain <keycap.yaml> [output-yaml]
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"keycap-preview/internal/assets"
	"keycap-preview/internal/config"
	"keycap-preview/internal/recolor"
	"keycap-preview/pkg/colorutil"
)

type output struct {
	Coefficients map[string]recolor.Coefficients `yaml:"coefficients"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <keycap.yaml> [output-yaml]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nLearns mask-strategy background coefficients from the base art.\n")
		fmt.Fprintf(os.Stderr, "Default output: stdout\n")
		os.Exit(1)
	}

	v, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(v, os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	paths, err := cfg.AssetPaths()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	paths.Cards = nil
	paths.DisplayFont, paths.ScriptFont = "", ""

	fmt.Fprintf(os.Stderr, "Loading base and masks from %s\n", cfg.Assets.Dir)
	// Coefficients are ratios, so the art is read at full size.
	set, err := assets.NewLoader(0, nil).Load(context.Background(), paths, recolor.KindMask)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading assets: %v\n", err)
		os.Exit(1)
	}
	if err := set.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	// Load existing output and merge if it exists
	out := output{Coefficients: map[string]recolor.Coefficients{}}
	outputPath := ""
	if len(os.Args) >= 3 {
		outputPath = os.Args[2]
		if existing, err := os.ReadFile(outputPath); err == nil {
			if err := yaml.Unmarshal(existing, &out); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not parse existing %s, starting fresh\n", outputPath)
				out.Coefficients = map[string]recolor.Coefficients{}
			}
		}
	}

	originals, _ := cfg.OriginalColors()
	learned := 0
	for _, id := range recolor.BackgroundOrder {
		k, ok := recolor.CoefficientsFromArt(set.Sources.Base, set.Sources.MainMasks[id], set.Sources.BackgroundMasks[id])
		if !ok {
			fmt.Fprintf(os.Stderr, "  %s: masks cover no opaque pixels, skipped\n", id)
			continue
		}
		out.Coefficients[id.String()] = k
		learned++
		shade := k.Apply(originals[id])
		fmt.Fprintf(os.Stderr, "  %s: r=%.4f g=%.4f b=%.4f  (%s -> %s, contrast %.2f)\n",
			id, k.R, k.G, k.B, originals[id].DisplayHex(), shade.DisplayHex(),
			colorutil.ContrastRatio(originals[id], shade))
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error serializing: %v\n", err)
		os.Exit(1)
	}

	if outputPath == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "\nWrote %d coefficients to %s\n", learned, outputPath)
}
