package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"keycap-preview/internal/app"
)

func (c *cli) renderCommand() *cobra.Command {
	var (
		e      edits
		outDir string
		watch  bool
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Recolor the illustration and export it as PNG",
		Long: `Recolor the illustration with the given colors, swatches and text and
write wukds-keycap-<millis>.png into the export directory.

With --watch the asset files are watched and the PNG is exported again
after every change until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("out") {
				c.cfg.Export.Dir = outDir
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := c.runtime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := e.apply(ctx, cmd, rt.Session); err != nil {
				return err
			}
			path, err := rt.Session.Export()
			if err != nil {
				if app.IsAssetError(err) {
					return fmt.Errorf("cannot render until all assets load: %w", err)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)

			if !watch {
				return nil
			}
			return c.watch(ctx, cmd, rt)
		},
	}
	e.register(cmd)
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "export directory (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-export whenever an asset file changes")
	return cmd
}

func (c *cli) watch(ctx context.Context, cmd *cobra.Command, rt *app.Runtime) error {
	rt.Session.On(app.EventAssetsReloaded, func(interface{}) {
		path, err := rt.Session.Export()
		if err != nil {
			c.logger.Error("export after reload failed", zap.Error(err))
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	})

	w, err := rt.Watch(ctx)
	if err != nil {
		return err
	}
	defer w.Stop()

	c.logger.Info("watching assets, press Ctrl+C to stop")
	<-ctx.Done()
	return nil
}
