package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"keycap-preview/internal/app"
)

func (c *cli) catalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the color catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "lookup <number>...",
		Short: "Print the card and sampled color of catalog swatches",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			cat := rt.Assets().Catalog
			out := cmd.OutOrStdout()
			for _, arg := range args {
				n, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("invalid swatch number %q", arg)
				}
				sel, ok := cat.Lookup(n)
				if !ok {
					return fmt.Errorf("%w: number %d", app.ErrNoSwatch, n)
				}
				fmt.Fprintf(out, "%3d  %-8s  %s\n", sel.Number, cat.Cards[sel.Card].Name, sel.Color.DisplayHex())
			}
			return nil
		},
	})
	return cmd
}
