package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"keycap-preview/internal/region"
)

func (c *cli) pickCommand() *cobra.Command {
	var (
		card, x, y int
		target     string
	)
	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Sample the catalog swatch under a pixel of a catalog card",
		Long: `Report the swatch number and color under pixel (x, y) of a catalog card
and the region it would be applied to. Positions outside the swatch grid
select nothing.`,
		Example: `  keycap pick --card 2 --x 410 --y 120 --region C`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := region.Parse(target)
			if err != nil {
				return err
			}
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.Session.SelectRegion(id); err != nil {
				return err
			}
			sel, err := rt.Session.PickCatalogSwatch(card-1, x, y)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  swatch %d  %s\n", id, sel.Number, sel.Color.DisplayHex())
			return nil
		},
	}
	cmd.Flags().IntVar(&card, "card", 1, "catalog card number")
	cmd.Flags().IntVar(&x, "x", 0, "pixel column on the card")
	cmd.Flags().IntVar(&y, "y", 0, "pixel row on the card")
	cmd.Flags().StringVar(&target, "region", "A", "region to apply the swatch to")
	return cmd
}
