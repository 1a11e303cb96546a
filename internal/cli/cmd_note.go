package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) noteCommand() *cobra.Command {
	var (
		e      edits
		toClip bool
	)
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Print the order note for the chosen swatches",
		Long: `Print "A-<n>, B-<n>, C-<n>, D-<n>, E-<n>, F-<n>, <year>, <word>".
Every region needs a catalog swatch, the year must have four digits and
the word must be letters only.`,
		Example: `  keycap note --swatch A=1,B=20,C=33,D=41,E=52,F=60 --year 1975 --word Synth --copy`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := c.runtime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := e.apply(ctx, cmd, rt.Session); err != nil {
				return err
			}

			var text string
			if toClip {
				text, err = rt.Session.CopyNote()
			} else {
				text, err = rt.Session.GenerateNote()
			}
			if text != "" {
				fmt.Fprintln(cmd.OutOrStdout(), text)
			}
			return err
		},
	}
	e.register(cmd)
	cmd.Flags().BoolVar(&toClip, "copy", false, "copy the note to the clipboard")
	return cmd
}
