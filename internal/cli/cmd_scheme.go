package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"keycap-preview/internal/app"
	"keycap-preview/internal/scheme"
)

func (c *cli) schemeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheme",
		Short: "Manage saved color schemes",
		Long:  `Save, list, show, load and delete named color schemes.`,
	}
	cmd.AddCommand(
		c.schemeSaveCommand(),
		c.schemeListCommand(),
		c.schemeShowCommand(),
		c.schemeLoadCommand(),
		c.schemeDeleteCommand(),
	)
	return cmd
}

// schemeStore opens the store without loading any asset.
func (c *cli) schemeStore() (*scheme.Store, func(), error) {
	kv, err := app.OpenStore(c.cfg.Storage, c.logger)
	if err != nil {
		return nil, nil, err
	}
	return scheme.NewStore(kv, c.logger.Named("scheme")), func() { _ = kv.Close() }, nil
}

func parseSchemeNumber(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid scheme number %q (see 'keycap scheme list')", arg)
	}
	return n - 1, nil
}

func (c *cli) schemeSaveCommand() *cobra.Command {
	var e edits
	cmd := &cobra.Command{
		Use:   "save [name]",
		Short: "Save the given colors and text as a scheme",
		Long:  `Save a scheme. Without a name it is called "<year> <word>".`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := c.runtime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := e.apply(ctx, cmd, rt.Session); err != nil {
				return err
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			rec, err := rt.Session.SaveScheme(ctx, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %q\n", rec.Name)
			return nil
		},
	}
	e.register(cmd)
	return cmd
}

func (c *cli) schemeListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved schemes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := c.schemeStore()
			if err != nil {
				return err
			}
			defer closeStore()

			records, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "no saved schemes")
				return nil
			}
			for i, r := range records {
				fmt.Fprintf(out, "%3d. %-24s %s\n", i+1, r.Name, r.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func (c *cli) schemeShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <number>",
		Short: "Print a saved scheme as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseSchemeNumber(args[0])
			if err != nil {
				return err
			}
			store, closeStore, err := c.schemeStore()
			if err != nil {
				return err
			}
			defer closeStore()

			rec, err := store.Load(cmd.Context(), index)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}
}

func (c *cli) schemeLoadCommand() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "load <number>",
		Short: "Render a saved scheme and export it as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseSchemeNumber(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out") {
				c.cfg.Export.Dir = outDir
			}
			ctx := cmd.Context()
			rt, err := c.runtime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			rec, err := rt.Session.LoadScheme(ctx, index)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "loaded %q\n", rec.Name)
			printRegions(out, rt.Session.Regions(), rt.Session.Text())

			path, err := rt.Session.Export()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "export directory (default from config)")
	return cmd
}

func (c *cli) schemeDeleteCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <number>",
		Short: "Delete a saved scheme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseSchemeNumber(args[0])
			if err != nil {
				return err
			}
			store, closeStore, err := c.schemeStore()
			if err != nil {
				return err
			}
			defer closeStore()

			out := cmd.OutOrStdout()
			confirm := func(r scheme.Record) bool {
				if yes {
					return true
				}
				fmt.Fprintf(out, "Delete scheme %q? [y/N] ", r.Name)
				line, _ := bufio.NewReader(c.in).ReadString('\n')
				answer := strings.ToLower(strings.TrimSpace(line))
				return answer == "y" || answer == "yes"
			}
			rec, deleted, err := store.Delete(cmd.Context(), index, confirm)
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Fprintln(out, "cancelled")
				return nil
			}
			fmt.Fprintf(out, "deleted %q\n", rec.Name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}
