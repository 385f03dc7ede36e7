package cli

import (
	"fmt"

	"github.com/dshills/pagebuilder/pkg/catalog"
	"github.com/spf13/cobra"
)

func newCatalogCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the component catalog",
	}
	cmd.AddCommand(newCatalogListCommand(a))
	return cmd
}

func newCatalogListCommand(a *app) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List addable component kinds",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.kinds()
			if err != nil {
				return err
			}

			entries := cat.Filter(filter)

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No matching kinds")
				return nil
			}
			fmt.Fprintf(out, "%-12s  %-16s  %-10s  %-9s  %s\n", "KIND", "NAME", "CATEGORY", "CONTAINER", "SIZE")
			for _, e := range entries {
				fmt.Fprintf(out, "%-12s  %-16s  %-10s  %-9s  %s\n",
					e.Kind, truncate(e.Name, 16), e.Category, yesNo(e.Container), sizeLabel(e))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Only show kinds whose name, kind or category contains this text")
	return cmd
}

func sizeLabel(e catalog.Entry) string {
	return fmt.Sprintf("%sx%s", e.DefaultSize.Width, e.DefaultSize.Height)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
