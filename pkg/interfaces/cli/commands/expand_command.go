package commands

import (
	"github.com/spf13/cobra"

	"github.com/diaghi13/dggm-sub002/pkg/application/services/relations"
)

func newExpandCommand(app *App) *cobra.Command {
	var opts relations.ExpandOptions

	cmd := &cobra.Command{
		Use:   "expand <product> <quantity>",
		Short: "Resolve a product and quantity into its relation tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			qty, err := parseQuantity(args[1])
			if err != nil {
				return err
			}

			expansion, err := app.Service.ExpandWithOptions(cmd.Context(), root, qty, opts)
			if err != nil {
				return err
			}
			p, err := app.printer(cmd)
			if err != nil {
				return err
			}
			return p.Expansion(expansion)
		},
	}

	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", 0, "Depth limit (default from config)")
	cmd.Flags().BoolVar(&opts.ComponentsOnly, "components-only", false, "Follow component relations only")
	return cmd
}

func newListsCommand(app *App) *cobra.Command {
	var list string

	cmd := &cobra.Command{
		Use:   "lists <product> <quantity>",
		Short: "Build the quote, material and stock lists of a product",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			qty, err := parseQuantity(args[1])
			if err != nil {
				return err
			}

			lists, _, err := app.Service.CalculateLists(cmd.Context(), root, qty)
			if err != nil {
				return err
			}
			p, err := app.printer(cmd)
			if err != nil {
				return err
			}
			return p.Lists(lists, list)
		},
	}

	cmd.Flags().StringVar(&list, "list", "", "Only one list: quote, material or stock")
	return cmd
}
