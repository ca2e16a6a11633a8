package commands

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/diaghi13/dggm-sub002/pkg/application/dto"
)

func newCostCommand(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "cost [product]",
		Short: "Compute the cost and sale price of composite products",
		Example: `  dggm cost 10
  dggm cost --all --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var breakdowns []*dto.CostBreakdown
			switch {
			case all && len(args) == 0:
				var err error
				breakdowns, err = app.Service.CostAll(cmd.Context(), app.concurrency())
				if err != nil {
					return err
				}
			case !all && len(args) == 1:
				id, err := parseProductID(args[0])
				if err != nil {
					return err
				}
				breakdown, err := app.Service.CostBreakdown(cmd.Context(), id)
				if err != nil {
					return err
				}
				breakdowns = []*dto.CostBreakdown{breakdown}
			default:
				return errors.New("pass either a product id or --all")
			}

			p, err := app.printer(cmd)
			if err != nil {
				return err
			}
			return p.Costs(breakdowns)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Compute every composite product")
	return cmd
}
