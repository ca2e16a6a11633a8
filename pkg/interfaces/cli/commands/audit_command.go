package commands

import (
	"github.com/spf13/cobra"
)

func newAuditCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check the stored catalog for cycles and structural problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Service.Audit(cmd.Context())
			if err != nil {
				return err
			}
			p, err := app.printer(cmd)
			if err != nil {
				return err
			}
			return p.Audit(result)
		},
	}
}

func newKindsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the configured relation kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := app.Service.ListKinds(cmd.Context())
			if err != nil {
				return err
			}
			p, err := app.printer(cmd)
			if err != nil {
				return err
			}
			return p.Kinds(kinds)
		},
	}
}
