package commands

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/diaghi13/dggm-sub002/pkg/infrastructure/events"
)

func newEventsCommand(app *App) *cobra.Command {
	var (
		types []string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "events [product]",
		Short: "Show the relation history: stored, rejected and deleted relations and expansion anomalies",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := events.Query{Types: types, Limit: limit}
			if len(args) == 1 {
				id, err := parseProductID(args[0])
				if err != nil {
					return err
				}
				query.Stream = events.ProductStream(id)
			}
			for _, t := range types {
				if !slices.Contains(events.EventTypes, t) {
					return errors.Newf("unknown event type %q (expected one of %s)", t, strings.Join(events.EventTypes, ", "))
				}
			}
			if limit < 0 {
				return errors.Newf("--limit must not be negative, got %d", limit)
			}

			history, err := app.Service.History(cmd.Context(), query)
			if err != nil {
				return err
			}
			p, err := app.printer(cmd)
			if err != nil {
				return err
			}
			return p.Events(history)
		},
	}

	cmd.Flags().StringSliceVar(&types, "type", nil, "Only show these event types (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Show at most this many recent events; 0 shows all")
	return cmd
}
