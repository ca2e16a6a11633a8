package commands

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/diaghi13/dggm-sub002/pkg/application/services/relations"
	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
)

func newRelationsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relations",
		Short: "List, add and delete product relations",
	}
	cmd.AddCommand(
		newRelationsListCommand(app),
		newRelationsAddCommand(app),
		newRelationsDeleteCommand(app),
	)
	return cmd
}

func newRelationsListCommand(app *App) *cobra.Command {
	var (
		filter       relations.RelationFilter
		quote        bool
		material     bool
		stock        bool
		components   bool
		dependencies bool
	)

	cmd := &cobra.Command{
		Use:   "list <product>",
		Short: "List the outgoing relations of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			if components && dependencies {
				return errors.New("--components and --dependencies are mutually exclusive")
			}

			flags := cmd.Flags()
			if flags.Changed("quote") {
				filter.VisibleInQuote = &quote
			}
			if flags.Changed("material") {
				filter.VisibleInMaterialList = &material
			}
			if flags.Changed("stock") {
				filter.RequiredForStock = &stock
			}
			filter.ComponentsOnly = components
			filter.DependenciesOnly = dependencies

			edges, err := app.Service.ListRelations(cmd.Context(), id, filter)
			if err != nil {
				return err
			}
			p, err := app.printer(cmd)
			if err != nil {
				return err
			}
			return p.Relations(edges)
		},
	}

	cmd.Flags().StringVar(&filter.Kind, "kind", "", "Only relations of this kind")
	cmd.Flags().BoolVar(&quote, "quote", false, "Filter on quote visibility")
	cmd.Flags().BoolVar(&material, "material", false, "Filter on material list visibility")
	cmd.Flags().BoolVar(&stock, "stock", false, "Filter on the stock flag")
	cmd.Flags().BoolVar(&components, "components", false, "Only component relations")
	cmd.Flags().BoolVar(&dependencies, "dependencies", false, "Only non-component relations")
	return cmd
}

func newRelationsAddCommand(app *App) *cobra.Command {
	var (
		kind         string
		quantityType string
		value        string
		quote        bool
		material     bool
		stock        bool
		optional     bool
		minTrigger   float64
		maxTrigger   float64
		sortOrder    int
		notes        string
		update       int64
	)

	cmd := &cobra.Command{
		Use:   "add <product> <related-product>",
		Short: "Create or update a relation",
		Example: `  dggm relations add 10 42 --kind component --type multiplied --value 2
  dggm relations add 10 77 --kind consumable --type formula --value "ceil(qty / 6)" --quote --min 6`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			target, err := parseProductID(args[1])
			if err != nil {
				return err
			}
			rule, err := entities.ParseQuantityRule(quantityType, value)
			if err != nil {
				return err
			}

			edge := &entities.RelationEdge{
				ID:                    entities.RelationID(update),
				SourceID:              source,
				TargetID:              target,
				Kind:                  kind,
				QuantityRule:          rule,
				VisibleInQuote:        quote,
				VisibleInMaterialList: material,
				RequiredForStock:      stock,
				Optional:              optional,
				SortOrder:             sortOrder,
				Notes:                 notes,
			}
			if cmd.Flags().Changed("min") {
				edge.MinQuantityTrigger = entities.Trigger(minTrigger)
			}
			if cmd.Flags().Changed("max") {
				edge.MaxQuantityTrigger = entities.Trigger(maxTrigger)
			}

			if err := app.Service.StoreEdge(cmd.Context(), edge); err != nil {
				return err
			}
			p, err := app.printer(cmd)
			if err != nil {
				return err
			}
			return p.Relation(edge)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", entities.KindComponent, "Relation kind code")
	cmd.Flags().StringVar(&quantityType, "type", string(entities.QuantityFixed), "Quantity type: fixed, multiplied, formula")
	cmd.Flags().StringVar(&value, "value", "1", "Amount, factor or formula")
	cmd.Flags().BoolVar(&quote, "quote", false, "Show in quotes")
	cmd.Flags().BoolVar(&material, "material", true, "Show in material lists")
	cmd.Flags().BoolVar(&stock, "stock", true, "Required for stock")
	cmd.Flags().BoolVar(&optional, "optional", false, "Mark the line optional")
	cmd.Flags().Float64Var(&minTrigger, "min", 0, "Minimum parent quantity for the relation to apply")
	cmd.Flags().Float64Var(&maxTrigger, "max", 0, "Maximum parent quantity for the relation to apply")
	cmd.Flags().IntVar(&sortOrder, "sort", 0, "Sort order among siblings")
	cmd.Flags().StringVar(&notes, "notes", "", "Free text notes")
	cmd.Flags().Int64Var(&update, "id", 0, "Update the relation with this id instead of creating one")
	return cmd
}

func newRelationsDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <relation-id>",
		Short: "Delete a relation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return errors.Newf("invalid relation id %q", args[0])
			}
			if err := app.Service.DeleteEdge(cmd.Context(), entities.RelationID(id)); err != nil {
				return err
			}
			cmd.Printf("relation %d deleted\n", id)
			return nil
		},
	}
}
