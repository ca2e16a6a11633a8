package commands

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/diaghi13/dggm-sub002/pkg/application/services/relations"
	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
	"github.com/diaghi13/dggm-sub002/pkg/infrastructure/config"
	"github.com/diaghi13/dggm-sub002/pkg/infrastructure/logging"
	"github.com/diaghi13/dggm-sub002/pkg/infrastructure/repositories/database"
	"github.com/diaghi13/dggm-sub002/pkg/interfaces/cli/output"
)

// App carries the wired relation service shared by every command. A nil
// Service is built from the configuration before the first command runs.
type App struct {
	Service *relations.RelationService
	Config  *config.Config
	Logger  zerolog.Logger

	configPath string
	format     string
	closers    []func() error
}

// NewRootCommand creates the dggm command tree
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "dggm",
		Short: "Product relation and composite cost engine",
		Long: `dggm manages typed relations between catalog products, expands a product
and quantity into its relation tree, builds quote, material and stock lists,
and computes the cost and sale price of composite products.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.Service != nil {
				return nil
			}
			return app.bootstrap(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&app.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVarP(&app.format, "format", "f", output.FormatTable, "Output format: table, json, yaml")

	root.AddCommand(
		newImportCommand(app),
		newExportCommand(app),
		newRelationsCommand(app),
		newExpandCommand(app),
		newListsCommand(app),
		newCostCommand(app),
		newAuditCommand(app),
		newKindsCommand(app),
		newEventsCommand(app),
	)
	return root
}

func (a *App) bootstrap(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	a.closers = append(a.closers, sqlDB.Close)

	if err := database.Migrate(db); err != nil {
		return err
	}
	if err := database.SeedRelationKinds(ctx, db); err != nil {
		return err
	}

	a.Config = cfg
	a.Logger = logger
	a.Service = relations.NewRelationServiceWithConfig(
		database.NewProductRepository(db),
		database.NewRelationKindRepository(db),
		database.NewRelationRepository(db),
		relations.ServiceConfig{
			MaxDepth:   cfg.Engine.MaxDepth,
			Logger:     logger,
			EventStore: database.NewEventStore(db),
		},
	)

	logger.Debug().Str("driver", cfg.Database.Driver).Msg("catalog database ready")
	return nil
}

// Execute runs root and then releases whatever bootstrap opened, whether or
// not the command succeeded
func (a *App) Execute(ctx context.Context, root *cobra.Command) error {
	err := root.ExecuteContext(ctx)
	return errors.CombineErrors(err, a.close())
}

func (a *App) close() error {
	var err error
	for _, c := range a.closers {
		err = errors.CombineErrors(err, c())
	}
	a.closers = nil
	return err
}

func (a *App) printer(cmd *cobra.Command) (*output.Printer, error) {
	return output.NewPrinter(cmd.OutOrStdout(), a.format)
}

func (a *App) concurrency() int {
	if a.Config == nil {
		return 1
	}
	return a.Config.Concurrency
}

func parseProductID(arg string) (entities.ProductID, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Newf("invalid product id %q", arg)
	}
	return entities.ProductID(id), nil
}

func parseQuantity(arg string) (float64, error) {
	qty, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, errors.Newf("invalid quantity %q", arg)
	}
	return qty, nil
}
