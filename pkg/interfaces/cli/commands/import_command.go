package commands

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/diaghi13/dggm-sub002/pkg/application/dto"
	"github.com/diaghi13/dggm-sub002/pkg/infrastructure/repositories/csv"
	"github.com/diaghi13/dggm-sub002/pkg/infrastructure/repositories/yamlcatalog"
)

func newImportCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <catalog.yaml | directory>",
		Short: "Import kinds, products and relations",
		Long: `Import a YAML catalog file, or a directory holding products.csv and
relations.csv. Every relation goes through the same checks as a manual
write; rejected relations are reported and skipped.`,
		Example: `  dggm import catalog.yaml
  dggm import ./fixtures/stage`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(args[0])
			if err != nil {
				return err
			}
			report, err := app.Service.Import(cmd.Context(), catalog)
			if err != nil {
				return err
			}
			p, err := app.printer(cmd)
			if err != nil {
				return err
			}
			return p.ImportReport(report)
		},
	}
}

func newExportCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export <catalog.yaml>",
		Short: "Export the stored catalog as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := app.Service.Export(cmd.Context())
			if err != nil {
				return err
			}
			return yamlcatalog.Save(args[0], catalog)
		},
	}
}

func loadCatalog(path string) (*dto.Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot import %s", path)
	}
	if info.IsDir() {
		return csv.NewLoader().LoadCatalog(path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlcatalog.Load(path)
	default:
		return nil, errors.Newf("unsupported catalog file %s (expected .yaml or a CSV directory)", path)
	}
}
