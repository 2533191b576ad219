package cli

import (
	"github.com/spf13/cobra"

	"pacing-forecaster/internal/app"
)

var (
	importFile   string
	importSheet  string
	importDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a CSV/XLSX export into the hourly_metrics table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Import(cmd.Context(), app.ImportOptions{
			Path:   importFile,
			Sheet:  importSheet,
			DryRun: importDryRun,
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the SQL schema under database.migrations_path",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Migrate(cmd.Context())
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "File to import (defaults to --data or dataset.path)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX worksheet (defaults to dataset.sheet, then the first sheet)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Parse and report without writing to storage")
}
