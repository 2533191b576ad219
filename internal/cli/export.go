package cli

import (
	"github.com/spf13/cobra"

	"pacing-forecaster/internal/app"
)

var (
	exportArgs    forecastFlags
	exportPNGPath string
	exportCSVPath string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a forecast's expected hourly table as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		now, err := monitorNow()
		if err != nil {
			return err
		}
		forecastOpts, err := exportArgs.options(now)
		if err != nil {
			return err
		}

		opts := app.ExportOptions{
			ForecastOptions: forecastOpts,
			PNGPath:         exportPNGPath,
			CSVPath:         exportCSVPath,
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportArgs.register(exportCmd)
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
}
