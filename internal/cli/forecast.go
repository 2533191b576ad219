package cli

import (
	"github.com/spf13/cobra"
)

var forecastArgs forecastFlags

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Project end-of-day revenue from revenue so far",
	RunE: func(cmd *cobra.Command, args []string) error {
		now, err := monitorNow()
		if err != nil {
			return err
		}
		opts, err := forecastArgs.options(now)
		if err != nil {
			return err
		}
		return getApp().Forecast(cmd.Context(), opts)
	},
}

func init() {
	forecastArgs.register(forecastCmd)
}
