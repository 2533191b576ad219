package cli

import (
	"github.com/spf13/cobra"

	"pacing-forecaster/internal/app"
	"pacing-forecaster/internal/forecast"
)

var statsWeekday string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the dataset and a weekday's hourly baseline",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.StatsOptions{}
		if statsWeekday != "" {
			wd, err := forecast.ParseWeekday(statsWeekday)
			if err != nil {
				return err
			}
			opts.Weekday = &wd
		}
		return getApp().Stats(cmd.Context(), opts)
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsWeekday, "weekday", "", "Print the hourly baseline for this weekday")
}
