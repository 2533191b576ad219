package cli

import (
	"github.com/spf13/cobra"

	"pacing-forecaster/internal/app"
)

var (
	backtestWeekday        string
	backtestDate           string
	backtestIncludeCurrent bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Measure forecast error over a weekday's history",
	RunE: func(cmd *cobra.Command, args []string) error {
		now, err := monitorNow()
		if err != nil {
			return err
		}
		wd, err := resolveWeekday(backtestWeekday, backtestDate, now)
		if err != nil {
			return err
		}
		return getApp().Backtest(cmd.Context(), app.BacktestOptions{
			Weekday:            wd,
			IncludeCurrentHour: backtestIncludeCurrent,
		})
	},
}

func init() {
	backtestCmd.Flags().StringVar(&backtestWeekday, "weekday", "", "Weekday (0-6, 0=Sunday, or a name); defaults to today")
	backtestCmd.Flags().StringVar(&backtestDate, "date", "", "Calendar date (YYYY-MM-DD) whose weekday to use")
	backtestCmd.Flags().BoolVar(&backtestIncludeCurrent, "include-current", false, "Treat the checkpoint hour as complete")
}
