package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pacing-forecaster/internal/app"
)

var replayDate string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-run the hourly pacing check for a past date without alerting",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayDate == "" {
			return fmt.Errorf("--date must be provided")
		}
		date, err := time.Parse(time.DateOnly, replayDate)
		if err != nil {
			return fmt.Errorf("invalid --date value: %w", err)
		}
		return getApp().Replay(cmd.Context(), app.ReplayOptions{Date: date})
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayDate, "date", "", "Date to replay (YYYY-MM-DD, monitor timezone)")
}
