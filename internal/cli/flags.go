package cli

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"pacing-forecaster/internal/app"
	"pacing-forecaster/internal/forecast"
)

// forecastFlags are shared by forecast, export and simulate-alert.
type forecastFlags struct {
	weekday        string
	date           string
	hour           int
	includeCurrent bool
	revenue        string
	impressions    string
	clicks         string
	sessions       string
}

func (f *forecastFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.weekday, "weekday", "", "Weekday (0-6, 0=Sunday, or a name); defaults to today")
	cmd.Flags().StringVar(&f.date, "date", "", "Calendar date (YYYY-MM-DD) whose weekday to use")
	cmd.Flags().IntVar(&f.hour, "hour", -1, "Checkpoint hour 0-23; defaults to the current hour")
	cmd.Flags().BoolVar(&f.includeCurrent, "include-current", false, "Treat the checkpoint hour as complete")
	cmd.Flags().StringVar(&f.revenue, "revenue", "", "Revenue so far (required)")
	cmd.Flags().StringVar(&f.impressions, "impressions", "", "Impressions so far")
	cmd.Flags().StringVar(&f.clicks, "clicks", "", "Clicks so far")
	cmd.Flags().StringVar(&f.sessions, "sessions", "", "Sessions so far")
}

func (f *forecastFlags) options(now time.Time) (app.ForecastOptions, error) {
	opts := app.ForecastOptions{IncludeCurrentHour: f.includeCurrent}

	wd, err := resolveWeekday(f.weekday, f.date, now)
	if err != nil {
		return opts, err
	}
	opts.Weekday = wd

	opts.CheckpointHour = f.hour
	if f.hour < 0 {
		opts.CheckpointHour = now.Hour()
	}
	if opts.CheckpointHour > 23 {
		return opts, fmt.Errorf("--hour must be within 0-23")
	}

	if f.revenue == "" {
		return opts, fmt.Errorf("--revenue is required")
	}
	for _, field := range []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"revenue", f.revenue, &opts.SoFar.Revenue},
		{"impressions", f.impressions, &opts.SoFar.Impressions},
		{"clicks", f.clicks, &opts.SoFar.Clicks},
		{"sessions", f.sessions, &opts.SoFar.Sessions},
	} {
		v, err := parseAmount(field.raw)
		if err != nil {
			return opts, fmt.Errorf("invalid --%s value: %w", field.name, err)
		}
		*field.dst = v
	}
	return opts, nil
}

func resolveWeekday(weekday, date string, now time.Time) (time.Weekday, error) {
	switch {
	case weekday != "" && date != "":
		return 0, fmt.Errorf("--weekday and --date are mutually exclusive")
	case date != "":
		d, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return 0, fmt.Errorf("invalid --date value: %w", err)
		}
		return d.Weekday(), nil
	case weekday != "":
		return forecast.ParseWeekday(weekday)
	default:
		return now.Weekday(), nil
	}
}

// parseAmount reads a decimal amount; empty means not provided.
func parseAmount(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("must not be negative")
	}
	return d.InexactFloat64(), nil
}

func monitorNow() (time.Time, error) {
	loc, err := getApp().Config.Location()
	if err != nil {
		return time.Time{}, err
	}
	return time.Now().In(loc), nil
}
