package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pacing-forecaster/internal/forecast"
)

// BacktestOptions configure the backtest command.
type BacktestOptions struct {
	Weekday            time.Weekday
	IncludeCurrentHour bool
}

// Backtest replays the completion-ratio estimate over the weekday's history.
func (a *App) Backtest(ctx context.Context, opts BacktestOptions) error {
	ds, err := a.loadDataset(ctx)
	if err != nil {
		return err
	}

	rows, err := forecast.Backtest(ds.Days, ds.Stats.Weekday(opts.Weekday), opts.IncludeCurrentHour)
	if errors.Is(err, forecast.ErrInsufficientData) {
		fmt.Fprintf(a.Out, "no backtest available for %s (%v)\n", opts.Weekday, err)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "Backtest for %s (in-sample)\n", opts.Weekday)
	table := newTable(a.Out)
	fmt.Fprintln(table, "Checkpoint\tData through\tDays\tMAPE\tBias\t")
	for _, row := range rows {
		fmt.Fprintf(table, "%02d:00\t%02d:59\t%d\t%s\t%s\t\n",
			row.CheckpointHour, row.EffectiveHour, row.SampleCount,
			formatPct(row.MAPE), formatSignedPct(row.Bias))
	}
	table.Flush()
	return nil
}
