package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pacing-forecaster/internal/forecast"
)

// ForecastOptions describe a single end-of-day projection request.
type ForecastOptions struct {
	Weekday            time.Weekday
	CheckpointHour     int
	IncludeCurrentHour bool
	SoFar              forecast.HourlyMetrics
}

func (o ForecastOptions) query() forecast.Query {
	return forecast.Query{
		CheckpointHour:     o.CheckpointHour,
		IncludeCurrentHour: o.IncludeCurrentHour,
		SoFar:              o.SoFar,
	}
}

func (a *App) project(ctx context.Context, opts ForecastOptions) (*forecast.Result, error) {
	ds, err := a.loadDataset(ctx)
	if err != nil {
		return nil, err
	}
	return forecast.Forecast(ds.Stats.Weekday(opts.Weekday), opts.query())
}

// Forecast prints the end-of-day estimate, pacing verdict, warnings and the
// expected hourly table.
func (a *App) Forecast(ctx context.Context, opts ForecastOptions) error {
	res, err := a.project(ctx, opts)
	if errors.Is(err, forecast.ErrNoForecast) {
		fmt.Fprintf(a.Out, "no forecast available for %s at hour %d (%v)\n", opts.Weekday, opts.CheckpointHour, err)
		return nil
	}
	if err != nil {
		return err
	}

	a.Logger.Debug().Str("weekday", res.Weekday.String()).
		Float64("eod", res.EOD).
		Str("verdict", string(res.Pacing)).
		Msg("forecast computed")
	renderForecast(a.Out, res)
	return nil
}
