package app

import (
	"context"
	"fmt"
	"time"

	"pacing-forecaster/internal/forecast"
)

// StatsOptions configure the stats command.
type StatsOptions struct {
	// Weekday selects the baseline table; nil prints only the summary.
	Weekday *time.Weekday
}

// Stats prints a dataset summary and, optionally, a weekday's hourly baseline.
func (a *App) Stats(ctx context.Context, opts StatsOptions) error {
	ds, err := a.loadDataset(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "Loaded %d rows • %d days (%s)\n", ds.Rows, len(ds.Days), ds.Origin)
	if len(ds.Days) > 0 {
		fmt.Fprintf(a.Out, "Range: %s – %s\n",
			ds.Days[0].Date.Format(time.DateOnly), ds.Days[len(ds.Days)-1].Date.Format(time.DateOnly))
	}

	table := newTable(a.Out)
	fmt.Fprintln(table, "Weekday\tDays\tMean daily revenue\tMedian daily revenue\t")
	for _, wd := range forecast.DisplayWeekdays {
		ws := ds.Stats.Weekday(wd)
		rev := ws.Metric(forecast.Revenue)
		fmt.Fprintf(table, "%s\t%d\t%s\t%s\t\n", wd, ws.DayCount, formatMoney(rev.Daily.Mean), formatMoney(rev.Daily.P50))
	}
	table.Flush()

	if opts.Weekday == nil {
		return nil
	}

	ws := ds.Stats.Weekday(*opts.Weekday)
	fmt.Fprintf(a.Out, "\n%s baseline (%d days)\n", ws.Weekday, ws.DayCount)
	rev := ws.Metric(forecast.Revenue)

	table = newTable(a.Out)
	fmt.Fprintln(table, "Hour\tCompletion p25\tp50\tp75\tShare p50\tMean hourly revenue\t")
	for h := 0; h < forecast.HoursPerDay; h++ {
		c := rev.Completion[h]
		fmt.Fprintf(table, "%02d\t%s\t%s\t%s\t%s\t%s\t\n", h,
			formatPct(c.P25), formatPct(c.P50), formatPct(c.P75),
			formatPct(rev.Share[h].P50),
			formatMoney(rev.Hourly[h].Mean),
		)
	}
	table.Flush()
	return nil
}
