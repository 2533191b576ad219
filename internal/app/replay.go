package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pacing-forecaster/internal/forecast"
	"pacing-forecaster/internal/service"
)

// ReplayOptions configure the replay command.
type ReplayOptions struct {
	// Date is the calendar day to replay, interpreted in monitor.timezone.
	Date time.Time
}

// Replay runs the monitor check for every hour of a past date without
// persisting or sending alerts.
func (a *App) Replay(ctx context.Context, opts ReplayOptions) error {
	store, closeStore, err := a.requireStore(ctx, "replay")
	if err != nil {
		return err
	}
	defer closeStore()

	loc, err := a.Config.Location()
	if err != nil {
		return err
	}

	svc := service.New(a.Config, nil, store, nil, nil, nil, forecast.NewStatisticsCache(), a.Logger)
	return a.replayHours(ctx, svc, opts.Date, loc)
}

// replayBuckets returns the top of each wall-clock hour of date in loc. An hour
// skipped by a DST transition has no bucket.
func replayBuckets(date time.Time, loc *time.Location) []time.Time {
	buckets := make([]time.Time, 0, forecast.HoursPerDay)
	for h := 0; h < forecast.HoursPerDay; h++ {
		bucket := time.Date(date.Year(), date.Month(), date.Day(), h, 0, 0, 0, loc)
		if bucket.Hour() != h {
			continue
		}
		buckets = append(buckets, bucket)
	}
	return buckets
}

func (a *App) replayHours(ctx context.Context, svc *service.Service, date time.Time, loc *time.Location) error {
	table := newTable(a.Out)
	fmt.Fprintln(table, "Checkpoint\tSo far\tEOD\tRange\tDelta\tVerdict\tWarnings\tWould alert\t")

	failed := 0
	for _, bucket := range replayBuckets(date, loc) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		h := bucket.Hour()
		out, err := svc.Evaluate(ctx, bucket)
		if err != nil {
			failed++
			a.Logger.Error().Err(err).Time("bucket", bucket).Msg("回放失败")
			continue
		}
		if out.Result == nil {
			fmt.Fprintf(table, "%02d:00\t%s\t%s\t%s\t%s\t%s\t\t\t\n", h, missing, missing, missing, missing, "no forecast")
			continue
		}
		res := out.Result
		fmt.Fprintf(table, "%02d:00\t%s\t%s\t%s – %s\t%s\t%s\t%d\t%t\t\n", h,
			formatMoney(res.RevenueSoFar),
			formatMoney(res.EOD),
			formatMoney(res.Low), formatMoney(res.High),
			formatSignedPct(res.DeltaPct),
			res.Pacing,
			len(res.Warnings),
			out.ShouldAlert,
		)
	}
	table.Flush()

	a.Logger.Info().Str("date", date.Format(time.DateOnly)).Int("failed", failed).Msg("回放完成")
	if failed > 0 {
		return errors.New("部分小时回放失败，请检查日志")
	}
	return nil
}
