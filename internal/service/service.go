package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pacing-forecaster/internal/alerting"
	"pacing-forecaster/internal/config"
	"pacing-forecaster/internal/forecast"
	"pacing-forecaster/internal/metrics"
	"pacing-forecaster/internal/scheduler"
	"pacing-forecaster/internal/storage"
)

// Outcome describes what a single tick decided.
type Outcome struct {
	Bucket  time.Time
	Date    time.Time
	Result  *forecast.Result
	History int
	// ShouldAlert is the alert decision before persistence and delivery;
	// Alerted reports whether an alert row was actually written or sent.
	ShouldAlert bool
	Alerted     bool
	Suppressed  bool
}

// Service runs the hourly pacing check against stored metrics.
type Service struct {
	scheduler  *scheduler.Scheduler
	store      storage.HourlyMetricsStore
	alertStore storage.AlertStore
	notifier   alerting.Notifier
	recorder   *metrics.Recorder
	cache      *forecast.StatisticsCache
	logger     zerolog.Logger

	location     *time.Location
	lookbackDays int
	includeCur   bool
	alertsOn     bool
	verdicts     map[forecast.Pacing]bool
	onWarnings   bool
	cooldown     time.Duration
	retention    time.Duration
	channels     []string
	locker       storage.AdvisoryLocker
	lockKey      int64

	mu         sync.Mutex
	lastAlert  time.Time
	seededLast bool
}

// New constructs the monitoring service. cache may be nil.
func New(cfg *config.Config, sched *scheduler.Scheduler, store storage.HourlyMetricsStore, alertStore storage.AlertStore, notifier alerting.Notifier, recorder *metrics.Recorder, cache *forecast.StatisticsCache, logger zerolog.Logger) *Service {
	loc, err := cfg.Location()
	if err != nil {
		loc = time.UTC
	}
	if cache == nil {
		cache = forecast.NewStatisticsCache()
	}

	verdicts := make(map[forecast.Pacing]bool, len(cfg.Alerting.Verdicts))
	for _, v := range cfg.Alerting.Verdicts {
		verdicts[forecast.Pacing(strings.ToLower(strings.TrimSpace(v)))] = true
	}

	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:    sched,
		store:        store,
		alertStore:   alertStore,
		notifier:     notifier,
		recorder:     recorder,
		cache:        cache,
		logger:       logger.With().Str("component", "service").Logger(),
		location:     loc,
		lookbackDays: cfg.Dataset.LookbackDays,
		includeCur:   cfg.Monitor.IncludeCurrentHour,
		alertsOn:     cfg.Alerting.Enabled,
		verdicts:     verdicts,
		onWarnings:   cfg.Alerting.OnWarnings,
		cooldown:     cfg.Alerting.Cooldown,
		retention:    cfg.Alerting.Retention,
		channels:     cfg.Alerting.Channels,
		locker:       locker,
		lockKey:      cfg.Monitor.AdvisoryLockKey,
	}
}

// Run begins the aligned hourly loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	if s.store == nil {
		return fmt.Errorf("hourly metrics store not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessBucket)
}

// ProcessBucket 执行单个时间桶的 pacing 检查。
func (s *Service) ProcessBucket(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		s.recorder.ObserveTick(metrics.OutcomeError)
		return err
	}
	if !proceed {
		s.recorder.ObserveTick(metrics.OutcomeSkipped)
		s.logger.Debug().Time("bucket", bucket).Msg("skip bucket because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	_, err = s.Evaluate(ctx, bucket)
	return err
}

// Evaluate runs one pacing check for bucket and, when configured, records
// and dispatches an alert. It does not take the advisory lock.
func (s *Service) Evaluate(ctx context.Context, bucket time.Time) (*Outcome, error) {
	local := bucket.In(s.location)
	date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	out := &Outcome{Bucket: bucket, Date: date}

	history, today, err := s.load(ctx, date)
	if err != nil {
		s.recorder.ObserveTick(metrics.OutcomeError)
		return nil, err
	}
	out.History = len(history)

	stats := s.cache.Statistics(history)
	ws := stats.Weekday(date.Weekday())

	checkpoint := local.Hour()
	effective := forecast.EffectiveHour(checkpoint, s.includeCur)
	var soFar forecast.HourlyMetrics
	if len(today) > 0 {
		soFar = today[0].SoFar(effective)
	}

	res, err := forecast.Forecast(ws, forecast.Query{
		CheckpointHour:     checkpoint,
		IncludeCurrentHour: s.includeCur,
		SoFar:              soFar,
	})
	if errors.Is(err, forecast.ErrNoForecast) {
		s.recorder.ObserveTick(metrics.OutcomeNoForecast)
		s.logger.Info().Str("date", date.Format(time.DateOnly)).
			Int("checkpoint_hour", checkpoint).
			Int("history_days", len(history)).
			Str("reason", err.Error()).
			Msg("no forecast for bucket")
		return out, nil
	}
	if err != nil {
		s.recorder.ObserveTick(metrics.OutcomeError)
		return nil, fmt.Errorf("forecast: %w", err)
	}
	out.Result = res

	s.recorder.ObserveTick(metrics.OutcomeForecast)
	s.recorder.ObserveForecast(res)
	s.logger.Info().Str("date", date.Format(time.DateOnly)).
		Str("weekday", res.Weekday.String()).
		Int("checkpoint_hour", res.CheckpointHour).
		Int("effective_hour", res.EffectiveHour).
		Float64("so_far", res.RevenueSoFar).
		Float64("eod", res.EOD).
		Float64("low", res.Low).
		Float64("high", res.High).
		Float64("delta_pct", res.DeltaPct).
		Str("verdict", string(res.Pacing)).
		Int("warnings", len(res.Warnings)).
		Msg("pacing evaluated")

	out.ShouldAlert = s.alertsOn && s.triggers(res)
	if !out.ShouldAlert {
		return out, nil
	}
	if !s.cooledDown(ctx, bucket) {
		out.Suppressed = true
		s.logger.Debug().Time("bucket", bucket).Dur("cooldown", s.cooldown).Msg("alert suppressed by cooldown")
		return out, nil
	}
	out.Alerted = s.emit(ctx, bucket, date, res)
	return out, nil
}

func (s *Service) load(ctx context.Context, date time.Time) ([]forecast.DayProfile, []forecast.DayProfile, error) {
	if s.store == nil {
		return nil, nil, fmt.Errorf("hourly metrics store not configured")
	}
	from := date.AddDate(0, 0, -s.lookbackDays)
	historyRows, err := s.store.ListHourlyMetrics(ctx, from, date)
	if err != nil {
		return nil, nil, fmt.Errorf("load history: %w", err)
	}
	todayRows, err := s.store.ListHourlyMetrics(ctx, date, date.AddDate(0, 0, 1))
	if err != nil {
		return nil, nil, fmt.Errorf("load today: %w", err)
	}
	history := forecast.Aggregate(storage.RecordsFromRows(historyRows))
	today := forecast.Aggregate(storage.RecordsFromRows(todayRows))
	return history, today, nil
}

func (s *Service) triggers(res *forecast.Result) bool {
	if s.verdicts[res.Pacing] {
		return true
	}
	return s.onWarnings && len(res.Warnings) > 0
}

func (s *Service) cooledDown(ctx context.Context, bucket time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seededLast && s.alertStore != nil {
		s.seededLast = true
		last, err := s.alertStore.LatestAlert(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to read latest alert; cooldown starts fresh")
		} else if last != nil {
			s.lastAlert = alertBucket(last, s.location)
		}
	}
	if s.cooldown <= 0 || s.lastAlert.IsZero() {
		return true
	}
	return bucket.Sub(s.lastAlert) >= s.cooldown
}

func (s *Service) emit(ctx context.Context, bucket, date time.Time, res *forecast.Result) bool {
	note := alerting.NewNotification(date, res, s.channels)
	emitted := false

	if s.alertStore != nil {
		record := storage.PacingAlert{
			Date:           date,
			CheckpointHour: res.CheckpointHour,
			EffectiveHour:  res.EffectiveHour,
			Verdict:        string(res.Pacing),
			DeltaPct:       note.DeltaPct,
			EOD:            note.EOD,
			Low:            note.Low,
			High:           note.High,
			Warnings:       note.Warnings,
			Channels:       s.channels,
		}
		if _, err := s.alertStore.InsertAlert(ctx, record); err != nil {
			s.logger.Error().Err(err).Time("bucket", bucket).Msg("failed to persist alert record")
		} else {
			emitted = true
			s.prune(ctx, bucket)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Time("bucket", bucket).Msg("failed to dispatch alert")
		} else {
			emitted = true
		}
	}

	if emitted {
		s.mu.Lock()
		s.lastAlert = bucket
		s.mu.Unlock()
		s.recorder.ObserveAlert(res.Pacing)
	}
	return emitted
}

// alertBucket recovers the bucket an alert was raised for. CreatedAt is wall
// time and trails the bucket by the settle delay.
func alertBucket(a *storage.PacingAlert, loc *time.Location) time.Time {
	return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), a.CheckpointHour, 0, 0, 0, loc)
}

func (s *Service) prune(ctx context.Context, bucket time.Time) {
	if s.retention <= 0 {
		return
	}
	cutoff := bucket.Add(-s.retention)
	if err := s.alertStore.DeleteAlertsBefore(ctx, cutoff); err != nil {
		s.logger.Warn().Err(err).Time("cutoff", cutoff).Msg("failed to prune old alerts")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
