package service

import (
	"context"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacing-forecaster/internal/alerting"
	"pacing-forecaster/internal/config"
	"pacing-forecaster/internal/forecast"
	"pacing-forecaster/internal/metrics"
	"pacing-forecaster/internal/storage"
)

type fakeStore struct {
	rows     []storage.HourlyMetricRow
	lockHeld bool
	locks    int
}

func (f *fakeStore) UpsertHourlyMetrics(_ context.Context, rows []storage.HourlyMetricRow) (int, error) {
	f.rows = append(f.rows, rows...)
	return len(rows), nil
}

func (f *fakeStore) ListHourlyMetrics(_ context.Context, from, to time.Time) ([]storage.HourlyMetricRow, error) {
	var out []storage.HourlyMetricRow
	for _, r := range f.rows {
		if !r.Date.Before(from) && r.Date.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) CountHourlyMetrics(context.Context) (int64, int64, error) {
	return int64(len(f.rows)), 0, nil
}

func (f *fakeStore) TryAdvisoryLock(context.Context, int64) (func(), bool, error) {
	if f.lockHeld {
		return nil, false, nil
	}
	f.locks++
	return func() {}, true, nil
}

type fakeAlerts struct {
	mu      sync.Mutex
	alerts  []storage.PacingAlert
	latest  *storage.PacingAlert
	cutoffs []time.Time
}

func (f *fakeAlerts) InsertAlert(_ context.Context, a storage.PacingAlert) (storage.PacingAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = int64(len(f.alerts) + 1)
	f.alerts = append(f.alerts, a)
	return a, nil
}

func (f *fakeAlerts) ListRecentAlerts(context.Context, int) ([]storage.PacingAlert, error) {
	return f.alerts, nil
}

func (f *fakeAlerts) LatestAlert(context.Context) (*storage.PacingAlert, error) {
	return f.latest, nil
}

func (f *fakeAlerts) DeleteAlertsBefore(_ context.Context, olderThan time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, olderThan)
	return nil
}

type fakeNotifier struct {
	notes []alerting.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, n alerting.Notification) error {
	f.notes = append(f.notes, n)
	return nil
}

func day(date string, hours int, revenue float64) []storage.HourlyMetricRow {
	d, _ := forecast.ParseDate(date)
	rows := make([]storage.HourlyMetricRow, 0, hours)
	for h := 0; h < hours; h++ {
		rows = append(rows, storage.HourlyMetricRow{
			Date:    d,
			Hour:    h,
			Revenue: decimal.NewFromFloat(revenue),
		})
	}
	return rows
}

// Four full Mondays at 10/hour and a Monday 2024-01-29 running at 5/hour.
func seededStore() *fakeStore {
	store := &fakeStore{}
	for _, d := range []string{"2024-01-01", "2024-01-08", "2024-01-15", "2024-01-22"} {
		store.rows = append(store.rows, day(d, 24, 10)...)
	}
	store.rows = append(store.rows, day("2024-01-29", 14, 5)...)
	return store
}

func testConfig() *config.Config {
	return &config.Config{
		Dataset: config.DatasetConfig{Source: config.SourcePostgres, LookbackDays: 91},
		Monitor: config.MonitorConfig{Timezone: "UTC", AdvisoryLockKey: 7},
		Alerting: config.AlertingConfig{
			Enabled:  true,
			Verdicts: []string{"behind"},
			Cooldown: 3 * time.Hour,
			Channels: []string{"telegram"},
		},
	}
}

func at(hour int) time.Time {
	return time.Date(2024, 1, 29, hour, 0, 0, 0, time.UTC)
}

func TestEvaluateBehindRaisesAlert(t *testing.T) {
	store := seededStore()
	alerts := &fakeAlerts{}
	notifier := &fakeNotifier{}
	svc := New(testConfig(), nil, store, alerts, notifier, metrics.NewRecorder(nil), nil, zerolog.Nop())

	out, err := svc.Evaluate(context.Background(), at(12))
	require.NoError(t, err)
	require.NotNil(t, out.Result)

	res := out.Result
	assert.Equal(t, 4, out.History)
	assert.Equal(t, time.Monday, res.Weekday)
	assert.Equal(t, 12, res.CheckpointHour)
	assert.Equal(t, 11, res.EffectiveHour)
	assert.InDelta(t, 60, res.RevenueSoFar, 1e-9)
	assert.InDelta(t, 120, res.EOD, 1e-9)
	assert.InDelta(t, -0.5, res.DeltaPct, 1e-9)
	assert.Equal(t, forecast.PacingBehind, res.Pacing)

	assert.True(t, out.ShouldAlert)
	assert.True(t, out.Alerted)
	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, "behind", alerts.alerts[0].Verdict)
	assert.Equal(t, "-50", alerts.alerts[0].DeltaPct.String())
	assert.Equal(t, 12, alerts.alerts[0].CheckpointHour)
	require.Len(t, notifier.notes, 1)
	assert.Equal(t, "120", notifier.notes[0].EOD.String())
}

func TestEvaluateCooldown(t *testing.T) {
	alerts := &fakeAlerts{}
	notifier := &fakeNotifier{}
	svc := New(testConfig(), nil, seededStore(), alerts, notifier, nil, nil, zerolog.Nop())
	ctx := context.Background()

	first, err := svc.Evaluate(ctx, at(12))
	require.NoError(t, err)
	assert.True(t, first.Alerted)

	second, err := svc.Evaluate(ctx, at(13))
	require.NoError(t, err)
	assert.True(t, second.ShouldAlert)
	assert.True(t, second.Suppressed)
	assert.False(t, second.Alerted)

	third, err := svc.Evaluate(ctx, at(15))
	require.NoError(t, err)
	assert.True(t, third.Alerted, "cooldown of 3h has elapsed")
	assert.Len(t, notifier.notes, 2)
}

func storedAlert(hour int, createdAt time.Time) *storage.PacingAlert {
	d, _ := forecast.ParseDate("2024-01-29")
	return &storage.PacingAlert{Date: d, CheckpointHour: hour, CreatedAt: createdAt}
}

func TestCooldownSeededFromStore(t *testing.T) {
	alerts := &fakeAlerts{latest: storedAlert(11, at(11).Add(5*time.Minute))}
	svc := New(testConfig(), nil, seededStore(), alerts, nil, nil, nil, zerolog.Nop())

	out, err := svc.Evaluate(context.Background(), at(12))
	require.NoError(t, err)
	assert.True(t, out.Suppressed)
	assert.Empty(t, alerts.alerts)
}

func TestCooldownSeedIgnoresSettleDelay(t *testing.T) {
	cfg := testConfig()
	cfg.Alerting.Cooldown = time.Hour
	// persisted a settle delay plus processing time after the 11:00 bucket
	alerts := &fakeAlerts{latest: storedAlert(11, at(11).Add(7*time.Minute))}
	svc := New(cfg, nil, seededStore(), alerts, nil, nil, nil, zerolog.Nop())

	out, err := svc.Evaluate(context.Background(), at(12))
	require.NoError(t, err)
	assert.False(t, out.Suppressed)
	assert.True(t, out.Alerted)
}

func TestCooldownSeedUsesMonitorTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.Monitor.Timezone = "America/New_York"
	cfg.Alerting.Cooldown = time.Hour
	// 11:00 New York is 16:00 UTC
	alerts := &fakeAlerts{latest: storedAlert(11, time.Date(2024, 1, 29, 16, 6, 0, 0, time.UTC))}
	svc := New(cfg, nil, seededStore(), alerts, nil, nil, nil, zerolog.Nop())

	out, err := svc.Evaluate(context.Background(), time.Date(2024, 1, 29, 16, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, out.Suppressed)

	out, err = svc.Evaluate(context.Background(), time.Date(2024, 1, 29, 17, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, out.Alerted)
}

func TestAlertPrunesExpiredRecords(t *testing.T) {
	cfg := testConfig()
	cfg.Alerting.Retention = 30 * 24 * time.Hour
	alerts := &fakeAlerts{}
	svc := New(cfg, nil, seededStore(), alerts, nil, nil, nil, zerolog.Nop())

	out, err := svc.Evaluate(context.Background(), at(12))
	require.NoError(t, err)
	require.True(t, out.Alerted)
	require.Len(t, alerts.cutoffs, 1)
	assert.True(t, at(12).AddDate(0, 0, -30).Equal(alerts.cutoffs[0]), "cutoff %s", alerts.cutoffs[0])
}

func TestAlertRetentionDisabled(t *testing.T) {
	alerts := &fakeAlerts{}
	svc := New(testConfig(), nil, seededStore(), alerts, nil, nil, nil, zerolog.Nop())

	out, err := svc.Evaluate(context.Background(), at(12))
	require.NoError(t, err)
	require.True(t, out.Alerted)
	assert.Empty(t, alerts.cutoffs)

	suppressed, err := svc.Evaluate(context.Background(), at(13))
	require.NoError(t, err)
	assert.True(t, suppressed.Suppressed)
	assert.Empty(t, alerts.cutoffs)
}

func TestEvaluateOnPaceNoAlert(t *testing.T) {
	store := seededStore()
	store.rows = append(day("2024-01-29", 24, 10), store.rows[:96]...)
	cfg := testConfig()
	cfg.Alerting.OnWarnings = true
	notifier := &fakeNotifier{}
	svc := New(cfg, nil, store, nil, notifier, nil, nil, zerolog.Nop())

	out, err := svc.Evaluate(context.Background(), at(12))
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Equal(t, forecast.PacingOnPace, out.Result.Pacing)
	assert.False(t, out.ShouldAlert)
	assert.Empty(t, notifier.notes)
}

func TestEvaluateNoHistory(t *testing.T) {
	store := &fakeStore{rows: day("2024-01-29", 10, 5)}
	svc := New(testConfig(), nil, store, nil, nil, nil, nil, zerolog.Nop())

	out, err := svc.Evaluate(context.Background(), at(12))
	require.NoError(t, err)
	assert.Nil(t, out.Result)
	assert.False(t, out.ShouldAlert)
}

func TestEvaluateIncludeCurrentHourInTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.Monitor.Timezone = "America/New_York"
	cfg.Monitor.IncludeCurrentHour = true
	svc := New(cfg, nil, seededStore(), nil, nil, nil, nil, zerolog.Nop())

	// 17:00 UTC is 12:00 in New York on 2024-01-29 (EST, UTC-5).
	out, err := svc.Evaluate(context.Background(), time.Date(2024, 1, 29, 17, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Equal(t, 12, out.Result.EffectiveHour)
	assert.InDelta(t, 65, out.Result.RevenueSoFar, 1e-9)
}

func TestProcessBucketRespectsLock(t *testing.T) {
	store := seededStore()
	store.lockHeld = true
	notifier := &fakeNotifier{}
	svc := New(testConfig(), nil, store, nil, notifier, nil, nil, zerolog.Nop())

	require.NoError(t, svc.ProcessBucket(context.Background(), at(12)))
	assert.Empty(t, notifier.notes)

	store.lockHeld = false
	require.NoError(t, svc.ProcessBucket(context.Background(), at(12)))
	assert.Equal(t, 1, store.locks)
	assert.Len(t, notifier.notes, 1)
}

func TestStatisticsCacheReusedAcrossTicks(t *testing.T) {
	cache := forecast.NewStatisticsCache()
	svc := New(testConfig(), nil, seededStore(), nil, nil, nil, cache, zerolog.Nop())
	ctx := context.Background()

	for _, h := range []int{9, 10, 11} {
		_, err := svc.Evaluate(ctx, at(h))
		require.NoError(t, err)
	}
	hits, builds := cache.Counters()
	assert.Equal(t, 1, builds)
	assert.Equal(t, 2, hits)
}

func TestRunRequiresScheduler(t *testing.T) {
	svc := New(testConfig(), nil, seededStore(), nil, nil, nil, nil, zerolog.Nop())
	assert.Error(t, svc.Run(context.Background()))
}
