package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pacing-forecaster/internal/alerting"
	"pacing-forecaster/internal/config"
	"pacing-forecaster/internal/forecast"
	"pacing-forecaster/internal/metrics"
	"pacing-forecaster/internal/scheduler"
	"pacing-forecaster/internal/service"
	"pacing-forecaster/internal/source"
	"pacing-forecaster/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	// DataPath overrides dataset.path and forces the file source.
	DataPath string
	// Out receives command output; logs go to the logger.
	Out io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config: cfg,
		Logger: logger.With().Str("component", "app").Logger(),
		Out:    os.Stdout,
	}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) requireStore(ctx context.Context, action string) (*storage.Store, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, fmt.Errorf("database not configured; cannot %s", action)
	}
	return store, closeStore, nil
}

// dataset is the loaded history with its baseline.
type dataset struct {
	Origin string
	Rows   int
	Days   []forecast.DayProfile
	Stats  *forecast.Statistics
}

func (a *App) usePostgres() bool {
	return a.DataPath == "" && a.Config.Dataset.Source == config.SourcePostgres
}

func (a *App) loadDataset(ctx context.Context) (*dataset, error) {
	var (
		records []forecast.Record
		rows    int
		origin  string
	)

	if a.usePostgres() {
		store, closeStore, err := a.requireStore(ctx, "load history")
		if err != nil {
			return nil, err
		}
		defer closeStore()

		loc, err := a.Config.Location()
		if err != nil {
			return nil, err
		}
		now := time.Now().In(loc)
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		// history only; the current day is partial
		stored, err := store.ListHourlyMetrics(ctx, today.AddDate(0, 0, -a.Config.Dataset.LookbackDays), today)
		if err != nil {
			return nil, err
		}
		records = storage.RecordsFromRows(stored)
		rows = len(stored)
		origin = "postgres"
	} else {
		path := a.Config.ResolveDatasetPath(a.DataPath)
		ds, err := source.Load(ctx, path, source.Options{Sheet: a.Config.Dataset.Sheet})
		if err != nil {
			return nil, fmt.Errorf("load dataset %s: %w", path, err)
		}
		records = ds.Records
		rows = ds.Rows
		origin = path
	}

	days := forecast.Aggregate(records)
	stats, err := buildStatistics(days)
	if err != nil {
		return nil, err
	}

	a.Logger.Debug().Str("origin", origin).Int("rows", rows).Int("days", len(days)).Msg("dataset loaded")
	return &dataset{Origin: origin, Rows: rows, Days: days, Stats: stats}, nil
}

// buildStatistics converts an unexpected panic in the statistics build into an error.
func buildStatistics(days []forecast.DayProfile) (stats *forecast.Statistics, err error) {
	defer func() {
		if r := recover(); r != nil {
			stats = nil
			err = fmt.Errorf("build statistics: %v", r)
		}
	}()
	return forecast.BuildStatistics(days), nil
}

// Run executes the long-running pacing monitor.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.requireStore(ctx, "run the pacing monitor")
	if err != nil {
		return err
	}
	defer closeStore()

	loc, err := a.Config.Location()
	if err != nil {
		return err
	}

	sched := scheduler.New(a.schedulerOptions(loc), a.Logger)

	cache := forecast.NewStatisticsCache()
	recorder := metrics.NewRecorder(cache)
	notifier := a.newNotifier()
	if a.Config.Alerting.Enabled && notifier == nil {
		a.Logger.Warn().Msg("alerting enabled without a notifier; alerts are only persisted")
	}

	stopMetrics := a.serveMetrics(recorder)
	defer stopMetrics()

	svc := service.New(a.Config, sched, store, store, notifier, recorder, cache, a.Logger)

	a.Logger.Info().Str("timezone", loc.String()).
		Dur("interval", a.Config.Monitor.Interval).
		Dur("settle_delay", a.Config.Monitor.SettleDelay).
		Msg("starting pacing monitor")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("pacing monitor stopped")
	return nil
}

func (a *App) schedulerOptions(loc *time.Location) scheduler.Options {
	return scheduler.Options{
		Interval:       a.Config.Monitor.Interval,
		SettleDelay:    a.Config.Monitor.SettleDelay,
		StartupDelay:   a.Config.Monitor.StartupDelay,
		Location:       loc,
		RunImmediately: a.Config.Monitor.RunImmediately,
	}
}

func (a *App) serveMetrics(recorder *metrics.Recorder) func() {
	listen := a.Config.Metrics.Listen
	if listen == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle(a.Config.Metrics.Path, recorder.Handler())
	srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.Logger.Info().Str("listen", listen).Str("path", a.Config.Metrics.Path).Msg("metrics endpoint listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error().Err(err).Msg("metrics endpoint failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
