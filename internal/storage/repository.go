package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertHourlyMetricSQL = `INSERT INTO hourly_metrics (
        metric_date,
        hour,
        revenue,
        impressions,
        clicks,
        sessions,
        updated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,now()
    )
    ON CONFLICT (metric_date, hour) DO UPDATE
    SET
        revenue     = EXCLUDED.revenue,
        impressions = EXCLUDED.impressions,
        clicks      = EXCLUDED.clicks,
        sessions    = EXCLUDED.sessions,
        updated_at  = now();`

	listHourlyMetricsBetweenSQL = `SELECT
        metric_date,
        hour,
        revenue::text,
        impressions::text,
        clicks::text,
        sessions::text,
        updated_at
    FROM hourly_metrics
    WHERE metric_date >= $1
      AND metric_date < $2
    ORDER BY metric_date, hour;`

	countHourlyMetricsSQL = `SELECT COUNT(*), COUNT(DISTINCT metric_date) FROM hourly_metrics;`

	insertAlertSQL = `INSERT INTO pacing_alerts (
        metric_date,
        checkpoint_hour,
        effective_hour,
        verdict,
        delta_pct,
        eod,
        low,
        high,
        warnings,
        channels
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    )
    ON CONFLICT (metric_date, checkpoint_hour) DO UPDATE
    SET effective_hour = EXCLUDED.effective_hour,
        verdict        = EXCLUDED.verdict,
        delta_pct      = EXCLUDED.delta_pct,
        eod            = EXCLUDED.eod,
        low            = EXCLUDED.low,
        high           = EXCLUDED.high,
        warnings       = EXCLUDED.warnings,
        channels       = EXCLUDED.channels
    RETURNING ` + alertColumns + `;`

	listRecentAlertsSQL = `SELECT ` + alertColumns + `
    FROM pacing_alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	latestAlertSQL = `SELECT ` + alertColumns + `
    FROM pacing_alerts
    ORDER BY created_at DESC
    LIMIT 1;`

	deleteAlertsBeforeSQL = `DELETE FROM pacing_alerts WHERE created_at < $1;`

	alertColumns = `id,
        metric_date,
        checkpoint_hour,
        effective_hour,
        verdict,
        delta_pct::text,
        eod::text,
        low::text,
        high::text,
        warnings,
        channels,
        created_at`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// HourlyMetricsStore defines operations for day×hour metric persistence.
type HourlyMetricsStore interface {
	UpsertHourlyMetrics(ctx context.Context, rows []HourlyMetricRow) (int, error)
	ListHourlyMetrics(ctx context.Context, from, to time.Time) ([]HourlyMetricRow, error)
	CountHourlyMetrics(ctx context.Context) (rows int64, days int64, err error)
}

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert PacingAlert) (PacingAlert, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]PacingAlert, error)
	LatestAlert(ctx context.Context) (*PacingAlert, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

var (
	_ HourlyMetricsStore = (*Store)(nil)
	_ AlertStore         = (*Store)(nil)
	_ AdvisoryLocker     = (*Store)(nil)
)

// Store aggregates access to hourly metrics and pacing alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// best effort; the session lock also dies with the connection
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertHourlyMetrics writes rows in a single batch. Later rows for the same
// slot overwrite earlier ones.
func (s *Store) UpsertHourlyMetrics(ctx context.Context, rows []HourlyMetricRow) (int, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(upsertHourlyMetricSQL,
			row.Date,
			row.Hour,
			row.Revenue.String(),
			row.Impressions.String(),
			row.Clicks.String(),
			row.Sessions.String(),
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range rows {
		if _, execErr := results.Exec(); execErr != nil {
			return i, fmt.Errorf("upsert hourly metric %s h%02d: %w", rows[i].Date.Format(time.DateOnly), rows[i].Hour, execErr)
		}
	}
	return len(rows), nil
}

// ListHourlyMetrics lists slots with from <= date < to ordered by date and hour.
func (s *Store) ListHourlyMetrics(ctx context.Context, from, to time.Time) ([]HourlyMetricRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listHourlyMetricsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list hourly metrics: %w", queryErr)
	}
	defer rows.Close()

	out := make([]HourlyMetricRow, 0)
	for rows.Next() {
		row, scanErr := scanHourlyMetric(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// CountHourlyMetrics counts stored slots and distinct days.
func (s *Store) CountHourlyMetrics(ctx context.Context) (int64, int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, 0, err
	}
	var rows, days int64
	if scanErr := pool.QueryRow(ctx, countHourlyMetricsSQL).Scan(&rows, &days); scanErr != nil {
		return 0, 0, fmt.Errorf("count hourly metrics: %w", scanErr)
	}
	return rows, days, nil
}

// InsertAlert persists an alert emission. A second alert for the same date and
// checkpoint hour replaces the first.
func (s *Store) InsertAlert(ctx context.Context, alert PacingAlert) (PacingAlert, error) {
	pool, err := s.getPool()
	if err != nil {
		return PacingAlert{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.Date,
		alert.CheckpointHour,
		alert.EffectiveHour,
		alert.Verdict,
		alert.DeltaPct.String(),
		alert.EOD.String(),
		alert.Low.String(),
		alert.High.String(),
		nonNil(alert.Warnings),
		nonNil(alert.Channels),
	)

	rec, scanErr := scanAlert(row)
	if scanErr != nil {
		return PacingAlert{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]PacingAlert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]PacingAlert, 0, limit)
	for rows.Next() {
		rec, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// LatestAlert returns the most recent alert, or nil when none exist.
func (s *Store) LatestAlert(ctx context.Context) (*PacingAlert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rec, scanErr := scanAlert(pool.QueryRow(ctx, latestAlertSQL))
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return nil, nil
	}
	if scanErr != nil {
		return nil, fmt.Errorf("latest alert: %w", scanErr)
	}
	return &rec, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func scanHourlyMetric(rows pgx.Rows) (HourlyMetricRow, error) {
	var (
		row                                    HourlyMetricRow
		hour                                   int16
		revenue, impressions, clicks, sessions string
	)
	if err := rows.Scan(&row.Date, &hour, &revenue, &impressions, &clicks, &sessions, &row.UpdatedAt); err != nil {
		return HourlyMetricRow{}, err
	}
	row.Hour = int(hour)

	values, err := parseDecimals(revenue, impressions, clicks, sessions)
	if err != nil {
		return HourlyMetricRow{}, fmt.Errorf("hourly metric %s h%02d: %w", row.Date.Format(time.DateOnly), row.Hour, err)
	}
	row.Revenue, row.Impressions, row.Clicks, row.Sessions = values[0], values[1], values[2], values[3]
	return row, nil
}

func scanAlert(row pgx.Row) (PacingAlert, error) {
	var (
		rec                   PacingAlert
		checkpoint, effective int16
		delta, eod, low, high string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Date,
		&checkpoint,
		&effective,
		&rec.Verdict,
		&delta,
		&eod,
		&low,
		&high,
		&rec.Warnings,
		&rec.Channels,
		&rec.CreatedAt,
	); err != nil {
		return PacingAlert{}, err
	}
	rec.CheckpointHour = int(checkpoint)
	rec.EffectiveHour = int(effective)

	values, err := parseDecimals(delta, eod, low, high)
	if err != nil {
		return PacingAlert{}, fmt.Errorf("alert %d: %w", rec.ID, err)
	}
	rec.DeltaPct, rec.EOD, rec.Low, rec.High = values[0], values[1], values[2], values[3]
	return rec, nil
}

func parseDecimals(raw ...string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(raw))
	for i, s := range raw {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("parse numeric %q: %w", s, err)
		}
		out[i] = d
	}
	return out, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
