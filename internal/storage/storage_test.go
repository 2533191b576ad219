package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacing-forecaster/internal/forecast"
)

func TestRowsFromRecordsSkipsInvalid(t *testing.T) {
	records := []forecast.Record{
		{Date: "2024-01-01", Hour: 3, Value: forecast.HourlyMetrics{Revenue: 12.25, Sessions: 4}},
		{Date: "not-a-date", Hour: 3},
		{Date: "2024-01-01", Hour: -1},
		{Date: "2024-01-01", Hour: 24},
	}

	rows, skipped := RowsFromRecords(records)
	assert.Equal(t, 3, skipped)
	require.Len(t, rows, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.Equal(t, "12.25", rows[0].Revenue.String())
	assert.Equal(t, "4", rows[0].Sessions.String())

	back := RecordsFromRows(rows)
	require.Len(t, back, 1)
	assert.Equal(t, records[0], back[0])
}

func TestMigrationFilesOrdered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_more.sql", "0001_init.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "0003_dir.sql"), 0o755))

	files, err := MigrationFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "0001_init.sql"),
		filepath.Join(dir, "0002_more.sql"),
	}, files)

	_, err = MigrationFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestRepositoryMigrationsPresent(t *testing.T) {
	files, err := MigrationFiles(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	body, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "hourly_metrics")
	assert.Contains(t, string(body), "pacing_alerts")
}

func TestUnconfiguredStore(t *testing.T) {
	var store *Store
	ctx := context.Background()

	_, err := store.UpsertHourlyMetrics(ctx, []HourlyMetricRow{{}})
	assert.True(t, errors.Is(err, ErrNotConfigured))
	_, err = store.ListRecentAlerts(ctx, 5)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, _, err = store.TryAdvisoryLock(ctx, 1)
	assert.ErrorIs(t, err, ErrNotConfigured)
	store.Close()
}
