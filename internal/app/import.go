package app

import (
	"context"
	"fmt"

	"pacing-forecaster/internal/source"
	"pacing-forecaster/internal/storage"
)

// ImportOptions configure the import command.
type ImportOptions struct {
	Path   string
	Sheet  string
	DryRun bool
}

// Import loads a CSV/XLSX export and upserts it into hourly_metrics.
func (a *App) Import(ctx context.Context, opts ImportOptions) error {
	path := opts.Path
	if path == "" {
		path = a.Config.ResolveDatasetPath(a.DataPath)
	}
	sheet := opts.Sheet
	if sheet == "" {
		sheet = a.Config.Dataset.Sheet
	}

	ds, err := source.Load(ctx, path, source.Options{Sheet: sheet})
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	rows, skipped := storage.RowsFromRecords(ds.Records)
	a.Logger.Info().Str("path", path).
		Int("rows_read", ds.Rows).
		Int("rows_valid", len(rows)).
		Int("rows_skipped", skipped).
		Msg("import parsed")

	if opts.DryRun {
		fmt.Fprintf(a.Out, "dry-run: %d rows read, %d valid, %d skipped\n", ds.Rows, len(rows), skipped)
		return nil
	}

	store, closeStore, err := a.requireStore(ctx, "import")
	if err != nil {
		return err
	}
	defer closeStore()

	written, err := store.UpsertHourlyMetrics(ctx, rows)
	if err != nil {
		return err
	}
	total, days, err := store.CountHourlyMetrics(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "imported %d rows (%d skipped); store now holds %d rows over %d days\n", written, skipped, total, days)
	return nil
}

// Migrate applies the SQL files under database.migrations_path.
func (a *App) Migrate(ctx context.Context) error {
	store, closeStore, err := a.requireStore(ctx, "migrate")
	if err != nil {
		return err
	}
	defer closeStore()

	files, err := store.Migrate(ctx, a.Config.Database.MigrationsPath)
	if err != nil {
		return err
	}
	for _, f := range files {
		a.Logger.Info().Str("file", f).Msg("migration applied")
	}
	fmt.Fprintf(a.Out, "applied %d migration file(s)\n", len(files))
	return nil
}
