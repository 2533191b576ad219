package app

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// Show prints recent pacing alerts.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.requireStore(ctx, "show alerts")
	if err != nil {
		return err
	}
	defer closeStore()

	alerts, err := store.ListRecentAlerts(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(a.Out, "no alerts found")
		return nil
	}

	writer := newTable(a.Out)
	fmt.Fprintln(writer, "Created (UTC)\tDate\tCheckpoint\tVerdict\tDelta%\tEOD\tRange\tWarnings\tChannels")
	for _, alert := range alerts {
		fmt.Fprintf(writer, "%s\t%s\t%02d:00\t%s\t%s\t%s\t%s – %s\t%s\t%s\n",
			alert.CreatedAt.UTC().Format(time.RFC3339),
			alert.Date.Format(time.DateOnly),
			alert.CheckpointHour,
			alert.Verdict,
			alert.DeltaPct.StringFixed(1),
			alert.EOD.StringFixed(2),
			alert.Low.StringFixed(2),
			alert.High.StringFixed(2),
			sanitizeInline(strings.Join(alert.Warnings, " | ")),
			strings.Join(alert.Channels, ","),
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
