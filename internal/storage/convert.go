package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"pacing-forecaster/internal/forecast"
)

// RowsFromRecords converts normalized records into storable rows. Records the
// aggregator would drop (bad date, hour outside 0..23) are skipped and counted.
func RowsFromRecords(records []forecast.Record) ([]HourlyMetricRow, int) {
	rows := make([]HourlyMetricRow, 0, len(records))
	skipped := 0
	for _, rec := range records {
		date, ok := forecast.ParseDate(rec.Date)
		if !ok || rec.Hour < 0 || rec.Hour >= forecast.HoursPerDay {
			skipped++
			continue
		}
		rows = append(rows, HourlyMetricRow{
			Date:        date,
			Hour:        rec.Hour,
			Revenue:     decimal.NewFromFloat(rec.Value.Revenue),
			Impressions: decimal.NewFromFloat(rec.Value.Impressions),
			Clicks:      decimal.NewFromFloat(rec.Value.Clicks),
			Sessions:    decimal.NewFromFloat(rec.Value.Sessions),
		})
	}
	return rows, skipped
}

// RecordsFromRows is the inverse of RowsFromRecords.
func RecordsFromRows(rows []HourlyMetricRow) []forecast.Record {
	records := make([]forecast.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, forecast.Record{
			Date: row.Date.Format(time.DateOnly),
			Hour: row.Hour,
			Value: forecast.HourlyMetrics{
				Revenue:     row.Revenue.InexactFloat64(),
				Impressions: row.Impressions.InexactFloat64(),
				Clicks:      row.Clicks.InexactFloat64(),
				Sessions:    row.Sessions.InexactFloat64(),
			},
		})
	}
	return records
}
