package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// HourlyMetricRow is one persisted day×hour slot. NUMERIC columns round-trip
// through decimal so imported values are stored exactly as read.
type HourlyMetricRow struct {
	Date        time.Time
	Hour        int
	Revenue     decimal.Decimal
	Impressions decimal.Decimal
	Clicks      decimal.Decimal
	Sessions    decimal.Decimal
	UpdatedAt   time.Time
}

// PacingAlert captures an emitted pacing alert for de-duplication/auditing.
type PacingAlert struct {
	ID             int64
	Date           time.Time
	CheckpointHour int
	EffectiveHour  int
	Verdict        string
	DeltaPct       decimal.Decimal
	EOD            decimal.Decimal
	Low            decimal.Decimal
	High           decimal.Decimal
	Warnings       []string
	Channels       []string
	CreatedAt      time.Time
}
