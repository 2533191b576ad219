package app

import (
	"fmt"
	"io"
	"text/tabwriter"

	"pacing-forecaster/internal/alerting"
	"pacing-forecaster/internal/forecast"
)

const missing = "—"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func formatMoney(v float64) string {
	if !forecast.IsAvailable(v) {
		return missing
	}
	return alerting.Money(v).StringFixed(2)
}

func formatCount(v float64) string {
	if !forecast.IsAvailable(v) {
		return missing
	}
	return alerting.Money(v).StringFixed(0)
}

// formatPct renders a fraction as a percentage with one decimal.
func formatPct(fraction float64) string {
	if !forecast.IsAvailable(fraction) {
		return missing
	}
	return alerting.Percent(fraction).StringFixed(1) + "%"
}

func formatSignedPct(fraction float64) string {
	s := formatPct(fraction)
	if forecast.IsAvailable(fraction) && fraction > 0 {
		return "+" + s
	}
	return s
}

func renderForecast(w io.Writer, res *forecast.Result) {
	fmt.Fprintf(w, "%s • checkpoint %02d:00 • data through %02d:59\n", res.Weekday, res.CheckpointHour, res.EffectiveHour)
	fmt.Fprintf(w, "Revenue so far:       %s\n", formatMoney(res.RevenueSoFar))
	fmt.Fprintf(w, "End-of-day estimate:  %s (range %s – %s)\n", formatMoney(res.EOD), formatMoney(res.Low), formatMoney(res.High))
	fmt.Fprintf(w, "Expected by now:      %s (delta %s, %s)\n", formatMoney(res.ExpectedByNow), formatMoney(res.Delta), formatSignedPct(res.DeltaPct))
	fmt.Fprintf(w, "Pacing:               %s [%s]\n", res.Pacing.Label(), res.Pacing.Tone())

	if len(res.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range res.Warnings {
			fmt.Fprintf(w, "  [%s] %s\n", warn.Tone(), warn.Message)
		}
	}
	fmt.Fprintln(w)

	table := newTable(w)
	fmt.Fprintln(table, "Hour\tCum. revenue\tHourly\tCum. low\tCum. high\tHourly low\tHourly high\tCum. impr.\tCum. clicks\tCum. sessions\t")
	for _, row := range res.Hours {
		marker := ""
		switch {
		case row.Current:
			marker = ">"
		case row.Past:
			marker = "·"
		}
		fmt.Fprintf(table, "%s%02d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			marker, row.Hour,
			formatMoney(row.CumulativeRevenue),
			formatMoney(row.HourlyRevenue),
			formatMoney(row.CumulativeLow),
			formatMoney(row.CumulativeHigh),
			formatMoney(row.HourlyLow),
			formatMoney(row.HourlyHigh),
			formatCount(row.CumulativeImpressions),
			formatCount(row.CumulativeClicks),
			formatCount(row.CumulativeSessions),
		)
	}
	table.Flush()
}
