package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	chart "github.com/wcharczuk/go-chart/v2"

	"pacing-forecaster/internal/forecast"
)

// ExportOptions hold parameters for exporting a forecast's hourly table.
type ExportOptions struct {
	ForecastOptions
	PNGPath string
	CSVPath string
}

// Export writes the expected hourly table of a forecast as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	res, err := a.project(ctx, opts.ForecastOptions)
	if err != nil {
		return err
	}

	if opts.CSVPath != "" {
		if err := writeFile(opts.CSVPath, func(w io.Writer) error { return writeHoursCSV(w, res) }); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		a.Logger.Info().Str("path", opts.CSVPath).Msg("hourly table exported")
	}

	if opts.PNGPath != "" {
		width, height := a.Config.Export.ChartWidth, a.Config.Export.ChartHeight
		if err := writeFile(opts.PNGPath, func(w io.Writer) error { return writeHoursPNG(w, res, width, height) }); err != nil {
			return fmt.Errorf("write png: %w", err)
		}
		a.Logger.Info().Str("path", opts.PNGPath).Msg("chart exported")
	}

	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

var hoursCSVHeader = []string{
	"hour", "cumulative_revenue", "hourly_revenue",
	"cumulative_low", "cumulative_high", "hourly_low", "hourly_high",
	"cumulative_impressions", "cumulative_clicks", "cumulative_sessions",
	"past", "current",
}

func writeHoursCSV(w io.Writer, res *forecast.Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(hoursCSVHeader); err != nil {
		return err
	}

	for _, row := range res.Hours {
		record := []string{
			strconv.Itoa(row.Hour),
			csvFloat(row.CumulativeRevenue),
			csvFloat(row.HourlyRevenue),
			csvFloat(row.CumulativeLow),
			csvFloat(row.CumulativeHigh),
			csvFloat(row.HourlyLow),
			csvFloat(row.HourlyHigh),
			csvFloat(row.CumulativeImpressions),
			csvFloat(row.CumulativeClicks),
			csvFloat(row.CumulativeSessions),
			strconv.FormatBool(row.Past),
			strconv.FormatBool(row.Current),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// csvFloat leaves unavailable values blank.
func csvFloat(v float64) string {
	if !forecast.IsAvailable(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func writeHoursPNG(w io.Writer, res *forecast.Result, width, height int) error {
	x := make([]float64, forecast.HoursPerDay)
	expected := make([]float64, forecast.HoursPerDay)
	low := make([]float64, forecast.HoursPerDay)
	high := make([]float64, forecast.HoursPerDay)

	for i, row := range res.Hours {
		x[i] = float64(row.Hour)
		expected[i] = orZero(row.CumulativeRevenue)
		low[i] = orZero(row.CumulativeLow)
		high[i] = orZero(row.CumulativeHigh)
	}

	moneyFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f")
	}
	band := chart.Style{StrokeColor: chart.ColorAlternateGray, StrokeDashArray: []float64{5, 5}}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s: expected cumulative revenue (EOD %s)", res.Weekday, formatMoney(res.EOD)),
		Width:  width,
		Height: height,
		XAxis: chart.XAxis{
			Name:           "Hour",
			ValueFormatter: func(v interface{}) string { return chart.FloatValueFormatterWithFormat(v, "%02.0f") },
		},
		YAxis: chart.YAxis{
			Name:           "Revenue",
			ValueFormatter: moneyFormatter,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: "Expected (p50)", XValues: x, YValues: expected},
			chart.ContinuousSeries{Name: "Low (-1 sd)", XValues: x, YValues: low, Style: band},
			chart.ContinuousSeries{Name: "High (+1 sd)", XValues: x, YValues: high, Style: band},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

func orZero(v float64) float64 {
	if forecast.IsAvailable(v) {
		return v
	}
	return 0
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
