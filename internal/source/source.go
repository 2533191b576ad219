// Package source turns day×hour exports into forecast records.
package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"pacing-forecaster/internal/forecast"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("source: unsupported file format")

// RecordSource yields normalized hourly records.
type RecordSource interface {
	Records(ctx context.Context) (*Dataset, error)
}

// Dataset is the outcome of reading a source.
type Dataset struct {
	Records []forecast.Record
	// Rows counts data rows read, before any row is discarded.
	Rows int
}

// Options tune file loading.
type Options struct {
	// Sheet selects the XLSX worksheet; empty means the first sheet.
	Sheet string
}

// Load reads a CSV or XLSX file, chosen by extension.
func Load(ctx context.Context, path string, opts Options) (*Dataset, error) {
	src, err := ForPath(path, opts)
	if err != nil {
		return nil, err
	}
	return src.Records(ctx)
}

// ForPath returns the RecordSource matching the file extension of path.
func ForPath(path string, opts Options) (RecordSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return &CSVFile{Path: path}, nil
	case ".xlsx", ".xlsm":
		return &XLSXFile{Path: path, Sheet: opts.Sheet}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

var (
	dateAliases = []string{"dh.date", "date"}
	hourAliases = []string{"dh.hour", "hour"}
)

// columns maps header names to column indexes.
type columns struct {
	date, hour int
	metrics    [forecast.NumMetrics]int
	// dateText rewrites the raw date cell; nil keeps it as is.
	dateText func(string) string
}

func resolveColumns(header []string) (columns, error) {
	find := func(aliases ...string) int {
		for _, alias := range aliases {
			for i, h := range header {
				if strings.ToLower(strings.TrimSpace(h)) == alias {
					return i
				}
			}
		}
		return -1
	}

	cols := columns{date: find(dateAliases...), hour: find(hourAliases...)}
	if cols.date < 0 {
		return cols, errors.New("missing date column (expected dh.date or date)")
	}
	if cols.hour < 0 {
		return cols, errors.New("missing hour column (expected dh.hour or hour)")
	}
	for _, k := range forecast.Metrics {
		cols.metrics[k] = find(k.String())
	}
	return cols, nil
}

func (c columns) record(row []string) forecast.Record {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	date := cell(c.date)
	if c.dateText != nil {
		date = c.dateText(date)
	}
	if len(date) > 10 {
		date = date[:10]
	}

	var vals [forecast.NumMetrics]float64
	for _, k := range forecast.Metrics {
		vals[k] = parseAmount(cell(c.metrics[k]))
	}

	return forecast.Record{
		Date: date,
		Hour: parseHour(cell(c.hour)),
		Value: forecast.HourlyMetrics{
			Revenue:     vals[forecast.Revenue],
			Impressions: vals[forecast.Impressions],
			Clicks:      vals[forecast.Clicks],
			Sessions:    vals[forecast.Sessions],
		},
	}
}

// parseHour returns -1 for anything that is not a whole hour of the day.
func parseHour(s string) int {
	if s == "" {
		return -1
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != math.Trunc(v) || v < 0 || v >= forecast.HoursPerDay {
		return -1
	}
	return int(v)
}

func parseAmount(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func normalize(rows [][]string, dateText func(string) string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, errors.New("no header row")
	}
	cols, err := resolveColumns(rows[0])
	if err != nil {
		return nil, err
	}
	cols.dateText = dateText

	ds := &Dataset{Records: make([]forecast.Record, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		ds.Rows++
		ds.Records = append(ds.Records, cols.record(row))
	}
	return ds, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
