package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacing-forecaster/internal/forecast"
)

func TestForecastFlagsOptions(t *testing.T) {
	now := time.Date(2024, 1, 31, 14, 20, 0, 0, time.UTC) // Wednesday

	f := forecastFlags{hour: -1, revenue: "1234.50", sessions: "40"}
	opts, err := f.options(now)
	require.NoError(t, err)
	assert.Equal(t, time.Wednesday, opts.Weekday)
	assert.Equal(t, 14, opts.CheckpointHour)
	assert.Equal(t, forecast.HourlyMetrics{Revenue: 1234.5, Sessions: 40}, opts.SoFar)

	f = forecastFlags{hour: 9, date: "2024-01-29", revenue: "10", includeCurrent: true}
	opts, err = f.options(now)
	require.NoError(t, err)
	assert.Equal(t, time.Monday, opts.Weekday)
	assert.Equal(t, 9, opts.CheckpointHour)
	assert.True(t, opts.IncludeCurrentHour)
}

func TestForecastFlagsErrors(t *testing.T) {
	now := time.Date(2024, 1, 31, 14, 0, 0, 0, time.UTC)
	tests := map[string]forecastFlags{
		"missing revenue":  {hour: 3},
		"bad revenue":      {hour: 3, revenue: "ten"},
		"negative clicks":  {hour: 3, revenue: "1", clicks: "-4"},
		"hour too large":   {hour: 24, revenue: "1"},
		"bad weekday":      {hour: 3, revenue: "1", weekday: "funday"},
		"bad date":         {hour: 3, revenue: "1", date: "31/01/2024"},
		"weekday and date": {hour: 3, revenue: "1", weekday: "mon", date: "2024-01-29"},
	}
	for name, f := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.options(now)
			assert.Error(t, err)
		})
	}
}

func TestResolveWeekdayNames(t *testing.T) {
	now := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	wd, err := resolveWeekday("sat", "", now)
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, wd)

	wd, err = resolveWeekday("0", "", now)
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, wd)

	wd, err = resolveWeekday("", "", now)
	require.NoError(t, err)
	assert.Equal(t, time.Wednesday, wd)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "pacingforecaster dev (unknown, built unknown)")
}
