package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, SourceFile, cfg.Dataset.Source)
	assert.Equal(t, time.Hour, cfg.Monitor.Interval)
	assert.Equal(t, 5*time.Minute, cfg.Monitor.SettleDelay)
	assert.Equal(t, []string{"behind"}, cfg.Alerting.Verdicts)
	assert.False(t, cfg.Monitor.IncludeCurrentHour)
	assert.False(t, cfg.Monitor.RunImmediately)
	assert.Equal(t, 90*24*time.Hour, cfg.Alerting.Retention)
	assert.Equal(t, "data/x.csv", cfg.ResolveDatasetPath("data/x.csv"))
	assert.Equal(t, "data/default.csv", cfg.ResolveDatasetPath(""))
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
dataset:
  source: postgres
  lookback_days: 28
monitor:
  timezone: Europe/Berlin
  include_current_hour: true
  run_immediately: true
alerting:
  verdicts: behind,ahead
  retention: 168h
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("PACING_DATABASE_DSN", "postgres://localhost/pacing")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SourcePostgres, cfg.Dataset.Source)
	assert.Equal(t, 28, cfg.Dataset.LookbackDays)
	assert.Equal(t, "postgres://localhost/pacing", cfg.Database.DSN)
	assert.Equal(t, []string{"behind", "ahead"}, cfg.Alerting.Verdicts)
	assert.True(t, cfg.Monitor.IncludeCurrentHour)
	assert.True(t, cfg.Monitor.RunImmediately)
	assert.Equal(t, 7*24*time.Hour, cfg.Alerting.Retention)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Dataset:  DatasetConfig{Source: SourceFile, LookbackDays: 7},
			Monitor:  MonitorConfig{Interval: time.Hour, SettleDelay: time.Minute},
			Alerting: AlertingConfig{Verdicts: []string{"behind"}},
			Export:   ExportConfig{ChartWidth: 10, ChartHeight: 10},
		}
	}
	base := valid()
	require.NoError(t, base.Validate())

	tests := map[string]func(*Config){
		"unknown source":     func(c *Config) { c.Dataset.Source = "s3" },
		"zero lookback":      func(c *Config) { c.Dataset.LookbackDays = 0 },
		"zero interval":      func(c *Config) { c.Monitor.Interval = 0 },
		"settle too long":    func(c *Config) { c.Monitor.SettleDelay = 2 * time.Hour },
		"bad timezone":       func(c *Config) { c.Monitor.Timezone = "Mars/Olympus" },
		"unknown verdict":    func(c *Config) { c.Alerting.Verdicts = []string{"sideways"} },
		"telegram no token":  func(c *Config) { c.Alerting.Telegram = TelegramConfig{Enabled: true, ChatID: "1"} },
		"telegram no chat":   func(c *Config) { c.Alerting.Telegram = TelegramConfig{Enabled: true, BotToken: "t"} },
		"negative cooldown":  func(c *Config) { c.Alerting.Cooldown = -time.Second },
		"negative retention": func(c *Config) { c.Alerting.Retention = -time.Hour },
		"zero chart width":   func(c *Config) { c.Export.ChartWidth = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
