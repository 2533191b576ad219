package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"pacing-forecaster/internal/logging"
)

// Dataset sources.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Dataset  DatasetConfig  `mapstructure:"dataset"`
	Database DatabaseConfig `mapstructure:"database"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Export   ExportConfig   `mapstructure:"export"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatasetConfig selects where day×hour history comes from.
type DatasetConfig struct {
	Source       string `mapstructure:"source"`
	Path         string `mapstructure:"path"`
	Sheet        string `mapstructure:"sheet"`
	LookbackDays int    `mapstructure:"lookback_days"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// MonitorConfig governs the hourly pacing check.
type MonitorConfig struct {
	Interval           time.Duration `mapstructure:"interval"`
	SettleDelay        time.Duration `mapstructure:"settle_delay"`
	StartupDelay       time.Duration `mapstructure:"startup_delay"`
	Timezone           string        `mapstructure:"timezone"`
	IncludeCurrentHour bool          `mapstructure:"include_current_hour"`
	RunImmediately     bool          `mapstructure:"run_immediately"`
	AdvisoryLockKey    int64         `mapstructure:"advisory_lock_key"`
}

// AlertingConfig defines when pacing alerts fire and where they go.
type AlertingConfig struct {
	Enabled    bool           `mapstructure:"enabled"`
	Verdicts   []string       `mapstructure:"verdicts"`
	OnWarnings bool           `mapstructure:"on_warnings"`
	Cooldown   time.Duration  `mapstructure:"cooldown"`
	Retention  time.Duration  `mapstructure:"retention"`
	Channels   []string       `mapstructure:"channels"`
	Telegram   TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets chart export behaviour.
type ExportConfig struct {
	ChartWidth  int `mapstructure:"chart_width"`
	ChartHeight int `mapstructure:"chart_height"`
}

// MetricsConfig controls the Prometheus endpoint of the monitor.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
	Path   string `mapstructure:"path"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PACING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pacingforecaster")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("dataset.source", SourceFile)
	v.SetDefault("dataset.path", "data/default.csv")
	v.SetDefault("dataset.sheet", "")
	v.SetDefault("dataset.lookback_days", 91)

	v.SetDefault("monitor.interval", "1h")
	v.SetDefault("monitor.settle_delay", "5m")
	v.SetDefault("monitor.startup_delay", "0s")
	v.SetDefault("monitor.timezone", "UTC")
	v.SetDefault("monitor.include_current_hour", false)
	v.SetDefault("monitor.run_immediately", false)
	v.SetDefault("monitor.advisory_lock_key", int64(0x70616365))

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.verdicts", []string{"behind"})
	v.SetDefault("alerting.on_warnings", true)
	v.SetDefault("alerting.cooldown", "3h")
	v.SetDefault("alerting.retention", "2160h")
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.bot_token", "")
	v.SetDefault("alerting.telegram.chat_id", "")
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.chart_width", 1280)
	v.SetDefault("export.chart_height", 720)

	v.SetDefault("metrics.listen", "")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

var knownVerdicts = map[string]bool{"ahead": true, "behind": true, "on pace": true}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	switch c.Dataset.Source {
	case SourceFile, SourcePostgres:
	default:
		return fmt.Errorf("dataset.source must be %q or %q, got %q", SourceFile, SourcePostgres, c.Dataset.Source)
	}
	if c.Dataset.LookbackDays <= 0 {
		return fmt.Errorf("dataset.lookback_days must be greater than zero")
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be greater than zero")
	}
	if c.Monitor.SettleDelay < 0 || c.Monitor.SettleDelay >= c.Monitor.Interval {
		return fmt.Errorf("monitor.settle_delay must be within [0, monitor.interval)")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Alerting.Cooldown < 0 {
		return fmt.Errorf("alerting.cooldown cannot be negative")
	}
	if c.Alerting.Retention < 0 {
		return fmt.Errorf("alerting.retention cannot be negative")
	}
	for _, v := range c.Alerting.Verdicts {
		if !knownVerdicts[strings.ToLower(strings.TrimSpace(v))] {
			return fmt.Errorf("alerting.verdicts: unknown verdict %q", v)
		}
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	if c.Export.ChartWidth <= 0 || c.Export.ChartHeight <= 0 {
		return fmt.Errorf("export chart dimensions must be greater than zero")
	}
	return nil
}

// Location resolves monitor.timezone.
func (c *Config) Location() (*time.Location, error) {
	name := c.Monitor.Timezone
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("monitor.timezone: %w", err)
	}
	return loc, nil
}

// ResolveDatasetPath returns either the CLI override or the configured path.
func (c *Config) ResolveDatasetPath(override string) string {
	if override != "" {
		return override
	}
	return c.Dataset.Path
}
