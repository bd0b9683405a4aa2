package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	ESI          ESIConfig          `mapstructure:"esi"`
	Monitor      MonitorConfig      `mapstructure:"monitor"`
	Notification NotificationConfig `mapstructure:"notification"`
	Telegram     TelegramConfig     `mapstructure:"telegram"`
	Storage      StorageConfig      `mapstructure:"storage"`
	API          APIConfig          `mapstructure:"api"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ESIConfig holds EVE Swagger Interface market data configuration
type ESIConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Datasource        string        `mapstructure:"datasource"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelayBase    time.Duration `mapstructure:"retry_delay_base"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	DefaultRegionID   int64         `mapstructure:"default_region_id"`
}

// MonitorConfig holds alert checking behavior configuration
type MonitorConfig struct {
	CheckInterval     time.Duration `mapstructure:"check_interval"`
	SuppressionWindow time.Duration `mapstructure:"suppression_window"`
	MaxConcurrency    int           `mapstructure:"max_concurrency"`
	CheckTimeout      time.Duration `mapstructure:"check_timeout"`
	RecentWindow      time.Duration `mapstructure:"recent_window"`
	AutoStart         bool          `mapstructure:"auto_start"`
}

// NotificationConfig holds local notification channel configuration
type NotificationConfig struct {
	AutoDismiss  time.Duration `mapstructure:"auto_dismiss"`
	SoundCommand []string      `mapstructure:"sound_command"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	DBPath       string `mapstructure:"db_path"`
	Namespace    string `mapstructure:"namespace"`
	HistoryLimit int    `mapstructure:"history_limit"`
}

// APIConfig holds the HTTP consumer API configuration
type APIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	// Verbose logs every request instead of only failed ones.
	Verbose bool `mapstructure:"verbose"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// An empty path loads defaults and environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("ISKWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("esi.base_url", "https://esi.evetech.net/latest")
	v.SetDefault("esi.datasource", "tranquility")
	v.SetDefault("esi.user_agent", "iskwatch/dev")
	v.SetDefault("esi.timeout", "15s")
	v.SetDefault("esi.max_retries", 3)
	v.SetDefault("esi.retry_delay_base", "1s")
	v.SetDefault("esi.requests_per_second", 10.0)
	v.SetDefault("esi.burst", 5)
	v.SetDefault("esi.default_region_id", 10000002) // The Forge

	v.SetDefault("monitor.check_interval", "1m")
	v.SetDefault("monitor.suppression_window", "5m")
	v.SetDefault("monitor.max_concurrency", 8)
	v.SetDefault("monitor.check_timeout", "30s")
	v.SetDefault("monitor.recent_window", "24h")
	v.SetDefault("monitor.auto_start", true)

	v.SetDefault("notification.auto_dismiss", "10s")
	v.SetDefault("notification.sound_command", []string{})

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("storage.db_path", "./data/iskwatch.db")
	v.SetDefault("storage.namespace", "iskwatch")
	v.SetDefault("storage.history_limit", 100)

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.address", "127.0.0.1:8089")
	v.SetDefault("api.verbose", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.ESI.BaseURL == "" {
		return fmt.Errorf("esi.base_url is required")
	}
	if c.ESI.Timeout <= 0 {
		return fmt.Errorf("esi.timeout must be positive")
	}
	if c.ESI.MaxRetries < 1 {
		return fmt.Errorf("esi.max_retries must be at least 1")
	}
	if c.ESI.RequestsPerSecond <= 0 {
		return fmt.Errorf("esi.requests_per_second must be positive")
	}
	if c.ESI.Burst < 1 {
		return fmt.Errorf("esi.burst must be at least 1")
	}
	if c.ESI.DefaultRegionID <= 0 {
		return fmt.Errorf("esi.default_region_id must be positive")
	}

	if c.Monitor.CheckInterval < 5*time.Second {
		return fmt.Errorf("monitor.check_interval must be at least 5 seconds")
	}
	if c.Monitor.SuppressionWindow <= 0 {
		return fmt.Errorf("monitor.suppression_window must be positive")
	}
	if c.Monitor.MaxConcurrency < 1 {
		return fmt.Errorf("monitor.max_concurrency must be at least 1")
	}
	if c.Monitor.CheckTimeout <= 0 {
		return fmt.Errorf("monitor.check_timeout must be positive")
	}
	if c.Monitor.RecentWindow <= 0 {
		return fmt.Errorf("monitor.recent_window must be positive")
	}

	if c.Notification.AutoDismiss < 0 {
		return fmt.Errorf("notification.auto_dismiss must not be negative")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Storage.Namespace == "" {
		return fmt.Errorf("storage.namespace is required")
	}
	if c.Storage.HistoryLimit < 1 {
		return fmt.Errorf("storage.history_limit must be at least 1")
	}

	if c.API.Enabled && c.API.Address == "" {
		return fmt.Errorf("api.address is required when the api is enabled")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
