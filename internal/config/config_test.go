package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadAndValidate(t *testing.T) {
	content := `
esi:
  base_url: "https://esi.example.com/latest"
  timeout: 20s
  requests_per_second: 4
  default_region_id: 10000043

monitor:
  check_interval: 30s
  suppression_window: 5m
  max_concurrency: 4

notification:
  auto_dismiss: 10s
  sound_command: ["paplay", "--volume={volume}", "/usr/share/sounds/alert.oga"]

telegram:
  bot_token: "test_token"
  chat_id: "12345"
  enabled: true

storage:
  db_path: "./data/test.db"
  history_limit: 50

logging:
  level: "debug"
  format: "text"
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(tmpfile.Name()) }()

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ESI.BaseURL != "https://esi.example.com/latest" {
		t.Errorf("Unexpected base url: %s", cfg.ESI.BaseURL)
	}
	if cfg.ESI.Timeout != 20*time.Second {
		t.Errorf("Unexpected timeout: %v", cfg.ESI.Timeout)
	}
	if cfg.ESI.DefaultRegionID != 10000043 {
		t.Errorf("Unexpected default region: %d", cfg.ESI.DefaultRegionID)
	}
	if cfg.ESI.MaxRetries != 3 {
		t.Errorf("Expected default max retries 3, got %d", cfg.ESI.MaxRetries)
	}
	if cfg.Monitor.CheckInterval != 30*time.Second {
		t.Errorf("Unexpected check interval: %v", cfg.Monitor.CheckInterval)
	}
	if cfg.Monitor.SuppressionWindow != 5*time.Minute {
		t.Errorf("Unexpected suppression window: %v", cfg.Monitor.SuppressionWindow)
	}
	if len(cfg.Notification.SoundCommand) != 3 {
		t.Errorf("Expected 3 sound command args, got %d", len(cfg.Notification.SoundCommand))
	}
	if cfg.Storage.HistoryLimit != 50 {
		t.Errorf("Unexpected history limit: %d", cfg.Storage.HistoryLimit)
	}
	if cfg.Storage.Namespace != "iskwatch" {
		t.Errorf("Expected default namespace, got %q", cfg.Storage.Namespace)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Monitor.CheckInterval != time.Minute {
		t.Errorf("Expected 1m default interval, got %v", cfg.Monitor.CheckInterval)
	}
	if cfg.Notification.AutoDismiss != 10*time.Second {
		t.Errorf("Expected 10s auto dismiss, got %v", cfg.Notification.AutoDismiss)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ISKWATCH_LOGGING_LEVEL", "warn")
	t.Setenv("ISKWATCH_TELEGRAM_CHAT_ID", "999")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Expected env override for logging.level, got %q", cfg.Logging.Level)
	}
	if cfg.Telegram.ChatID != "999" {
		t.Errorf("Expected env override for telegram.chat_id, got %q", cfg.Telegram.ChatID)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/iskwatch.yaml"); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func validConfig() *Config {
	return &Config{
		ESI: ESIConfig{
			BaseURL:           "https://esi.example.com",
			Timeout:           10 * time.Second,
			MaxRetries:        3,
			RequestsPerSecond: 10,
			Burst:             5,
			DefaultRegionID:   10000002,
		},
		Monitor: MonitorConfig{
			CheckInterval:     time.Minute,
			SuppressionWindow: 5 * time.Minute,
			MaxConcurrency:    4,
			CheckTimeout:      30 * time.Second,
			RecentWindow:      24 * time.Hour,
		},
		Notification: NotificationConfig{AutoDismiss: 10 * time.Second},
		Storage:      StorageConfig{Namespace: "iskwatch", HistoryLimit: 100},
		API:          APIConfig{Enabled: true, Address: ":8089"},
		Logging:      LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing telegram token when enabled", func(c *Config) { c.Telegram = TelegramConfig{Enabled: true, ChatID: "1"} }, true},
		{"missing telegram chat when enabled", func(c *Config) { c.Telegram = TelegramConfig{Enabled: true, BotToken: "t"} }, true},
		{"interval too short", func(c *Config) { c.Monitor.CheckInterval = time.Second }, true},
		{"zero concurrency", func(c *Config) { c.Monitor.MaxConcurrency = 0 }, true},
		{"negative suppression", func(c *Config) { c.Monitor.SuppressionWindow = -time.Second }, true},
		{"zero suppression", func(c *Config) { c.Monitor.SuppressionWindow = 0 }, true},
		{"empty base url", func(c *Config) { c.ESI.BaseURL = "" }, true},
		{"zero rate", func(c *Config) { c.ESI.RequestsPerSecond = 0 }, true},
		{"bad region", func(c *Config) { c.ESI.DefaultRegionID = 0 }, true},
		{"zero history", func(c *Config) { c.Storage.HistoryLimit = 0 }, true},
		{"api without address", func(c *Config) { c.API.Address = "" }, true},
		{"api disabled without address", func(c *Config) { c.API = APIConfig{} }, false},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
