package main

import (
	"fmt"
	"os"

	"github.com/rewired-gh/iskwatch/internal/alerts"
	"github.com/rewired-gh/iskwatch/internal/config"
	"github.com/rewired-gh/iskwatch/internal/esi"
	"github.com/rewired-gh/iskwatch/internal/history"
	"github.com/rewired-gh/iskwatch/internal/logger"
	"github.com/rewired-gh/iskwatch/internal/metrics"
	"github.com/rewired-gh/iskwatch/internal/models"
	"github.com/rewired-gh/iskwatch/internal/monitor"
	"github.com/rewired-gh/iskwatch/internal/notify"
	"github.com/rewired-gh/iskwatch/internal/storage"
	"github.com/rewired-gh/iskwatch/internal/telegram"
)

// app is the wired engine shared by every subcommand.
type app struct {
	cfg        *config.Config
	db         *storage.Storage
	persister  *storage.Persister
	store      *alerts.Store
	history    *history.Log
	triggered  *history.Triggered
	dispatcher *notify.Dispatcher
	telegram   *telegram.Client
	monitor    *monitor.Monitor
}

// loadConfig reads and validates configuration, then initializes logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if configPath != "" {
		logger.Info("Configuration loaded from %s", configPath)
	}
	metrics.SetBuildInfo(version, commit)
	return cfg, nil
}

func newApp(cfg *config.Config) (*app, error) {
	db, err := storage.New(cfg.Storage.DBPath, cfg.Storage.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	persister := storage.NewPersister(db)

	defaults := models.DefaultSettings()
	defaults.CheckIntervalMs = cfg.Monitor.CheckInterval.Milliseconds()
	store := alerts.NewStore(persister, alerts.StoreConfig{
		DefaultRegionID:   cfg.ESI.DefaultRegionID,
		SuppressionWindow: cfg.Monitor.SuppressionWindow,
		DefaultSettings:   defaults,
	})
	historyLog := history.NewLog(persister, cfg.Storage.HistoryLimit)
	triggered := history.NewTriggered(persister)

	a := &app{
		cfg:       cfg,
		db:        db,
		persister: persister,
		store:     store,
		history:   historyLog,
		triggered: triggered,
	}

	dispatcherCfg := notify.DispatcherConfig{
		Player:      newPlayer(cfg.Notification.SoundCommand),
		History:     historyLog,
		Triggered:   triggered,
		AutoDismiss: cfg.Notification.AutoDismiss,
	}
	if cfg.Telegram.Enabled {
		tg, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		a.telegram = tg
		dispatcherCfg.Platform = tg
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}
	a.dispatcher = notify.NewDispatcher(dispatcherCfg)

	provider := esi.NewClient(esi.Options{
		BaseURL:           cfg.ESI.BaseURL,
		Datasource:        cfg.ESI.Datasource,
		UserAgent:         cfg.ESI.UserAgent,
		Timeout:           cfg.ESI.Timeout,
		MaxRetries:        cfg.ESI.MaxRetries,
		RetryDelayBase:    cfg.ESI.RetryDelayBase,
		RequestsPerSecond: cfg.ESI.RequestsPerSecond,
		Burst:             cfg.ESI.Burst,
	})

	a.monitor = monitor.New(monitor.Deps{
		Store:     store,
		Provider:  provider,
		Notifier:  a.dispatcher,
		History:   historyLog,
		Triggered: triggered,
	}, monitor.Config{
		MaxConcurrency: cfg.Monitor.MaxConcurrency,
		CheckTimeout:   cfg.Monitor.CheckTimeout,
		RecentWindow:   cfg.Monitor.RecentWindow,
	})
	return a, nil
}

func newPlayer(argv []string) notify.Player {
	if len(argv) > 0 {
		return notify.CommandPlayer{Argv: argv}
	}
	return notify.BellPlayer{W: os.Stderr}
}

// Close stops the monitor, flushes pending writes and closes the database.
func (a *app) Close() {
	if a.monitor != nil {
		a.monitor.Stop()
	}
	a.persister.Close()
	if err := a.db.Close(); err != nil {
		logger.Error("Failed to close storage: %v", err)
	}
}
