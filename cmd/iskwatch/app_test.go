package main

import (
	"path/filepath"
	"testing"

	"github.com/rewired-gh/iskwatch/internal/config"
	"github.com/rewired-gh/iskwatch/internal/models"
	"github.com/rewired-gh/iskwatch/internal/notify"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "iskwatch.db")
	return cfg
}

func TestAppStatePersistsAcrossRestarts(t *testing.T) {
	cfg := testConfig(t)

	a, err := newApp(cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	id, err := a.store.Create(models.AlertDefinition{ItemID: 44992, ItemName: "PLEX", Type: models.AlertPriceAbove, Threshold: 5e6})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	vol := 0.25
	if _, _, err := a.store.UpdateSettings(models.SettingsPatch{SoundVolume: &vol}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	a.history.Append(models.HistoryEntry{ID: "h1", AlertID: id})
	a.Close()

	b, err := newApp(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()

	got, err := b.store.Get(id)
	if err != nil {
		t.Fatalf("alert lost across restart: %v", err)
	}
	if got.RegionID != cfg.ESI.DefaultRegionID {
		t.Errorf("region = %d, want default %d", got.RegionID, cfg.ESI.DefaultRegionID)
	}
	if b.store.Settings().SoundVolume != 0.25 {
		t.Errorf("settings lost: %+v", b.store.Settings())
	}
	if b.history.Len() != 1 {
		t.Errorf("history = %d, want 1", b.history.Len())
	}
}

func TestAppDefaultsFromConfig(t *testing.T) {
	cfg := testConfig(t)
	a, err := newApp(cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	if got := a.store.Settings().CheckIntervalMs; got != cfg.Monitor.CheckInterval.Milliseconds() {
		t.Errorf("interval = %d, want %d", got, cfg.Monitor.CheckInterval.Milliseconds())
	}
	if a.telegram != nil {
		t.Error("telegram should be off by default")
	}
	if got := a.dispatcher.Permission(t.Context()); got != notify.PermissionDenied {
		t.Errorf("permission without a platform = %s, want denied", got)
	}
}

func TestNewPlayer(t *testing.T) {
	if _, ok := newPlayer(nil).(notify.BellPlayer); !ok {
		t.Error("expected bell player without a command")
	}
	if _, ok := newPlayer([]string{"paplay", "x.oga"}).(notify.CommandPlayer); !ok {
		t.Error("expected command player")
	}
}
