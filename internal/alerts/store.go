// Package alerts owns alert definitions and settings, and decides when an alert fires.
package alerts

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/iskwatch/internal/logger"
	"github.com/rewired-gh/iskwatch/internal/metrics"
	"github.com/rewired-gh/iskwatch/internal/models"
)

// Persistence keys.
const (
	KeyAlerts   = "alerts"
	KeySettings = "settings"
)

// ErrNotFound is returned for operations on an unknown alert id.
var ErrNotFound = errors.New("alert not found")

// Persister is the write-behind cache the store writes through to.
type Persister interface {
	Put(key string, v any)
	Load(key string, v any) bool
}

// Decision is what RecordCheck did with an evaluation.
type Decision int

const (
	// DecisionDropped means the alert was removed, or disabled before a scheduled result landed.
	DecisionDropped Decision = iota
	// DecisionRecorded means lastChecked was updated and nothing fires.
	DecisionRecorded
	// DecisionSuppressed means the condition held but the alert fired too recently.
	DecisionSuppressed
	// DecisionFire means the caller must dispatch a notification.
	DecisionFire
)

func (d Decision) String() string {
	switch d {
	case DecisionDropped:
		return "dropped"
	case DecisionRecorded:
		return "recorded"
	case DecisionSuppressed:
		return "suppressed"
	case DecisionFire:
		return "fire"
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

// StoreConfig configures a Store.
type StoreConfig struct {
	DefaultRegionID   int64
	SuppressionWindow time.Duration
	DefaultSettings   models.Settings
}

// Store is the authoritative in-memory list of alerts plus the user's settings.
// Every mutation is written through to the persister; a failed write never
// rolls back memory.
type Store struct {
	mu       sync.RWMutex
	alerts   []models.Alert
	settings models.Settings

	persist       Persister
	defaultRegion int64
	window        SuppressionWindow
	now           func() time.Time
}

// NewStore creates a store and loads any previously persisted state.
func NewStore(p Persister, cfg StoreConfig) *Store {
	if cfg.DefaultRegionID <= 0 {
		cfg.DefaultRegionID = models.DefaultRegionID
	}
	if cfg.SuppressionWindow <= 0 {
		cfg.SuppressionWindow = DefaultSuppressionWindow
	}
	if cfg.DefaultSettings == (models.Settings{}) {
		cfg.DefaultSettings = models.DefaultSettings()
	}

	s := &Store{
		persist:       p,
		defaultRegion: cfg.DefaultRegionID,
		window:        SuppressionWindow(cfg.SuppressionWindow),
		now:           time.Now,
		settings:      cfg.DefaultSettings,
	}

	var loaded []models.Alert
	if p.Load(KeyAlerts, &loaded) {
		s.alerts = loaded
		logger.Info("Loaded %d alerts", len(loaded))
	}

	var settings models.Settings
	if p.Load(KeySettings, &settings) {
		if err := settings.Validate(); err != nil {
			logger.Warn("Ignoring persisted settings: %v", err)
		} else {
			s.settings = settings
		}
	}

	s.updateGauges()
	return s
}

// Window returns the store's suppression window.
func (s *Store) Window() SuppressionWindow {
	return s.window
}

// Create adds a new enabled alert and returns its id.
func (s *Store) Create(def models.AlertDefinition) (string, error) {
	a := models.Alert{
		ID:         uuid.NewString(),
		ItemID:     def.ItemID,
		ItemName:   def.ItemName,
		RegionID:   def.RegionID,
		RegionName: def.RegionName,
		Type:       def.Type,
		Threshold:  def.Threshold,
		Enabled:    true,
		CreatedAt:  s.now().UTC(),
	}
	if a.RegionID == 0 {
		a.RegionID = s.defaultRegion
	}
	if def.Enabled != nil {
		a.Enabled = *def.Enabled
	}
	if err := a.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	s.saveLocked()
	logger.Info("Created %s alert %s for %s", a.Type, a.ID, a.DisplayName())
	return a.ID, nil
}

// Remove deletes an alert.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	s.alerts = append(s.alerts[:i], s.alerts[i+1:]...)
	s.saveLocked()
	return nil
}

// Update applies patch to an alert. The patched alert must still be valid.
func (s *Store) Update(id string, patch models.AlertPatch) (models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return models.Alert{}, ErrNotFound
	}
	updated := s.alerts[i].Clone()
	patch.Apply(&updated)
	if err := updated.Validate(); err != nil {
		return models.Alert{}, err
	}
	updated.LastError = ""
	s.alerts[i] = updated
	s.saveLocked()
	return updated.Clone(), nil
}

// Toggle flips an alert between enabled and disabled.
func (s *Store) Toggle(id string) (models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return models.Alert{}, ErrNotFound
	}
	s.alerts[i].Enabled = !s.alerts[i].Enabled
	s.saveLocked()
	return s.alerts[i].Clone(), nil
}

// Get returns a copy of one alert.
func (s *Store) Get(id string) (models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return models.Alert{}, ErrNotFound
	}
	return s.alerts[i].Clone(), nil
}

// List returns copies of all alerts in creation order.
func (s *Store) List() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Alert, len(s.alerts))
	for i, a := range s.alerts {
		out[i] = a.Clone()
	}
	return out
}

// Enabled returns copies of the alerts a scheduled cycle should check.
func (s *Store) Enabled() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Alert
	for _, a := range s.alerts {
		if a.Enabled {
			out = append(out, a.Clone())
		}
	}
	return out
}

// ClearAll removes every alert.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = nil
	s.saveLocked()
}

// RecordCheck stores the result of evaluating alert id at time at and decides,
// in the same critical section, whether a triggered result must be dispatched.
// Scheduled results for an alert disabled mid-cycle are dropped; manual checks
// are recorded regardless of the enabled flag.
func (s *Store) RecordCheck(id string, res Result, at time.Time, manual bool) (models.Alert, Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return models.Alert{}, DecisionDropped
	}
	a := &s.alerts[i]
	if !a.Enabled && !manual {
		return a.Clone(), DecisionDropped
	}

	checked := at
	a.LastChecked = &checked
	if res.Status == StatusInvalid {
		a.LastError = res.Message
	} else {
		a.LastError = ""
	}

	decision := DecisionRecorded
	if res.Triggered {
		if s.window.Suppressed(*a, at) {
			decision = DecisionSuppressed
		} else {
			triggered := at
			price := res.CurrentPrice
			a.LastTriggered = &triggered
			a.LastTriggerPrice = &price
			decision = DecisionFire
		}
	}

	s.saveLocked()
	return a.Clone(), decision
}

// Settings returns the current settings.
func (s *Store) Settings() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings applies patch and persists the result. It returns the
// previous and new settings so callers can react to interval changes.
func (s *Store) UpdateSettings(patch models.SettingsPatch) (prev, next models.Settings, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev = s.settings
	next = patch.Apply(prev)
	if err := next.Validate(); err != nil {
		return prev, prev, err
	}
	s.settings = next
	s.persist.Put(KeySettings, next)
	return prev, next, nil
}

// Counts summarises the alert list.
type Counts struct {
	Total             int `json:"total"`
	Enabled           int `json:"enabled"`
	Disabled          int `json:"disabled"`
	RecentlyTriggered int `json:"recentlyTriggered"`
}

// Counts tallies alerts, counting as recent those triggered within window of now.
func (s *Store) Counts(now time.Time, window time.Duration) Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c Counts
	c.Total = len(s.alerts)
	for _, a := range s.alerts {
		if a.Enabled {
			c.Enabled++
		} else {
			c.Disabled++
		}
		if a.LastTriggered != nil && now.Sub(*a.LastTriggered) < window {
			c.RecentlyTriggered++
		}
	}
	return c
}

func (s *Store) indexLocked(id string) int {
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			return i
		}
	}
	return -1
}

// saveLocked snapshots the list for the persister. Caller holds s.mu.
func (s *Store) saveLocked() {
	snapshot := make([]models.Alert, len(s.alerts))
	for i, a := range s.alerts {
		snapshot[i] = a.Clone()
	}
	s.persist.Put(KeyAlerts, snapshot)
	s.updateGaugesLocked()
}

func (s *Store) updateGauges() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.updateGaugesLocked()
}

func (s *Store) updateGaugesLocked() {
	enabled := 0
	for _, a := range s.alerts {
		if a.Enabled {
			enabled++
		}
	}
	metrics.AlertsConfigured.WithLabelValues("enabled").Set(float64(enabled))
	metrics.AlertsConfigured.WithLabelValues("disabled").Set(float64(len(s.alerts) - enabled))
}
