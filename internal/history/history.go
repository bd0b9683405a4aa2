// Package history keeps the bounded trigger log and the list of triggers
// still waiting for acknowledgment.
package history

import (
	"sync"

	"github.com/rewired-gh/iskwatch/internal/metrics"
	"github.com/rewired-gh/iskwatch/internal/models"
)

// Persistence keys.
const (
	KeyHistory   = "history"
	KeyTriggered = "triggered"
)

// DefaultLimit is the number of history entries retained.
const DefaultLimit = 100

// Persister is the write-behind cache history writes through to.
type Persister interface {
	Put(key string, v any)
	Load(key string, v any) bool
}

// Log is the permanent, bounded record of dispatched triggers, newest first.
type Log struct {
	mu      sync.RWMutex
	entries []models.HistoryEntry
	limit   int
	persist Persister
}

// NewLog creates a log holding at most limit entries and loads persisted history.
func NewLog(p Persister, limit int) *Log {
	if limit < 1 {
		limit = DefaultLimit
	}
	l := &Log{limit: limit, persist: p}
	var loaded []models.HistoryEntry
	if p.Load(KeyHistory, &loaded) {
		if len(loaded) > limit {
			loaded = loaded[:limit]
		}
		l.entries = loaded
	}
	return l
}

// Append records entry, dropping the oldest entries beyond the limit.
func (l *Log) Append(entry models.HistoryEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]models.HistoryEntry{entry}, l.entries...)
	if len(l.entries) > l.limit {
		l.entries = l.entries[:l.limit]
	}
	l.saveLocked()
}

// List returns the entries, newest first.
func (l *Log) List() []models.HistoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.HistoryEntry(nil), l.entries...)
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear empties the log.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.saveLocked()
}

func (l *Log) saveLocked() {
	l.persist.Put(KeyHistory, append([]models.HistoryEntry{}, l.entries...))
}

// Triggered is the dismissible acknowledgment list, newest first.
// Dismissing never touches the Log.
type Triggered struct {
	mu      sync.RWMutex
	items   []models.TriggeredAlert
	persist Persister
}

// NewTriggered creates the list and loads persisted entries.
func NewTriggered(p Persister) *Triggered {
	t := &Triggered{persist: p}
	var loaded []models.TriggeredAlert
	if p.Load(KeyTriggered, &loaded) {
		t.items = loaded
	}
	metrics.PendingTriggered.Set(float64(len(t.items)))
	return t
}

// Add records a trigger awaiting acknowledgment.
func (t *Triggered) Add(item models.TriggeredAlert) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append([]models.TriggeredAlert{item}, t.items...)
	t.saveLocked()
}

// List returns the pending triggers, newest first.
func (t *Triggered) List() []models.TriggeredAlert {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]models.TriggeredAlert(nil), t.items...)
}

// Len returns the number of pending triggers.
func (t *Triggered) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Dismiss removes one trigger by id and reports whether it existed.
func (t *Triggered) Dismiss(id string) bool {
	return t.removeWhere(func(item models.TriggeredAlert) bool { return item.ID == id }) > 0
}

// DismissAlert removes every pending trigger for alertID and returns how many were removed.
func (t *Triggered) DismissAlert(alertID string) int {
	return t.removeWhere(func(item models.TriggeredAlert) bool { return item.AlertID == alertID })
}

// DismissAll clears the list.
func (t *Triggered) DismissAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = nil
	t.saveLocked()
}

func (t *Triggered) removeWhere(match func(models.TriggeredAlert) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.items[:0]
	removed := 0
	for _, item := range t.items {
		if match(item) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	if removed == 0 {
		return 0
	}
	t.items = kept
	t.saveLocked()
	return removed
}

func (t *Triggered) saveLocked() {
	t.persist.Put(KeyTriggered, append([]models.TriggeredAlert{}, t.items...))
	metrics.PendingTriggered.Set(float64(len(t.items)))
}
