package history

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rewired-gh/iskwatch/internal/models"
)

type memPersister struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemPersister() *memPersister {
	return &memPersister{data: make(map[string][]byte)}
}

func (m *memPersister) Put(key string, v any) {
	b, _ := json.Marshal(v)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = b
}

func (m *memPersister) Load(key string, v any) bool {
	m.mu.Lock()
	b, ok := m.data[key]
	m.mu.Unlock()
	return ok && json.Unmarshal(b, v) == nil
}

func entry(i int) models.HistoryEntry {
	return models.HistoryEntry{
		ID:          fmt.Sprintf("h%d", i),
		AlertID:     fmt.Sprintf("a%d", i%3),
		ItemID:      34,
		TriggeredAt: time.Unix(int64(i), 0),
	}
}

func TestLogCapDropsOldest(t *testing.T) {
	l := NewLog(newMemPersister(), 100)
	for i := 1; i <= 101; i++ {
		l.Append(entry(i))
	}
	got := l.List()
	if len(got) != 100 {
		t.Fatalf("expected 100 entries, got %d", len(got))
	}
	if got[0].ID != "h101" {
		t.Errorf("newest entry should be first, got %s", got[0].ID)
	}
	if got[99].ID != "h2" {
		t.Errorf("oldest entry h1 should have been dropped, last is %s", got[99].ID)
	}
}

func TestLogPersistsAndReloads(t *testing.T) {
	p := newMemPersister()
	l := NewLog(p, 10)
	l.Append(entry(1))
	l.Append(entry(2))

	reloaded := NewLog(p, 1)
	if reloaded.Len() != 1 || reloaded.List()[0].ID != "h2" {
		t.Errorf("reload should keep the newest entries within the limit: %+v", reloaded.List())
	}
}

func TestLogClear(t *testing.T) {
	p := newMemPersister()
	l := NewLog(p, 10)
	l.Append(entry(1))
	l.Clear()
	if l.Len() != 0 {
		t.Error("expected empty log")
	}
	if NewLog(p, 10).Len() != 0 {
		t.Error("clear was not persisted")
	}
}

func TestTriggeredDismissLeavesHistory(t *testing.T) {
	p := newMemPersister()
	l := NewLog(p, 10)
	tr := NewTriggered(p)
	for i := 0; i < 6; i++ {
		e := entry(i)
		l.Append(e)
		tr.Add(e.Triggered())
	}

	if !tr.Dismiss("h4") {
		t.Error("expected h4 to be dismissed")
	}
	if tr.Dismiss("h4") {
		t.Error("second dismiss of h4 should report false")
	}
	if n := tr.DismissAlert("a0"); n != 2 {
		t.Errorf("DismissAlert(a0) removed %d, want 2", n)
	}
	if tr.Len() != 3 {
		t.Errorf("expected 3 pending, got %d", tr.Len())
	}
	if l.Len() != 6 {
		t.Errorf("dismissal must not touch history, got %d entries", l.Len())
	}

	tr.DismissAll()
	if tr.Len() != 0 {
		t.Error("expected no pending triggers")
	}
	if NewTriggered(p).Len() != 0 {
		t.Error("dismiss all was not persisted")
	}
	if l.Len() != 6 {
		t.Error("dismiss all must not touch history")
	}
}

func TestTriggeredNewestFirst(t *testing.T) {
	tr := NewTriggered(newMemPersister())
	tr.Add(entry(1).Triggered())
	tr.Add(entry(2).Triggered())
	if got := tr.List(); got[0].ID != "h2" {
		t.Errorf("expected newest first, got %s", got[0].ID)
	}
}
