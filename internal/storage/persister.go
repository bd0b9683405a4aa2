package storage

import (
	"encoding/json"
	"sync"

	"github.com/rewired-gh/iskwatch/internal/logger"
	"github.com/rewired-gh/iskwatch/internal/metrics"
)

// Persister is a write-behind cache in front of a Store.
// Put snapshots the value synchronously and a single background writer saves
// it later. Pending writes to the same key coalesce, so an older snapshot can
// never overwrite a newer one. Save failures are logged and dropped.
type Persister struct {
	store Store

	mu      sync.Mutex
	idle    *sync.Cond
	pending map[string][]byte
	writing bool
	closed  bool

	wake chan struct{}
	done chan struct{}
}

// NewPersister starts the background writer for store.
func NewPersister(store Store) *Persister {
	p := &Persister{
		store:   store,
		pending: make(map[string][]byte),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	p.idle = sync.NewCond(&p.mu)
	go p.run()
	return p
}

// Put queues v to be saved under key.
func (p *Persister) Put(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		metrics.PersistErrors.WithLabelValues(key).Inc()
		logger.Error("Failed to serialize %s: %v", key, err)
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.save(key, data)
		return
	}
	p.pending[key] = data
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Load decodes the blob stored under key into v.
// It reports false when the key is missing or unreadable; failures are logged.
func (p *Persister) Load(key string, v any) bool {
	data, err := p.store.Load(key)
	if err != nil {
		metrics.PersistErrors.WithLabelValues(key).Inc()
		logger.Warn("Failed to load %s: %v", key, err)
		return false
	}
	if data == nil {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		metrics.PersistErrors.WithLabelValues(key).Inc()
		logger.Warn("Discarding unreadable %s: %v", key, err)
		return false
	}
	return true
}

// Flush blocks until every queued write has been attempted.
func (p *Persister) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.pending) > 0 || p.writing {
		p.idle.Wait()
	}
}

// Close flushes pending writes and stops the writer.
// Later Puts are saved synchronously.
func (p *Persister) Close() {
	p.mu.Lock()
	for len(p.pending) > 0 || p.writing {
		p.idle.Wait()
	}
	if p.closed {
		p.mu.Unlock()
		return
	}
	// Put checks closed under the same lock, so nothing can slip into
	// pending after this point.
	p.closed = true
	p.mu.Unlock()
	close(p.done)
}

func (p *Persister) run() {
	for {
		select {
		case <-p.done:
			return
		case <-p.wake:
		}

		p.mu.Lock()
		batch := p.pending
		p.pending = make(map[string][]byte)
		p.writing = true
		p.mu.Unlock()

		for key, data := range batch {
			p.save(key, data)
		}

		p.mu.Lock()
		p.writing = false
		p.idle.Broadcast()
		p.mu.Unlock()
	}
}

func (p *Persister) save(key string, data []byte) {
	if err := p.store.Save(key, data); err != nil {
		metrics.PersistErrors.WithLabelValues(key).Inc()
		logger.Warn("Failed to persist %s: %v", key, err)
	}
}
