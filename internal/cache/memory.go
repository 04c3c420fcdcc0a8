package cache

import (
	"context"
	"sync"

	"github.com/sonixlabs/waveform-engine/internal/waveform"
)

// Memory is a process-local cache implementation.
type Memory struct {
	mu      sync.RWMutex
	entries map[waveform.Fingerprint]*waveform.Data
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[waveform.Fingerprint]*waveform.Data)}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, fp waveform.Fingerprint) (*waveform.Data, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[fp], nil
}

// Put implements Cache. The first write for a key wins; later writes
// for the same fingerprint carry the same content and are dropped.
func (m *Memory) Put(_ context.Context, fp waveform.Fingerprint, data *waveform.Data) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[fp]; ok {
		return nil
	}
	m.entries[fp] = data
	return nil
}

// Len returns the number of cached entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
