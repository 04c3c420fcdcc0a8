package mocks

import (
	"context"
	"sync"

	"github.com/sonixlabs/waveform-engine/internal/waveform"
)

// Cache is a fake cache.Cache recording calls, optionally overridden
// with GetFn/PutFn.
type Cache struct {
	GetFn func(ctx context.Context, fp waveform.Fingerprint) (*waveform.Data, error)
	PutFn func(ctx context.Context, fp waveform.Fingerprint, data *waveform.Data) error

	mu      sync.Mutex
	entries map[waveform.Fingerprint]*waveform.Data
	gets    int
	puts    int
}

func (c *Cache) Get(ctx context.Context, fp waveform.Fingerprint) (*waveform.Data, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	if c.GetFn != nil {
		return c.GetFn(ctx, fp)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[fp], nil
}

func (c *Cache) Put(ctx context.Context, fp waveform.Fingerprint, data *waveform.Data) error {
	c.mu.Lock()
	c.puts++
	c.mu.Unlock()
	if c.PutFn != nil {
		return c.PutFn(ctx, fp, data)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[waveform.Fingerprint]*waveform.Data)
	}
	c.entries[fp] = data
	return nil
}

// Gets returns how many lookups were made.
func (c *Cache) Gets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets
}

// Puts returns how many writes were made.
func (c *Cache) Puts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.puts
}
