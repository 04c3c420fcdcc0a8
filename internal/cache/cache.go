package cache

import (
	"context"

	"github.com/sonixlabs/waveform-engine/internal/waveform"
)

// Cache is the collaborator interface workers consult before decoding.
// A miss returns (nil, nil); cache errors are reported but never fail
// the task, processing simply proceeds without the cache.
type Cache interface {
	// Get returns the cached result for the fingerprint, or nil on miss.
	Get(ctx context.Context, fp waveform.Fingerprint) (*waveform.Data, error)

	// Put stores a result under the fingerprint. If another writer
	// already stored a result for the same key, the existing entry wins.
	Put(ctx context.Context, fp waveform.Fingerprint, data *waveform.Data) error
}
