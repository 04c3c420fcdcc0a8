package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sonixlabs/waveform-engine/internal/waveform"
)

// Redis is a cache implementation backed by a Redis instance, for
// hosts that share waveform results across several engine processes.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed cache. A zero ttl stores entries
// without expiry.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func redisKey(fp waveform.Fingerprint) string {
	return "sonix:waveform:" + string(fp)
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, fp waveform.Fingerprint) (*waveform.Data, error) {
	raw, err := r.client.Get(ctx, redisKey(fp)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var data waveform.Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("cache get: decoding entry: %w", err)
	}
	return &data, nil
}

// Put implements Cache. SetNX keeps the first completed write for a
// key, which resolves concurrent writers without coordination.
func (r *Redis) Put(ctx context.Context, fp waveform.Fingerprint, data *waveform.Data) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("cache put: encoding entry: %w", err)
	}
	if err := r.client.SetNX(ctx, redisKey(fp), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}
