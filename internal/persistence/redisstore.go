// Package persistence implements the engine-level persisted state of
// spec.md §6.3: a Redis-backed blob store for the JSON round-trip
// snapshot, and a Postgres append-only log of every FSM transition.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smilemakc/noteflow/internal/config"
)

// BlobStore round-trips the §6.3 persisted-state blob through Redis,
// keyed by run ID. Adapted from the teacher's RedisCache
// (internal/infrastructure/cache/redis.go): same connect/ping/close
// shape, generalized from a generic cache client to a single-purpose
// save/load pair.
type BlobStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewBlobStore connects to Redis per cfg and verifies the connection with
// a Ping, exactly as the teacher's NewRedisCache does.
func NewBlobStore(cfg config.RedisConfig, keyPrefix string) (*BlobStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB
	opts.PoolSize = cfg.PoolSize

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &BlobStore{client: client, prefix: keyPrefix, ttl: cfg.BlobTTL}, nil
}

// Client exposes the underlying go-redis client, matching the teacher's
// RedisCache.Client accessor.
func (b *BlobStore) Client() *redis.Client {
	return b.client
}

// Close closes the Redis connection.
func (b *BlobStore) Close() error {
	return b.client.Close()
}

func (b *BlobStore) key(runID string) string {
	return b.prefix + runID
}

// Save stores the serialized persisted-state blob under runID, refreshing
// the configured TTL on every call (spec §6.3: "serialize at any
// transition boundary").
func (b *BlobStore) Save(ctx context.Context, runID string, blob []byte) error {
	if err := b.client.Set(ctx, b.key(runID), blob, b.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save persisted state for run %q: %w", runID, err)
	}
	return nil
}

// Load retrieves the most recently saved blob for runID. The second
// return value is false if no blob has ever been saved (or it expired),
// which is not itself an error.
func (b *BlobStore) Load(ctx context.Context, runID string) ([]byte, bool, error) {
	val, err := b.client.Get(ctx, b.key(runID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load persisted state for run %q: %w", runID, err)
	}
	return val, true, nil
}

// Delete removes a run's persisted blob, e.g. after the workflow reaches
// a terminal state and its checkpoint is no longer useful.
func (b *BlobStore) Delete(ctx context.Context, runID string) error {
	if err := b.client.Del(ctx, b.key(runID)).Err(); err != nil {
		return fmt.Errorf("failed to delete persisted state for run %q: %w", runID, err)
	}
	return nil
}
