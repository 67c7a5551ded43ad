// Package cache provides an optional Redis-backed record cache so
// repeat exports can serve already-fetched records without touching the
// batch endpoint again.
//
// Records are keyed by their identifier. A chunk is only served from
// cache when every identifier in it is present; otherwise the whole
// chunk is refetched, which keeps the fetcher's chunk-order append
// invariant intact.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates at least one requested identifier was not cached.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a cached record could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

const keyPrefix = "recset:record:"

// Manager handles record caching with a Redis backend.
type Manager struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewManager creates a record cache manager. Entries expire after ttl;
// a non-positive ttl caches for 24h.
func NewManager(redisClient *redis.Client, ttl time.Duration) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{redis: redisClient, ttl: ttl}
}

// Get retrieves one cached record by identifier.
func (m *Manager) Get(ctx context.Context, id string) (map[string]any, error) {
	data, err := m.redis.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			recordCacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		recordCacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		recordCacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	recordCacheHits.Inc()
	return record, nil
}

// GetChunk retrieves the records for a chunk of identifiers, in the
// given order. Returns ErrCacheMiss unless every identifier is cached.
func (m *Manager) GetChunk(ctx context.Context, ids []string) ([]map[string]any, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyPrefix + id
	}

	values, err := m.redis.MGet(ctx, keys...).Result()
	if err != nil {
		recordCacheErrors.WithLabelValues("mget").Inc()
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	records := make([]map[string]any, 0, len(ids))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			recordCacheMisses.Inc()
			return nil, ErrCacheMiss
		}

		var record map[string]any
		if err := json.Unmarshal([]byte(s), &record); err != nil {
			recordCacheErrors.WithLabelValues("mget").Inc()
			return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
		}
		records = append(records, record)
	}

	recordCacheHits.Add(float64(len(records)))
	return records, nil
}

// PutChunk stores fetched records, keyed by their "id" field. Records
// without a string id are skipped; they cannot be looked up later.
func (m *Manager) PutChunk(ctx context.Context, records []map[string]any) error {
	if len(records) == 0 {
		return nil
	}

	pipe := m.redis.Pipeline()
	stored := 0
	for _, record := range records {
		id, ok := record["id"].(string)
		if !ok || id == "" {
			continue
		}

		data, err := json.Marshal(record)
		if err != nil {
			recordCacheErrors.WithLabelValues("set").Inc()
			return fmt.Errorf("marshal record %s: %w", id, err)
		}

		pipe.Set(ctx, keyPrefix+id, data, m.ttl)
		stored++
	}

	if stored == 0 {
		return nil
	}

	if _, err := pipe.Exec(ctx); err != nil {
		recordCacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis pipeline set: %w", err)
	}

	recordCacheStored.Add(float64(stored))
	return nil
}

// Delete removes one cached record.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.redis.Del(ctx, keyPrefix+id).Err(); err != nil {
		recordCacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
