package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Snapshot is the cached live state of a session.
type Snapshot struct {
	Info      Info      `json:"info"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cache stores live session snapshots so other instances and dashboards can
// see them.
type Cache interface {
	Put(ctx context.Context, snap Snapshot) error
	Get(ctx context.Context, id string) (*Snapshot, error)
	Delete(ctx context.Context, id string) error
}

// NopCache keeps nothing.
type NopCache struct{}

func (NopCache) Put(context.Context, Snapshot) error { return nil }

func (NopCache) Get(context.Context, string) (*Snapshot, error) { return nil, ErrNotFound }

func (NopCache) Delete(context.Context, string) error { return nil }

// RedisCache stores snapshots as JSON strings with a TTL, so sessions that
// die with their instance age out.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// DefaultSnapshotTTL replaces a non-positive ttl; Redis treats 0 as no expiry.
const DefaultSnapshotTTL = 10 * time.Minute

// NewRedisCache wraps a connected client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func stateKey(id string) string {
	return fmt.Sprintf("rehabreps:session:%s:state", id)
}

func (r *RedisCache) Put(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	return r.client.Set(ctx, stateKey(snap.Info.ID), data, r.ttl).Err()
}

func (r *RedisCache) Get(ctx context.Context, id string) (*Snapshot, error) {
	data, err := r.client.Get(ctx, stateKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &snap, nil
}

func (r *RedisCache) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, stateKey(id)).Err()
}
