package processflow

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionPrefix = "processflow:version"
	snapshotKeyPrefix  = "processflow:snapshot"
	// InvalidationChannel carries "<companyID>:<version>" payloads.
	InvalidationChannel = "processflow.bump"
)

// Cache keeps company snapshots in Redis under versioned keys.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func versionKey(companyID int64) string {
	return cacheVersionPrefix + ":" + strconv.FormatInt(companyID, 10)
}

// Version returns the snapshot version of a company, initialising when missing.
func (c *Cache) Version(ctx context.Context, companyID int64) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := versionKey(companyID)
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) || (err == nil && ver <= 0) {
		if err := c.client.Set(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// SnapshotKey composes the snapshot key for the current version and returns
// the version it was built from.
func (c *Cache) SnapshotKey(ctx context.Context, companyID int64) (string, int64, error) {
	ver, err := c.Version(ctx, companyID)
	if err != nil {
		return "", 0, err
	}
	return strings.Join([]string{
		snapshotKeyPrefix,
		strconv.FormatInt(companyID, 10),
		strconv.FormatInt(ver, 10),
	}, ":"), ver, nil
}

// FetchSnapshot returns the cached snapshot of a company or populates the
// cache using loader. The boolean reports a cache hit.
func (c *Cache) FetchSnapshot(ctx context.Context, companyID int64, loader func(context.Context) (*Snapshot, error)) (*Snapshot, bool, error) {
	if loader == nil {
		return nil, false, errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		snap, err := loader(ctx)
		return snap, false, err
	}
	key, ver, err := c.SnapshotKey(ctx, companyID)
	if err != nil {
		return nil, false, err
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var snap Snapshot
		if err := json.Unmarshal(payload, &snap); err == nil {
			return &snap, true, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, false, err
	}

	snap, err := loader(ctx)
	if err != nil {
		return nil, false, err
	}
	snap.Version = ver
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, false, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return nil, false, err
	}
	return snap, false, nil
}

// Bump invalidates the cached snapshot of a company and publishes the new version.
func (c *Cache) Bump(ctx context.Context, companyID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, versionKey(companyID)).Result()
	if err != nil {
		return err
	}
	payload := strconv.FormatInt(companyID, 10) + ":" + strconv.FormatInt(ver, 10)
	return c.client.Publish(ctx, InvalidationChannel, payload).Err()
}

// ListenForInvalidation subscribes to version bump notifications published by
// other instances until ctx is cancelled.
func (c *Cache) ListenForInvalidation(ctx context.Context, channel string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if channel == "" {
		channel = InvalidationChannel
	}
	pubsub := c.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				c.applyBump(ctx, msg.Payload)
			}
		}
	}()
	return nil
}

// applyBump raises the local version to the published one. Older or
// malformed payloads fall back to an increment.
func (c *Cache) applyBump(ctx context.Context, payload string) {
	company, version, ok := strings.Cut(payload, ":")
	companyID, err := strconv.ParseInt(company, 10, 64)
	if !ok || err != nil {
		return
	}
	key := versionKey(companyID)
	if ver, err := strconv.ParseInt(version, 10, 64); err == nil {
		current, _ := c.client.Get(ctx, key).Int64()
		if ver > current {
			_ = c.client.Set(ctx, key, ver, 0).Err()
		}
		return
	}
	_ = c.client.Incr(ctx, key).Err()
}
