// Package cache keeps actor role snapshots in Redis so that authorization
// does not hit the database on every request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/workspace-api/internal/authz"
)

// MembershipCache stores one JSON encoded authz.Actor per user. A nil cache
// or a zero TTL turns every call into a miss.
type MembershipCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewMembershipCache wraps an existing client.
func NewMembershipCache(client *redis.Client, ttl time.Duration) *MembershipCache {
	return &MembershipCache{client: client, ttl: ttl, prefix: "actor:"}
}

// Connect parses redisURL, pings the server and returns a cache on it.
func Connect(ctx context.Context, redisURL string, ttl time.Duration) (*MembershipCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewMembershipCache(client, ttl), nil
}

func (c *MembershipCache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Key is the Redis key holding userID's snapshot.
func (c *MembershipCache) Key(userID uint64) string {
	return c.prefix + strconv.FormatUint(userID, 10)
}

// Get returns the cached snapshot. A miss is (nil, false, nil).
func (c *MembershipCache) Get(ctx context.Context, userID uint64) (*authz.Actor, bool, error) {
	if !c.enabled() {
		return nil, false, nil
	}

	raw, err := c.client.Get(ctx, c.Key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup actor: %w", err)
	}

	var actor authz.Actor
	if err := json.Unmarshal(raw, &actor); err != nil {
		return nil, false, fmt.Errorf("unmarshal actor: %w", err)
	}
	return &actor, true, nil
}

// Set stores the snapshot for the configured TTL.
func (c *MembershipCache) Set(ctx context.Context, actor *authz.Actor) error {
	if !c.enabled() || actor == nil {
		return nil
	}

	data, err := json.Marshal(actor)
	if err != nil {
		return fmt.Errorf("marshal actor: %w", err)
	}
	if err := c.client.Set(ctx, c.Key(actor.UserID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("save actor: %w", err)
	}
	return nil
}

// Invalidate drops the snapshots of the given users.
func (c *MembershipCache) Invalidate(ctx context.Context, userIDs ...uint64) error {
	if !c.enabled() || len(userIDs) == 0 {
		return nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = c.Key(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate actors: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (c *MembershipCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
