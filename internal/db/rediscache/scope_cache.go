// Package rediscache caches resolved feed scopes in Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"Collage/internal/core/feed"
	"Collage/internal/metrics"
)

const keyPrefix = "feed:scope:"

// ScopeCache decorates a feed.ScopeResolver with a Redis read-through cache.
// Redis failures degrade to the underlying resolver; they never fail a request.
type ScopeCache struct {
	next    feed.ScopeResolver
	client  redis.UniversalClient
	metrics metrics.Recorder
	logger  *slog.Logger
	ttl     time.Duration
}

// NewScopeCache wraps next with a cache whose entries live for ttl
func NewScopeCache(next feed.ScopeResolver, client redis.UniversalClient, ttl time.Duration, m metrics.Recorder, logger *slog.Logger) *ScopeCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if m == nil {
		m = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScopeCache{
		next:    next,
		client:  client,
		ttl:     ttl,
		metrics: m,
		logger:  logger,
	}
}

// ResolveScope returns the cached scope for viewerID or resolves and stores it
func (c *ScopeCache) ResolveScope(ctx context.Context, viewerID string) (*feed.Scope, error) {
	if viewerID == "" {
		return nil, feed.ErrAuthenticationRequired
	}

	key := keyPrefix + viewerID
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var scope feed.Scope
		if uErr := json.Unmarshal(data, &scope); uErr == nil {
			c.metrics.RecordScopeCache(true)
			return &scope, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cached scope", "viewer", viewerID)
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "scope cache read failed", "viewer", viewerID, "error", err)
	}
	c.metrics.RecordScopeCache(false)

	scope, err := c.next.ResolveScope(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	if payload, mErr := json.Marshal(scope); mErr == nil {
		if sErr := c.client.Set(ctx, key, payload, c.ttl).Err(); sErr != nil {
			c.logger.WarnContext(ctx, "scope cache write failed", "viewer", viewerID, "error", sErr)
		}
	}

	return scope, nil
}

// Invalidate drops the cached scopes of viewerIDs
func (c *ScopeCache) Invalidate(ctx context.Context, viewerIDs ...string) error {
	if len(viewerIDs) == 0 {
		return nil
	}

	keys := make([]string, len(viewerIDs))
	for i, id := range viewerIDs {
		keys[i] = keyPrefix + id
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate %d scopes: %w", len(keys), err)
	}
	return nil
}

// NewClient parses a redis:// URL and verifies the server is reachable
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
