package rediscache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Collage/internal/core/feed"
	"Collage/internal/metrics"
)

type countingResolver struct {
	mu    sync.Mutex
	calls int
	scope *feed.Scope
	err   error
}

func (r *countingResolver) ResolveScope(ctx context.Context, viewerID string) (*feed.Scope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.scope, nil
}

type cacheMetrics struct {
	metrics.Nop
	hits, misses int
}

func (m *cacheMetrics) RecordScopeCache(hit bool) {
	if hit {
		m.hits++
		return
	}
	m.misses++
}

func newTestCache(t *testing.T, next feed.ScopeResolver, m metrics.Recorder) (*ScopeCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewScopeCache(next, client, time.Minute, m, nil), mr
}

func TestScopeCache_ReadThrough(t *testing.T) {
	next := &countingResolver{scope: &feed.Scope{AuthorIDs: []string{"v", "a"}, RepostIDs: []string{"c1"}}}
	m := &cacheMetrics{}
	cache, mr := newTestCache(t, next, m)
	ctx := context.Background()

	first, err := cache.ResolveScope(ctx, "v")
	require.NoError(t, err)
	second, err := cache.ResolveScope(ctx, "v")
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, m.hits)
	assert.Equal(t, 1, m.misses)
	assert.True(t, mr.Exists(keyPrefix+"v"))
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"v"))
}

func TestScopeCache_Expiry(t *testing.T) {
	next := &countingResolver{scope: &feed.Scope{AuthorIDs: []string{"v"}}}
	cache, mr := newTestCache(t, next, nil)
	ctx := context.Background()

	_, err := cache.ResolveScope(ctx, "v")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = cache.ResolveScope(ctx, "v")
	require.NoError(t, err)

	assert.Equal(t, 2, next.calls)
}

func TestScopeCache_Invalidate(t *testing.T) {
	next := &countingResolver{scope: &feed.Scope{AuthorIDs: []string{"v"}}}
	cache, mr := newTestCache(t, next, nil)
	ctx := context.Background()

	for _, id := range []string{"v", "w"} {
		_, err := cache.ResolveScope(ctx, id)
		require.NoError(t, err)
	}

	require.NoError(t, cache.Invalidate(ctx, "v", "w", "never-cached"))
	assert.False(t, mr.Exists(keyPrefix+"v"))
	assert.False(t, mr.Exists(keyPrefix+"w"))
	assert.NoError(t, cache.Invalidate(ctx))
}

func TestScopeCache_RedisDownFallsThrough(t *testing.T) {
	next := &countingResolver{scope: &feed.Scope{AuthorIDs: []string{"v"}}}
	cache, mr := newTestCache(t, next, nil)
	mr.Close()

	scope, err := cache.ResolveScope(context.Background(), "v")
	require.NoError(t, err)
	assert.Equal(t, []string{"v"}, scope.AuthorIDs)

	assert.Error(t, cache.Invalidate(context.Background(), "v"))
}

func TestScopeCache_DoesNotCacheErrors(t *testing.T) {
	next := &countingResolver{err: feed.ErrViewerNotFound}
	cache, mr := newTestCache(t, next, nil)
	ctx := context.Background()

	_, err := cache.ResolveScope(ctx, "ghost")
	assert.True(t, errors.Is(err, feed.ErrViewerNotFound))
	assert.False(t, mr.Exists(keyPrefix+"ghost"))

	_, err = cache.ResolveScope(ctx, "")
	assert.ErrorIs(t, err, feed.ErrAuthenticationRequired)
}

func TestScopeCache_CorruptEntry(t *testing.T) {
	next := &countingResolver{scope: &feed.Scope{AuthorIDs: []string{"v"}}}
	cache, mr := newTestCache(t, next, nil)
	require.NoError(t, mr.Set(keyPrefix+"v", "{not json"))

	scope, err := cache.ResolveScope(context.Background(), "v")
	require.NoError(t, err)
	assert.Equal(t, []string{"v"}, scope.AuthorIDs)
	assert.Equal(t, 1, next.calls)
}
