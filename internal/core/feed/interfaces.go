package feed

import (
	"context"
	"time"
)

// ScopeRepository reads the relationship data behind a viewer's scope
type ScopeRepository interface {
	// GetFollowing returns the IDs of users viewerID follows
	GetFollowing(ctx context.Context, viewerID string) ([]string, error)

	// GetRepostedBy returns the IDs of collages reposted by any of userIDs.
	// Must be a single batched query, never one query per user.
	GetRepostedBy(ctx context.Context, userIDs []string) ([]string, error)
}

// ScopeResolver computes the eligible author and repost sets for a viewer
type ScopeResolver interface {
	ResolveScope(ctx context.Context, viewerID string) (*Scope, error)
}

// PageSource runs phase queries against the content store
type PageSource interface {
	// ListPhase returns up to q.Limit eligible, non-archived collages of
	// q.Phase after q.After, ordered by created_at DESC, id DESC.
	ListPhase(ctx context.Context, q PhaseQuery) ([]Entry, error)
}

// StoreClock is implemented by page sources that can read the content
// store's clock. Traversal snapshots are compared with view times the store
// stamps itself, so both must come from the same clock.
type StoreClock interface {
	Now(ctx context.Context) (time.Time, error)
}

// ViewRecorder queues viewed collages without blocking the caller
type ViewRecorder interface {
	Record(ctx context.Context, viewerID string, ids []string) bool
}

// Service is the external-facing main feed API
type Service interface {
	// GetFeedIDs returns one page of collage IDs for the viewer
	GetFeedIDs(ctx context.Context, req GetFeedRequest) (*FeedIDsResponse, error)

	// GetFeed returns one page of hydrated collages for the viewer
	GetFeed(ctx context.Context, req GetFeedRequest) (*FeedResponse, error)

	// MarkViewed unions ids into the viewer's viewed set (idempotent)
	MarkViewed(ctx context.Context, viewerID string, ids []string) error

	// MarkViewedAndGet records a direct open of one collage and returns it
	// hydrated with the viewer's interaction flags
	MarkViewedAndGet(ctx context.Context, viewerID, collageID string) (*CollageDetail, error)
}
