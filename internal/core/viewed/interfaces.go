package viewed

import "context"

// Repository persists each viewer's viewed-collage set
type Repository interface {
	// Add unions ids into the viewer's viewed set in one atomic statement,
	// stamping new entries with the store's own clock. Entries that already
	// exist keep their original view time, so a collage moves from unseen to
	// seen exactly once. Returns the number of new entries, or
	// users.ErrUserNotFound when the viewer has no account.
	Add(ctx context.Context, viewerID string, ids []string) (int, error)
}

// Service defines the viewed-set business logic
type Service interface {
	// MarkViewed is an idempotent set-union of ids into the viewer's viewed set.
	// Safe to retry and safe to run concurrently for the same viewer.
	MarkViewed(ctx context.Context, viewerID string, ids []string) error
}
