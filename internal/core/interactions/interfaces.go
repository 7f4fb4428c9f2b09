package interactions

import "context"

// Repository applies interaction events to the relationship store.
// Every Set method is idempotent and reports whether anything changed.
type Repository interface {
	SetFollow(ctx context.Context, followerID, followeeID string, active bool) (bool, error)
	SetRepost(ctx context.Context, userID, collageID string, active bool) (bool, error)
	SetLike(ctx context.Context, userID, collageID string, active bool) (bool, error)
	SetSave(ctx context.Context, userID, collageID string, active bool) (bool, error)

	// SetArchived returns ErrNotAuthor if authorID does not own the collage
	SetArchived(ctx context.Context, authorID, collageID string, archived bool) (bool, error)

	// GetFollowers returns the IDs of users following userID
	GetFollowers(ctx context.Context, userID string) ([]string, error)
}

// ScopeInvalidator drops cached feed scopes
type ScopeInvalidator interface {
	Invalidate(ctx context.Context, viewerIDs ...string) error
}

// Service applies interaction events
type Service interface {
	Apply(ctx context.Context, event *Event) error
}
