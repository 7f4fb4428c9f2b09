package collages

import "context"

// Repository defines read access to collages and per-viewer interaction sets.
// Writes happen in the authoring and interaction services.
type Repository interface {
	// GetByIDs loads collages in one batch query keyed by ID.
	// Missing IDs are absent from the map; archived collages are included
	// so callers can decide how to treat them.
	GetByIDs(ctx context.Context, ids []string) (map[string]*Collage, error)

	// GetViewerStates computes like/repost/save membership of viewerID for
	// every ID in one query. IDs without any interaction map to the zero value.
	GetViewerStates(ctx context.Context, viewerID string, ids []string) (map[string]ViewerState, error)
}
