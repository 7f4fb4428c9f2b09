package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"Collage/internal/core/users"
	"Collage/internal/core/viewed"
)

// viewerForeignKey is the constraint on viewed_collages.viewer_id (migration 005)
const viewerForeignKey = "viewed_collages_viewer_id_fkey"

type postgresViewedRepo struct {
	db *sql.DB
}

// NewViewedRepository creates a new PostgreSQL viewed-set repository
func NewViewedRepository(db *sql.DB) viewed.Repository {
	return &postgresViewedRepo{db: db}
}

// Add unions ids into the viewer's viewed set with one INSERT.
// viewed_at is stamped with the database clock, the same clock the feed
// repository reads traversal snapshots from. IDs of collages that no longer
// exist are skipped, and existing rows keep their original viewed_at.
func (r *postgresViewedRepo) Add(ctx context.Context, viewerID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if err := validateUserIDs([]string{viewerID}); err != nil {
		return 0, err
	}

	query := `
		INSERT INTO viewed_collages (viewer_id, collage_id, viewed_at)
		SELECT $1::uuid, c.id, NOW()
		FROM collages c
		WHERE c.id = ANY($2::uuid[])
		ON CONFLICT (viewer_id, collage_id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, viewerID, pq.Array(ids))
	if err != nil {
		if isForeignKeyViolation(err, viewerForeignKey) {
			return 0, fmt.Errorf("viewer %s: %w", viewerID, users.ErrUserNotFound)
		}
		return 0, fmt.Errorf("failed to insert viewed collages: %w", err)
	}

	added, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return int(added), nil
}

// isForeignKeyViolation reports whether err is a 23503 on constraint
func isForeignKeyViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23503" && pqErr.Constraint == constraint
}
