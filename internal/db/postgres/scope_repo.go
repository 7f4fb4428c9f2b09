package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"Collage/internal/core/feed"
)

type postgresScopeRepo struct {
	db *sql.DB
}

// NewScopeRepository creates a new PostgreSQL scope repository
func NewScopeRepository(db *sql.DB) feed.ScopeRepository {
	return &postgresScopeRepo{db: db}
}

// GetFollowing returns the IDs of users viewerID follows
func (r *postgresScopeRepo) GetFollowing(ctx context.Context, viewerID string) ([]string, error) {
	if err := validateUserIDs([]string{viewerID}); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT followee_id::text FROM follows WHERE follower_id = $1`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query following: %w", err)
	}
	defer closeRows(rows)

	return scanIDs(rows)
}

// GetRepostedBy returns every collage reposted by any of userIDs.
// One query regardless of how many users are passed.
func (r *postgresScopeRepo) GetRepostedBy(ctx context.Context, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	if err := validateUserIDs(userIDs); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT collage_id::text FROM reposts WHERE user_id = ANY($1::uuid[])`,
		pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query reposts: %w", err)
	}
	defer closeRows(rows)

	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ID rows: %w", err)
	}
	return ids, nil
}
