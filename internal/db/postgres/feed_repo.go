package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"Collage/internal/core/feed"
)

// postgresFeedRepo runs the phase queries behind the main feed paginator.
//
// DATABASE INDEXES REQUIRED (migrations 003 and 005):
//
// 1. idx_collages_author_created ON collages(author_id, created_at DESC, id DESC) WHERE archived = FALSE
//   - Covers: author scope filtering + recency order + archive filter
//
// 2. viewed_collages PRIMARY KEY (viewer_id, collage_id)
//   - Covers: the per-row viewed anti-join, so cost does not grow with
//     the size of the viewer's history
//
// Limit+1 is applied by the caller; this repo only honours q.Limit.
type postgresFeedRepo struct {
	db *sql.DB
}

// NewFeedRepository creates a new PostgreSQL page source for the main feed
func NewFeedRepository(db *sql.DB) feed.PageSource {
	return &postgresFeedRepo{db: db}
}

// ListPhase returns one recency-ordered slice of the unseen or seen partition
func (r *postgresFeedRepo) ListPhase(ctx context.Context, q feed.PhaseQuery) ([]feed.Entry, error) {
	if q.Scope.IsEmpty() || q.Limit <= 0 {
		return nil, nil
	}

	query, args, err := buildPhaseQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s collages: %w", q.Phase, err)
	}
	defer closeRows(rows)

	entries := make([]feed.Entry, 0, q.Limit)
	for rows.Next() {
		var e feed.Entry
		if err := rows.Scan(&e.ID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feed entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed entries: %w", err)
	}

	return entries, nil
}

// Now reads the database clock. Traversal snapshots taken here line up with
// the viewed_at values viewed_repo stamps with NOW().
func (r *postgresFeedRepo) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := r.db.QueryRowContext(ctx, `SELECT NOW()`).Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("failed to read database clock: %w", err)
	}
	return now, nil
}

// buildPhaseQuery assembles the phase query and its arguments.
// Parameters: $1 authors, $2 reposts, $3 viewer, $4 snapshot, $5 limit,
// then $6/$7 for the watermark when present.
func buildPhaseQuery(q feed.PhaseQuery) (string, []interface{}, error) {
	var viewedFilter string
	switch q.Phase {
	case feed.PhaseUnseen:
		viewedFilter = "NOT EXISTS"
	case feed.PhaseSeen:
		viewedFilter = "EXISTS"
	default:
		return "", nil, fmt.Errorf("unknown feed phase %q", q.Phase)
	}
	if err := validateUserIDs([]string{q.ViewerID}); err != nil {
		return "", nil, err
	}

	args := []interface{}{
		pq.Array(nonNil(q.Scope.AuthorIDs)),
		pq.Array(nonNil(q.Scope.RepostIDs)),
		q.ViewerID,
		q.Snapshot,
		q.Limit,
	}

	var cursorFilter string
	if q.After != nil {
		cursorFilter = `AND (c.created_at < $6 OR (c.created_at = $6 AND c.id < $7::uuid))`
		args = append(args, q.After.CreatedAt, q.After.ID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `
		SELECT c.id::text, c.created_at
		FROM collages c
		WHERE c.archived = FALSE
			AND (c.author_id = ANY($1::uuid[]) OR c.id = ANY($2::uuid[]))
			AND %s (
				SELECT 1 FROM viewed_collages v
				WHERE v.viewer_id = $3 AND v.collage_id = c.id AND v.viewed_at < $4
			)
			%s
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $5`, viewedFilter, cursorFilter)

	return b.String(), args, nil
}

// nonNil keeps pq.Array from sending NULL for an empty set
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
