package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"Collage/internal/core/collages"
)

// MaxCollageBatchSize bounds batched collage lookups
const MaxCollageBatchSize = 500

type postgresCollageRepo struct {
	db *sql.DB
}

// NewCollageRepository creates a new PostgreSQL collage repository
func NewCollageRepository(db *sql.DB) collages.Repository {
	return &postgresCollageRepo{db: db}
}

// GetByIDs loads collages, participants included, in a single query
func (r *postgresCollageRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*collages.Collage, error) {
	if len(ids) == 0 {
		return make(map[string]*collages.Collage), nil
	}
	if len(ids) > MaxCollageBatchSize {
		return nil, fmt.Errorf("batch size %d exceeds maximum %d", len(ids), MaxCollageBatchSize)
	}
	for _, id := range ids {
		if err := collages.ValidateID(id); err != nil {
			return nil, err
		}
	}

	query := `
		SELECT
			c.id::text, c.author_id::text, c.caption, c.media, c.archived,
			c.like_count, c.repost_count, c.save_count, c.comment_count,
			c.created_at,
			ARRAY(
				SELECT p.user_id::text FROM collage_participants p
				WHERE p.collage_id = c.id
				ORDER BY p.user_id
			) AS participants
		FROM collages c
		WHERE c.id = ANY($1::uuid[])`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query collages by IDs: %w", err)
	}
	defer closeRows(rows)

	result := make(map[string]*collages.Collage, len(ids))
	for rows.Next() {
		c := &collages.Collage{}
		var media []byte
		var participants []string
		err := rows.Scan(
			&c.ID, &c.AuthorID, &c.Caption, &media, &c.Archived,
			&c.Stats.Likes, &c.Stats.Reposts, &c.Stats.Saves, &c.Stats.Comments,
			&c.CreatedAt,
			pq.Array(&participants),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collage row: %w", err)
		}

		if len(media) > 0 {
			if err := json.Unmarshal(media, &c.Media); err != nil {
				return nil, fmt.Errorf("failed to decode media for collage %s: %w", c.ID, err)
			}
			sort.SliceStable(c.Media, func(i, j int) bool {
				return c.Media[i].Position < c.Media[j].Position
			})
		}
		c.Participants = participants
		result[c.ID] = c
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collage rows: %w", err)
	}

	return result, nil
}

// GetViewerStates computes like/repost/save membership for every ID in one query
func (r *postgresCollageRepo) GetViewerStates(ctx context.Context, viewerID string, ids []string) (map[string]collages.ViewerState, error) {
	result := make(map[string]collages.ViewerState, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	if _, err := uuid.Parse(viewerID); err != nil {
		return result, nil
	}
	for _, id := range ids {
		if err := collages.ValidateID(id); err != nil {
			return nil, err
		}
	}

	query := `
		SELECT
			t.id::text,
			EXISTS(SELECT 1 FROM likes l WHERE l.user_id = $1 AND l.collage_id = t.id),
			EXISTS(SELECT 1 FROM reposts r WHERE r.user_id = $1 AND r.collage_id = t.id),
			EXISTS(SELECT 1 FROM saves s WHERE s.user_id = $1 AND s.collage_id = t.id)
		FROM unnest($2::uuid[]) AS t(id)`

	rows, err := r.db.QueryContext(ctx, query, viewerID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query viewer state: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var id string
		var state collages.ViewerState
		if err := rows.Scan(&id, &state.Liked, &state.Reposted, &state.Saved); err != nil {
			return nil, fmt.Errorf("failed to scan viewer state: %w", err)
		}
		result[id] = state
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating viewer state rows: %w", err)
	}

	return result, nil
}
