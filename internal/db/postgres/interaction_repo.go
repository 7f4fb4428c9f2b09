package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"Collage/internal/core/interactions"
)

type postgresInteractionRepo struct {
	db *sql.DB
}

// NewInteractionRepository creates a new PostgreSQL interaction repository
func NewInteractionRepository(db *sql.DB) interactions.Repository {
	return &postgresInteractionRepo{db: db}
}

// counterColumns maps interaction tables to their denormalized collage counter.
// Whitelisted so table and column names never come from input.
var counterColumns = map[string]string{
	"reposts": "repost_count",
	"likes":   "like_count",
	"saves":   "save_count",
}

// SetFollow creates or removes a follow edge
func (r *postgresInteractionRepo) SetFollow(ctx context.Context, followerID, followeeID string, active bool) (bool, error) {
	var query string
	if active {
		query = `
			INSERT INTO follows (follower_id, followee_id)
			SELECT $1, $2
			WHERE EXISTS (SELECT 1 FROM users WHERE id = $1)
				AND EXISTS (SELECT 1 FROM users WHERE id = $2)
			ON CONFLICT (follower_id, followee_id) DO NOTHING`
	} else {
		query = `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`
	}

	result, err := r.db.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("failed to update follow: %w", err)
	}
	return affected(result)
}

// SetRepost creates or removes a repost and adjusts the repost counter
func (r *postgresInteractionRepo) SetRepost(ctx context.Context, userID, collageID string, active bool) (bool, error) {
	return r.setMembership(ctx, "reposts", userID, collageID, active)
}

// SetLike creates or removes a like and adjusts the like counter
func (r *postgresInteractionRepo) SetLike(ctx context.Context, userID, collageID string, active bool) (bool, error) {
	return r.setMembership(ctx, "likes", userID, collageID, active)
}

// SetSave creates or removes a save and adjusts the save counter
func (r *postgresInteractionRepo) SetSave(ctx context.Context, userID, collageID string, active bool) (bool, error) {
	return r.setMembership(ctx, "saves", userID, collageID, active)
}

// setMembership atomically toggles a (user, collage) row and its counter
func (r *postgresInteractionRepo) setMembership(ctx context.Context, table, userID, collageID string, active bool) (bool, error) {
	counter, ok := counterColumns[table]
	if !ok {
		return false, fmt.Errorf("unknown interaction table %q", table)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && rollbackErr != sql.ErrTxDone {
			slog.Error("failed to rollback transaction",
				slog.String("table", table),
				slog.String("error", rollbackErr.Error()))
		}
	}()

	var (
		query string
		delta int
	)
	if active {
		query = fmt.Sprintf(`
			INSERT INTO %s (user_id, collage_id)
			SELECT $1, c.id FROM collages c
			WHERE c.id = $2 AND EXISTS (SELECT 1 FROM users WHERE id = $1)
			ON CONFLICT (user_id, collage_id) DO NOTHING`, table)
		delta = 1
	} else {
		query = fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND collage_id = $2`, table)
		delta = -1
	}

	result, err := tx.ExecContext(ctx, query, userID, collageID)
	if err != nil {
		return false, fmt.Errorf("failed to update %s: %w", table, err)
	}
	changed, err := affected(result)
	if err != nil || !changed {
		// Idempotent: nothing to count
		if commitErr := tx.Commit(); commitErr != nil {
			return false, fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
		return false, err
	}

	updateQuery := fmt.Sprintf(`
		UPDATE collages
		SET %[1]s = GREATEST(%[1]s + $2, 0)
		WHERE id = $1`, counter)
	if _, err := tx.ExecContext(ctx, updateQuery, collageID, delta); err != nil {
		return false, fmt.Errorf("failed to update %s: %w", counter, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// SetArchived flips the archive flag of a collage owned by authorID
func (r *postgresInteractionRepo) SetArchived(ctx context.Context, authorID, collageID string, archived bool) (bool, error) {
	var owner string
	err := r.db.QueryRowContext(ctx, `SELECT author_id::text FROM collages WHERE id = $1`, collageID).Scan(&owner)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load collage owner: %w", err)
	}
	if owner != authorID {
		return false, interactions.ErrNotAuthor
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE collages SET archived = $3 WHERE id = $1 AND author_id = $2 AND archived <> $3`,
		collageID, authorID, archived)
	if err != nil {
		return false, fmt.Errorf("failed to update archive flag: %w", err)
	}
	return affected(result)
}

// GetFollowers returns the IDs of users following userID
func (r *postgresInteractionRepo) GetFollowers(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT follower_id::text FROM follows WHERE followee_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query followers: %w", err)
	}
	defer closeRows(rows)

	return scanIDs(rows)
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return n > 0, nil
}
