package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"Collage/internal/core/users"
)

type postgresUserRepo struct {
	db *sql.DB
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sql.DB) users.UserRepository {
	return &postgresUserRepo{db: db}
}

// Create inserts a new user into the users table
func (r *postgresUserRepo) Create(ctx context.Context, user *users.User) (*users.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if err := validateUserIDs([]string{user.ID}); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO users (id, handle, display_name, avatar_url)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, user.ID, user.Handle, user.DisplayName, user.AvatarURL).
		Scan(&user.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			if strings.Contains(err.Error(), "users_handle_key") {
				return nil, users.ErrHandleAlreadyTaken
			}
			return nil, fmt.Errorf("user with ID already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (r *postgresUserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	if err := validateUserIDs([]string{id}); err != nil {
		return nil, err
	}

	query := `SELECT id, handle, display_name, avatar_url, created_at FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, users.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// MaxUserBatchSize bounds GetByIDs lookups
const MaxUserBatchSize = 1000

// GetByIDs retrieves multiple users by ID in a single query
// Returns a map of ID -> User for efficient lookups
// Missing users are not included in the result map (no error for missing users)
func (r *postgresUserRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*users.User, error) {
	if len(ids) == 0 {
		return make(map[string]*users.User), nil
	}
	if len(ids) > MaxUserBatchSize {
		return nil, fmt.Errorf("batch size %d exceeds maximum %d", len(ids), MaxUserBatchSize)
	}
	if err := validateUserIDs(ids); err != nil {
		return nil, err
	}

	// Use ANY($1) for PostgreSQL array support with pq.Array() for type conversion
	query := `SELECT id, handle, display_name, avatar_url, created_at FROM users WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query users by IDs: %w", err)
	}
	defer closeRows(rows)

	result := make(map[string]*users.User, len(ids))
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		result[user.ID] = user
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return result, nil
}

// Exists reports whether an account with the given ID exists
func (r *postgresUserRepo) Exists(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*users.User, error) {
	user := &users.User{}
	var displayName, avatarURL sql.NullString
	if err := row.Scan(&user.ID, &user.Handle, &displayName, &avatarURL, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.DisplayName = displayName.String
	user.AvatarURL = avatarURL.String
	return user, nil
}

// validateUserIDs rejects malformed IDs before they reach the query
func validateUserIDs(ids []string) error {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return &users.InvalidUserIDError{ID: id}
		}
	}
	return nil
}
