package users

import "context"

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create inserts a new account. Returns ErrHandleAlreadyTaken on handle conflicts.
	Create(ctx context.Context, user *User) (*User, error)

	// GetByID returns ErrUserNotFound when no account has the given ID.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByIDs retrieves multiple users in a single batch query.
	// Returns a map of ID → User. Missing users are not included in the
	// result map (no error for missing users).
	//
	// Example:
	//   userMap, err := repo.GetByIDs(ctx, []string{idA, idB})
	//   if err != nil { return err }
	//   if user, found := userMap[idA]; found {
	//       // Use user
	//   }
	GetByIDs(ctx context.Context, ids []string) (map[string]*User, error)

	// Exists reports whether an account with the given ID exists
	Exists(ctx context.Context, id string) (bool, error)
}
