package users

import (
	"errors"
	"fmt"
)

// Sentinel errors for common user operations
var (
	// ErrUserNotFound is returned when a user lookup finds no matching record
	ErrUserNotFound = errors.New("user not found")

	// ErrHandleAlreadyTaken is returned when creating an account with a handle in use
	ErrHandleAlreadyTaken = errors.New("handle already taken")
)

// InvalidUserIDError is returned when a user ID is not a valid UUID
type InvalidUserIDError struct {
	ID string
}

func (e *InvalidUserIDError) Error() string {
	return fmt.Sprintf("invalid user ID %q: must be a UUID", e.ID)
}

// IsNotFound reports whether err is a user-not-found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsInvalidID reports whether err is an InvalidUserIDError
func IsInvalidID(err error) bool {
	var target *InvalidUserIDError
	return errors.As(err, &target)
}
