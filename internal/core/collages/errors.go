package collages

import (
	"errors"
	"fmt"
)

var (
	// ErrCollageNotFound indicates the collage doesn't exist, was deleted or is archived
	ErrCollageNotFound = errors.New("collage not found")
)

// InvalidIDError is returned for malformed collage IDs
type InvalidIDError struct {
	ID     string
	Reason string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid collage ID %q: %s", e.ID, e.Reason)
}

// IsNotFound reports whether err is a collage-not-found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCollageNotFound)
}

// IsInvalidID reports whether err is an InvalidIDError
func IsInvalidID(err error) bool {
	var target *InvalidIDError
	return errors.As(err, &target)
}
