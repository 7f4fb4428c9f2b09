package interactions

import (
	"errors"
	"fmt"
)

// ErrNotAuthor is returned when someone other than the author archives a collage
var ErrNotAuthor = errors.New("only the author can archive a collage")

// InvalidEventError is returned for malformed events. They are never retried.
type InvalidEventError struct {
	Reason string
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid interaction event: %s", e.Reason)
}

// IsInvalidEvent reports whether err is an InvalidEventError
func IsInvalidEvent(err error) bool {
	var target *InvalidEventError
	return errors.As(err, &target)
}
