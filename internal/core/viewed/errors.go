package viewed

import (
	"errors"
	"fmt"
)

var (
	// ErrViewerRequired indicates no viewer identity was supplied
	ErrViewerRequired = errors.New("viewer ID is required")
)

// BatchTooLargeError is returned when a single MarkViewed call carries too many IDs
type BatchTooLargeError struct {
	Size int
	Max  int
}

func (e *BatchTooLargeError) Error() string {
	return fmt.Sprintf("batch size %d exceeds maximum %d", e.Size, e.Max)
}

// IsBatchTooLarge reports whether err is a BatchTooLargeError
func IsBatchTooLarge(err error) bool {
	var target *BatchTooLargeError
	return errors.As(err, &target)
}
