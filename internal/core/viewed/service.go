package viewed

import (
	"context"
	"fmt"
	"log/slog"

	"Collage/internal/core/collages"
)

// MaxBatchSize bounds the number of IDs accepted by a single MarkViewed call
const MaxBatchSize = 100

type viewedService struct {
	repo   Repository
	logger *slog.Logger
}

// NewViewedService creates a new viewed-set service
func NewViewedService(repo Repository, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &viewedService{
		repo:   repo,
		logger: logger,
	}
}

// MarkViewed validates and deduplicates ids, then unions them into the viewed set
func (s *viewedService) MarkViewed(ctx context.Context, viewerID string, ids []string) error {
	if viewerID == "" {
		return ErrViewerRequired
	}
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > MaxBatchSize {
		return &BatchTooLargeError{Size: len(ids), Max: MaxBatchSize}
	}

	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if err := collages.ValidateID(id); err != nil {
			return err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	added, err := s.repo.Add(ctx, viewerID, unique)
	if err != nil {
		return fmt.Errorf("failed to mark collages viewed: %w", err)
	}

	s.logger.DebugContext(ctx, "viewed set updated",
		"viewer", viewerID,
		"requested", len(unique),
		"added", added)

	return nil
}
