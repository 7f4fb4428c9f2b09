package interactions

import (
	"context"
	"fmt"
	"log/slog"
)

type interactionService struct {
	repo        Repository
	invalidator ScopeInvalidator
	logger      *slog.Logger
}

// NewInteractionService creates a service applying events to repo.
// invalidator may be nil when scopes are not cached.
func NewInteractionService(repo Repository, invalidator ScopeInvalidator, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &interactionService{
		repo:        repo,
		invalidator: invalidator,
		logger:      logger,
	}
}

// Apply validates and applies one event. Replays are harmless.
func (s *interactionService) Apply(ctx context.Context, event *Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	active := event.Op == OpCreate

	var (
		changed bool
		err     error
	)
	switch event.Kind {
	case KindFollow:
		changed, err = s.repo.SetFollow(ctx, event.Actor, event.Subject, active)
	case KindRepost:
		changed, err = s.repo.SetRepost(ctx, event.Actor, event.Subject, active)
	case KindLike:
		changed, err = s.repo.SetLike(ctx, event.Actor, event.Subject, active)
	case KindSave:
		changed, err = s.repo.SetSave(ctx, event.Actor, event.Subject, active)
	case KindArchive:
		changed, err = s.repo.SetArchived(ctx, event.Actor, event.Subject, active)
	}
	if err != nil {
		return fmt.Errorf("failed to apply %s %s: %w", event.Kind, event.Op, err)
	}

	if !changed {
		s.logger.DebugContext(ctx, "interaction already applied",
			"kind", event.Kind,
			"op", event.Op,
			"actor", event.Actor,
			"subject", event.Subject)
		return nil
	}

	return s.invalidate(ctx, event)
}

// invalidate drops scopes that the event changed. A follow changes the
// actor's author set; a repost changes the repost set of the actor and of
// everyone following the actor.
func (s *interactionService) invalidate(ctx context.Context, event *Event) error {
	if s.invalidator == nil {
		return nil
	}

	var viewers []string
	switch event.Kind {
	case KindFollow:
		viewers = []string{event.Actor}
	case KindRepost:
		followers, err := s.repo.GetFollowers(ctx, event.Actor)
		if err != nil {
			return fmt.Errorf("failed to load followers for invalidation: %w", err)
		}
		viewers = append([]string{event.Actor}, followers...)
	default:
		return nil
	}

	if err := s.invalidator.Invalidate(ctx, viewers...); err != nil {
		// Cached scopes expire on their own; a failed invalidation only delays visibility
		s.logger.WarnContext(ctx, "failed to invalidate cached scopes",
			"kind", event.Kind,
			"viewers", len(viewers),
			"error", err)
	}
	return nil
}
