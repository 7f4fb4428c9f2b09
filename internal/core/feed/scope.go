package feed

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"Collage/internal/core/users"
)

type scopeResolver struct {
	users users.UserRepository
	repo  ScopeRepository
}

// NewScopeResolver creates a resolver reading relationships from repo
func NewScopeResolver(userRepo users.UserRepository, repo ScopeRepository) ScopeResolver {
	return &scopeResolver{
		users: userRepo,
		repo:  repo,
	}
}

// ResolveScope computes {viewer} ∪ following as authors and the reposts of
// all of them as repost sources. The query count is constant: the account
// check and the following lookup run concurrently, then one batched repost
// query covers every author.
func (r *scopeResolver) ResolveScope(ctx context.Context, viewerID string) (*Scope, error) {
	if viewerID == "" {
		return nil, ErrAuthenticationRequired
	}

	var (
		exists    bool
		following []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		exists, err = r.users.Exists(gctx, viewerID)
		if err != nil {
			return fmt.Errorf("failed to check viewer: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		following, err = r.repo.GetFollowing(gctx, viewerID)
		if err != nil {
			return fmt.Errorf("failed to load following: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if users.IsInvalidID(err) {
			return nil, ErrViewerNotFound
		}
		return nil, err
	}
	if !exists {
		return nil, ErrViewerNotFound
	}

	authors := uniqueIDs(append([]string{viewerID}, following...))

	reposts, err := r.repo.GetRepostedBy(ctx, authors)
	if err != nil {
		return nil, fmt.Errorf("failed to load reposts: %w", err)
	}

	return &Scope{
		AuthorIDs: authors,
		RepostIDs: uniqueIDs(reposts),
	}, nil
}

// uniqueIDs removes duplicates, keeping first occurrence order
func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
