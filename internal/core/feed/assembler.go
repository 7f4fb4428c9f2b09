package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"Collage/internal/core/collages"
	"Collage/internal/core/users"
	"Collage/internal/metrics"
)

// AssemblerConfig sizes the author summary cache
type AssemblerConfig struct {
	AuthorCacheSize int
	AuthorCacheTTL  time.Duration
}

type cachedAuthor struct {
	expiresAt time.Time
	view      *users.AuthorView
}

// Assembler hydrates collage IDs into display records with a fixed number
// of batched queries regardless of page size.
type Assembler struct {
	collages    collages.Repository
	users       users.UserRepository
	authorCache *lru.Cache[string, cachedAuthor]
	authorTTL   time.Duration
	metrics     metrics.Recorder
	logger      *slog.Logger
}

// NewAssembler creates a new assembler
func NewAssembler(collageRepo collages.Repository, userRepo users.UserRepository, cfg AssemblerConfig, m metrics.Recorder, logger *slog.Logger) *Assembler {
	if cfg.AuthorCacheSize <= 0 {
		cfg.AuthorCacheSize = 4096
	}
	if cfg.AuthorCacheTTL <= 0 {
		cfg.AuthorCacheTTL = time.Minute
	}
	if m == nil {
		m = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := lru.New[string, cachedAuthor](cfg.AuthorCacheSize)
	if err != nil {
		logger.Warn("failed to create author cache, falling back to minimal cache", "error", err)
		cache, _ = lru.New[string, cachedAuthor](1)
	}

	return &Assembler{
		collages:    collageRepo,
		users:       userRepo,
		authorCache: cache,
		authorTTL:   cfg.AuthorCacheTTL,
		metrics:     m,
		logger:      logger,
	}
}

// Hydrate returns display records in exactly the order of ids.
// IDs that no longer resolve (deleted, archived or authorless since the page
// was computed) are dropped and logged rather than failing the page.
func (a *Assembler) Hydrate(ctx context.Context, ids []string, viewerID string) ([]*DisplayRecord, error) {
	records := make([]*DisplayRecord, 0, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	var (
		found  map[string]*collages.Collage
		states map[string]collages.ViewerState
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		found, err = a.collages.GetByIDs(gctx, ids)
		if err != nil {
			return fmt.Errorf("failed to load collages: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		states, err = a.collages.GetViewerStates(gctx, viewerID, ids)
		if err != nil {
			return fmt.Errorf("failed to load viewer state: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	authorIDs := make([]string, 0, len(found))
	for _, c := range found {
		if !c.Archived {
			authorIDs = append(authorIDs, c.AuthorID)
		}
	}
	authors, err := a.loadAuthors(ctx, uniqueIDs(authorIDs))
	if err != nil {
		return nil, err
	}

	var dropped []string
	for _, id := range ids {
		c, ok := found[id]
		if !ok || c.Archived {
			dropped = append(dropped, id)
			continue
		}
		author, ok := authors[c.AuthorID]
		if !ok {
			dropped = append(dropped, id)
			continue
		}
		records = append(records, buildRecord(c, author, states[id]))
	}

	if len(dropped) > 0 {
		a.metrics.RecordHydrationDrops(len(dropped))
		a.logger.InfoContext(ctx, "dropped unresolvable collages during hydration",
			"viewer", viewerID,
			"dropped", dropped)
	}

	return records, nil
}

// loadAuthors serves author summaries from the cache and fetches the rest in one query
func (a *Assembler) loadAuthors(ctx context.Context, authorIDs []string) (map[string]*users.AuthorView, error) {
	result := make(map[string]*users.AuthorView, len(authorIDs))
	now := time.Now()

	var missing []string
	for _, id := range authorIDs {
		if entry, ok := a.authorCache.Get(id); ok && now.Before(entry.expiresAt) {
			result[id] = entry.view
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return result, nil
	}

	userMap, err := a.users.GetByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("failed to load authors: %w", err)
	}
	for id, u := range userMap {
		view := u.ToAuthorView()
		a.authorCache.Add(id, cachedAuthor{view: view, expiresAt: now.Add(a.authorTTL)})
		result[id] = view
	}

	return result, nil
}

func buildRecord(c *collages.Collage, author *users.AuthorView, state collages.ViewerState) *DisplayRecord {
	return &DisplayRecord{
		ID:           c.ID,
		Author:       author,
		Caption:      c.Caption,
		MediaURLs:    c.MediaURLs(),
		Participants: c.Participants,
		Stats:        c.Stats,
		CreatedAt:    c.CreatedAt,
		Viewer: ViewerFlags{
			IsLikedByViewer:    state.Liked,
			IsRepostedByViewer: state.Reposted,
			IsSavedByViewer:    state.Saved,
		},
		HasParticipants: c.HasParticipants(),
	}
}
