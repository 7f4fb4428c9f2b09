package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"Collage/internal/core/collages"
	"Collage/internal/core/users"
	"Collage/internal/core/viewed"
	"Collage/internal/metrics"
)

// Limits bounds the requested page size
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits are used when the caller passes a zero Limits
var DefaultLimits = Limits{Default: 20, Max: 50}

type feedService struct {
	resolver  ScopeResolver
	paginator *Paginator
	assembler *Assembler
	viewed    viewed.Service
	recorder  ViewRecorder
	metrics   metrics.Recorder
	logger    *slog.Logger
	limits    Limits
}

// ServiceDeps groups the collaborators of the feed service
type ServiceDeps struct {
	Resolver  ScopeResolver
	Paginator *Paginator
	Assembler *Assembler
	Viewed    viewed.Service
	Recorder  ViewRecorder
	Metrics   metrics.Recorder
	Logger    *slog.Logger
	Limits    Limits
}

// NewFeedService creates a new main feed service
func NewFeedService(deps ServiceDeps) Service {
	if deps.Limits.Default <= 0 || deps.Limits.Max <= 0 {
		deps.Limits = DefaultLimits
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &feedService{
		resolver:  deps.Resolver,
		paginator: deps.Paginator,
		assembler: deps.Assembler,
		viewed:    deps.Viewed,
		recorder:  deps.Recorder,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		limits:    deps.Limits,
	}
}

// GetFeedIDs returns one page of IDs and records every returned ID as viewed
func (s *feedService) GetFeedIDs(ctx context.Context, req GetFeedRequest) (*FeedIDsResponse, error) {
	page, err := s.page(ctx, &req)
	if err != nil {
		return nil, err
	}

	refs := make([]CollageRef, 0, len(page.IDs))
	for _, id := range page.IDs {
		refs = append(refs, CollageRef{ID: id})
	}
	s.record(ctx, req.ViewerID, page.IDs)

	return &FeedIDsResponse{
		Collages:    refs,
		NextCursor:  page.Cursor,
		HasNextPage: page.HasNextPage,
	}, nil
}

// GetFeed returns one hydrated page. Only collages that survive hydration
// are recorded as viewed.
func (s *feedService) GetFeed(ctx context.Context, req GetFeedRequest) (*FeedResponse, error) {
	page, err := s.page(ctx, &req)
	if err != nil {
		return nil, err
	}

	records, err := s.assembler.Hydrate(ctx, page.IDs, req.ViewerID)
	if err != nil {
		return nil, wrapStoreError("hydrate feed page", err)
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	s.record(ctx, req.ViewerID, ids)

	return &FeedResponse{
		Collages:    records,
		NextCursor:  page.Cursor,
		HasNextPage: page.HasNextPage,
	}, nil
}

// MarkViewed synchronously unions ids into the viewer's viewed set
func (s *feedService) MarkViewed(ctx context.Context, viewerID string, ids []string) error {
	if viewerID == "" {
		return ErrAuthenticationRequired
	}
	if err := s.viewed.MarkViewed(ctx, viewerID, ids); err != nil {
		return markViewedError("collageIds", err)
	}
	return nil
}

// markViewedError maps viewed-set failures onto the feed error taxonomy.
// A malformed or unknown viewer is ErrViewerNotFound, never a storage outage.
func markViewedError(field string, err error) error {
	switch {
	case viewed.IsBatchTooLarge(err), collages.IsInvalidID(err):
		return NewValidationError(field, err.Error())
	case users.IsInvalidID(err), users.IsNotFound(err):
		return ErrViewerNotFound
	}
	return wrapStoreError("mark viewed", err)
}

// MarkViewedAndGet hydrates one collage for the viewer, then records it as viewed.
// Archived or missing collages return ErrCollageNotFound and are not recorded.
func (s *feedService) MarkViewedAndGet(ctx context.Context, viewerID, collageID string) (*CollageDetail, error) {
	if viewerID == "" {
		return nil, ErrAuthenticationRequired
	}
	if err := collages.ValidateID(collageID); err != nil {
		return nil, NewValidationError("collageId", err.Error())
	}

	records, err := s.assembler.Hydrate(ctx, []string{collageID}, viewerID)
	if err != nil {
		return nil, wrapStoreError("hydrate collage", err)
	}
	if len(records) == 0 {
		return nil, collages.ErrCollageNotFound
	}
	record := records[0]

	if err := s.viewed.MarkViewed(ctx, viewerID, []string{collageID}); err != nil {
		return nil, markViewedError("collageId", err)
	}

	return &CollageDetail{
		Collage:                 record,
		IsLikedByCurrentUser:    record.Viewer.IsLikedByViewer,
		IsRepostedByCurrentUser: record.Viewer.IsRepostedByViewer,
		IsSavedByCurrentUser:    record.Viewer.IsSavedByViewer,
		HasParticipants:         record.HasParticipants,
	}, nil
}

// page validates req, resolves scope and paginates
func (s *feedService) page(ctx context.Context, req *GetFeedRequest) (*IDPage, error) {
	if req.ViewerID == "" {
		return nil, ErrAuthenticationRequired
	}
	if err := s.normalizeLimit(req); err != nil {
		return nil, err
	}

	start := time.Now()

	scope, err := s.resolver.ResolveScope(ctx, req.ViewerID)
	if err != nil {
		return nil, wrapStoreError("resolve scope", err)
	}

	page, err := s.paginator.Paginate(ctx, req.ViewerID, scope, req.Cursor, req.Limit)
	if err != nil {
		return nil, wrapStoreError("paginate feed", err)
	}

	s.metrics.ObserveFeedPage(page.UnseenCount, page.SeenCount, time.Since(start))
	s.logger.DebugContext(ctx, "feed page computed",
		"viewer", req.ViewerID,
		"authors", len(scope.AuthorIDs),
		"reposts", len(scope.RepostIDs),
		"unseen", page.UnseenCount,
		"seen", page.SeenCount,
		"has_next", page.HasNextPage)

	return page, nil
}

func (s *feedService) normalizeLimit(req *GetFeedRequest) error {
	if req.Limit == 0 {
		req.Limit = s.limits.Default
		return nil
	}
	if req.Limit < 1 || req.Limit > s.limits.Max {
		return NewValidationError("limit", fmt.Sprintf("limit must be between 1 and %d", s.limits.Max))
	}
	return nil
}

// record hands ids to the async recorder, falling back to a synchronous
// write when none is configured
func (s *feedService) record(ctx context.Context, viewerID string, ids []string) {
	if len(ids) == 0 {
		return
	}
	if s.recorder != nil {
		s.recorder.Record(ctx, viewerID, ids)
		return
	}
	if err := s.viewed.MarkViewed(ctx, viewerID, ids); err != nil {
		s.logger.WarnContext(ctx, "failed to record viewed collages",
			"viewer", viewerID,
			"count", len(ids),
			"error", err)
	}
}
