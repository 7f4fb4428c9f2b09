package feed

import (
	"context"
	"fmt"
	"time"
)

// Paginator produces pages of collage IDs: unseen collages first in recency
// order, then previously seen ones to fill the page.
//
// Unseen and seen collages are never interleaved by timestamp. An unseen
// collage from last month still ranks above a seen one from today.
type Paginator struct {
	source PageSource
	codec  *CursorCodec
	now    func() time.Time
}

// NewPaginator creates a paginator over source
func NewPaginator(source PageSource, codec *CursorCodec) *Paginator {
	return &Paginator{
		source: source,
		codec:  codec,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Paginate returns the page after cursor (nil cursor = first page).
//
// Each phase is queried with limit+1 rows; the extra row only signals that
// more rows exist and is never returned. When the unseen phase cannot fill
// the page the seen phase tops it up, and when unseen fills it exactly the
// seen phase is queried for a single row to decide HasNextPage.
func (p *Paginator) Paginate(ctx context.Context, viewerID string, scope *Scope, cursor *string, limit int) (*IDPage, error) {
	if viewerID == "" {
		return nil, ErrAuthenticationRequired
	}
	if limit <= 0 {
		return nil, NewValidationError("limit", "limit must be positive")
	}

	state, err := p.codec.Decode(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	page := &IDPage{IDs: make([]string, 0, limit)}
	if scope.IsEmpty() {
		return page, nil
	}

	if state == nil {
		snapshot, err := p.snapshot(ctx)
		if err != nil {
			return nil, err
		}
		state = &cursorState{Phase: PhaseUnseen, Snapshot: snapshot}
	}

	included := make(map[string]struct{}, limit)
	add := func(entries []Entry) *Watermark {
		var last *Watermark
		for _, e := range entries {
			last = &Watermark{CreatedAt: e.CreatedAt, ID: e.ID}
			if _, dup := included[e.ID]; dup {
				continue
			}
			included[e.ID] = struct{}{}
			page.IDs = append(page.IDs, e.ID)
		}
		return last
	}

	if state.Phase == PhaseUnseen {
		rows, err := p.source.ListPhase(ctx, PhaseQuery{
			ViewerID: viewerID,
			Scope:    scope,
			Phase:    PhaseUnseen,
			Snapshot: state.Snapshot,
			After:    state.Unseen,
			Limit:    limit + 1,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query unseen collages: %w", err)
		}

		if len(rows) > limit {
			state.Unseen = add(rows[:limit])
			page.UnseenCount = len(page.IDs)
			page.HasNextPage = true
			next := p.codec.Encode(state)
			page.Cursor = &next
			return page, nil
		}

		if last := add(rows); last != nil {
			state.Unseen = last
		}
		page.UnseenCount = len(page.IDs)
		state.Phase = PhaseSeen
	}

	remaining := limit - len(page.IDs)
	rows, err := p.source.ListPhase(ctx, PhaseQuery{
		ViewerID: viewerID,
		Scope:    scope,
		Phase:    PhaseSeen,
		Snapshot: state.Snapshot,
		After:    state.Seen,
		Limit:    remaining + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query seen collages: %w", err)
	}

	hasMore := len(rows) > remaining
	if hasMore {
		rows = rows[:remaining]
	}
	if last := add(rows); last != nil {
		state.Seen = last
	}
	page.SeenCount = len(page.IDs) - page.UnseenCount

	if hasMore {
		page.HasNextPage = true
		next := p.codec.Encode(state)
		page.Cursor = &next
	}

	return page, nil
}

// snapshot returns the traversal start time T0, read from the store when the
// source exposes its clock
func (p *Paginator) snapshot(ctx context.Context) (time.Time, error) {
	clock, ok := p.source.(StoreClock)
	if !ok {
		return p.now(), nil
	}
	now, err := clock.Now(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read store clock: %w", err)
	}
	return now.UTC(), nil
}
