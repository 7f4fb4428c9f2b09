package feed

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"Collage/internal/core/collages"
	"Collage/internal/core/users"
)

// memStore is an in-memory content store implementing every repository the
// feed pipeline reads, plus viewed.Repository for the write side.
type memStore struct {
	mu        sync.Mutex
	users     map[string]*users.User
	following map[string][]string
	reposts   map[string][]string // user -> reposted collage IDs
	collages  map[string]*collages.Collage
	states    map[string]map[string]collages.ViewerState
	viewed    map[string]map[string]time.Time

	failWith      error
	repostCalls   [][]string
	userByIDCalls int
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[string]*users.User),
		following: make(map[string][]string),
		reposts:   make(map[string][]string),
		collages:  make(map[string]*collages.Collage),
		states:    make(map[string]map[string]collages.ViewerState),
		viewed:    make(map[string]map[string]time.Time),
	}
}

func (s *memStore) addUser(handle string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.users[id] = &users.User{ID: id, Handle: handle, DisplayName: handle}
	return id
}

func (s *memStore) follow(follower, subject string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.following[follower] = append(s.following[follower], subject)
}

func (s *memStore) repost(userID, collageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reposts[userID] = append(s.reposts[userID], collageID)
}

func (s *memStore) post(authorID string, createdAt time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.collages[id] = &collages.Collage{
		ID:        id,
		AuthorID:  authorID,
		CreatedAt: createdAt,
		Media:     []collages.MediaRef{{URL: "https://cdn.example.com/" + id + ".jpg"}},
	}
	return id
}

func (s *memStore) archive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collages[id].Archived = true
}

func (s *memStore) markViewedAt(viewerID, collageID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viewed[viewerID] == nil {
		s.viewed[viewerID] = make(map[string]time.Time)
	}
	s.viewed[viewerID][collageID] = at
}

func (s *memStore) viewedSet(viewerID string) map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.viewed[viewerID]))
	for id, at := range s.viewed[viewerID] {
		out[id] = at
	}
	return out
}

// users.UserRepository

func (s *memStore) Create(ctx context.Context, user *users.User) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, u := range s.users {
		if u.Handle == user.Handle {
			return nil, users.ErrHandleAlreadyTaken
		}
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	u, ok := s.users[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return u, nil
}

func (s *memStore) GetByIDs(ctx context.Context, ids []string) (map[string]*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.userByIDCalls++
	out := make(map[string]*users.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (s *memStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return false, s.failWith
	}
	_, ok := s.users[id]
	return ok, nil
}

// ScopeRepository

func (s *memStore) GetFollowing(ctx context.Context, viewerID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	return append([]string(nil), s.following[viewerID]...), nil
}

func (s *memStore) GetRepostedBy(ctx context.Context, userIDs []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.repostCalls = append(s.repostCalls, append([]string(nil), userIDs...))
	var out []string
	for _, u := range userIDs {
		out = append(out, s.reposts[u]...)
	}
	return out, nil
}

// PageSource

func (s *memStore) ListPhase(ctx context.Context, q PhaseQuery) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}

	authors := toSet(q.Scope.AuthorIDs)
	reposts := toSet(q.Scope.RepostIDs)

	var entries []Entry
	for id, c := range s.collages {
		if c.Archived {
			continue
		}
		_, byAuthor := authors[c.AuthorID]
		_, reposted := reposts[id]
		if !byAuthor && !reposted {
			continue
		}

		viewedAt, ok := s.viewed[q.ViewerID][id]
		seen := ok && viewedAt.Before(q.Snapshot)
		if (q.Phase == PhaseSeen) != seen {
			continue
		}
		if q.After != nil && !before(c.CreatedAt, id, q.After.CreatedAt, q.After.ID) {
			continue
		}
		entries = append(entries, Entry{ID: id, CreatedAt: c.CreatedAt})
	}

	sort.Slice(entries, func(i, j int) bool {
		return before(entries[j].CreatedAt, entries[j].ID, entries[i].CreatedAt, entries[i].ID)
	})
	if len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}
	return entries, nil
}

// before reports whether (t1, id1) sorts strictly after (t2, id2) in
// (created_at DESC, id DESC) order
func before(t1 time.Time, id1 string, t2 time.Time, id2 string) bool {
	if t1.Equal(t2) {
		return id1 < id2
	}
	return t1.Before(t2)
}

// collages.Repository, exposed through collageView to avoid the GetByIDs clash

type collageView struct{ s *memStore }

func (v collageView) GetByIDs(ctx context.Context, ids []string) (map[string]*collages.Collage, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.failWith != nil {
		return nil, v.s.failWith
	}
	out := make(map[string]*collages.Collage, len(ids))
	for _, id := range ids {
		if c, ok := v.s.collages[id]; ok {
			cp := *c
			out[id] = &cp
		}
	}
	return out, nil
}

func (v collageView) GetViewerStates(ctx context.Context, viewerID string, ids []string) (map[string]collages.ViewerState, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.failWith != nil {
		return nil, v.s.failWith
	}
	out := make(map[string]collages.ViewerState, len(ids))
	for _, id := range ids {
		out[id] = v.s.states[viewerID][id]
	}
	return out, nil
}

// viewed.Repository. Rejects viewers the way the Postgres repository does:
// malformed IDs fail validation and unknown accounts violate the foreign key.

type viewedView struct{ s *memStore }

func (v viewedView) Add(ctx context.Context, viewerID string, ids []string) (int, error) {
	if _, err := uuid.Parse(viewerID); err != nil {
		return 0, &users.InvalidUserIDError{ID: viewerID}
	}

	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.failWith != nil {
		return 0, v.s.failWith
	}
	if _, ok := v.s.users[viewerID]; !ok {
		return 0, users.ErrUserNotFound
	}
	viewedAt := time.Now().UTC()
	if v.s.viewed[viewerID] == nil {
		v.s.viewed[viewerID] = make(map[string]time.Time)
	}
	added := 0
	for _, id := range ids {
		if _, ok := v.s.collages[id]; !ok {
			continue
		}
		if _, ok := v.s.viewed[viewerID][id]; ok {
			continue
		}
		v.s.viewed[viewerID][id] = viewedAt
		added++
	}
	return added, nil
}

func toSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

var errStoreDown = errors.New("connection refused")

// fixedClock returns a clock that always reports t
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
