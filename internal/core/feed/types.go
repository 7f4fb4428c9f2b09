package feed

import (
	"time"

	"Collage/internal/core/collages"
	"Collage/internal/core/users"
)

// Scope is the set of authors and reposted collages eligible for a viewer's feed
type Scope struct {
	AuthorIDs []string `json:"authorIds"`
	RepostIDs []string `json:"repostIds"`
}

// IsEmpty reports whether nothing can match the scope
func (s *Scope) IsEmpty() bool {
	return s == nil || (len(s.AuthorIDs) == 0 && len(s.RepostIDs) == 0)
}

// Phase identifies which partition of the feed a query reads
type Phase string

const (
	// PhaseUnseen holds collages the viewer had not viewed when the traversal started
	PhaseUnseen Phase = "unseen"
	// PhaseSeen holds collages the viewer had already viewed when the traversal started
	PhaseSeen Phase = "seen"
)

// Watermark is the position of the last row served in a phase.
// Rows strictly after it in (created_at DESC, id DESC) order come next.
type Watermark struct {
	CreatedAt time.Time
	ID        string
}

// Entry is one eligible collage as returned by a phase query
type Entry struct {
	CreatedAt time.Time
	ID        string
}

// PhaseQuery describes one recency-ordered slice of a phase
type PhaseQuery struct {
	// Snapshot is the traversal start time. A collage belongs to PhaseSeen
	// iff the viewer viewed it before Snapshot.
	Snapshot time.Time
	Scope    *Scope
	After    *Watermark
	ViewerID string
	Phase    Phase
	Limit    int
}

// IDPage is one page of collage IDs, unseen first then seen
type IDPage struct {
	Cursor      *string
	IDs         []string
	UnseenCount int
	SeenCount   int
	HasNextPage bool
}

// GetFeedRequest represents input for fetching the main feed
type GetFeedRequest struct {
	Cursor   *string `json:"cursor,omitempty"`
	ViewerID string  `json:"-"` // Extracted from auth, not from query params
	Limit    int     `json:"limit"`
}

// CollageRef is the minimal form of a feed entry
type CollageRef struct {
	ID string `json:"_id"`
}

// FeedIDsResponse is a page of bare collage references
type FeedIDsResponse struct {
	NextCursor  *string      `json:"nextCursor"`
	Collages    []CollageRef `json:"collages"`
	HasNextPage bool         `json:"hasNextPage"`
}

// FeedResponse is a page of hydrated collages
type FeedResponse struct {
	NextCursor  *string          `json:"nextCursor"`
	Collages    []*DisplayRecord `json:"collages"`
	HasNextPage bool             `json:"hasNextPage"`
}

// DisplayRecord is a collage hydrated for display to one viewer
type DisplayRecord struct {
	CreatedAt       time.Time         `json:"createdAt"`
	Author          *users.AuthorView `json:"author"`
	ID              string            `json:"_id"`
	Caption         string            `json:"caption,omitempty"`
	MediaURLs       []string          `json:"mediaUrls"`
	Participants    []string          `json:"participants,omitempty"`
	Stats           collages.Stats    `json:"stats"`
	Viewer          ViewerFlags       `json:"viewer"`
	HasParticipants bool              `json:"hasParticipants"`
}

// ViewerFlags are the viewer's interactions with a collage
type ViewerFlags struct {
	IsLikedByViewer    bool `json:"isLikedByViewer"`
	IsRepostedByViewer bool `json:"isRepostedByViewer"`
	IsSavedByViewer    bool `json:"isSavedByViewer"`
}

// CollageDetail is the response for opening a single collage directly
type CollageDetail struct {
	Collage                 *DisplayRecord `json:"collage"`
	IsLikedByCurrentUser    bool           `json:"isLikedByCurrentUser"`
	IsRepostedByCurrentUser bool           `json:"isRepostedByCurrentUser"`
	IsSavedByCurrentUser    bool           `json:"isSavedByCurrentUser"`
	HasParticipants         bool           `json:"hasParticipants"`
}
