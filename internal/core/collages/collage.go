package collages

import (
	"time"

	"github.com/google/uuid"
)

// Collage is one feed-eligible post: an ordered set of media with a caption
type Collage struct {
	CreatedAt    time.Time  `json:"createdAt"`
	ID           string     `json:"_id"`
	AuthorID     string     `json:"authorId"`
	Caption      string     `json:"caption,omitempty"`
	Media        []MediaRef `json:"media"`
	Participants []string   `json:"participants,omitempty"`
	Stats        Stats      `json:"stats"`
	Archived     bool       `json:"archived"`
}

// MediaRef points at one image of a collage. URLs are served by the CDN,
// resizing happens there.
type MediaRef struct {
	URL      string `json:"url"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Position int    `json:"position"`
}

// Stats holds the denormalized interaction counters
type Stats struct {
	Likes    int `json:"likes"`
	Reposts  int `json:"reposts"`
	Saves    int `json:"saves"`
	Comments int `json:"comments"`
}

// ViewerState is the requesting user's relationship with a collage
type ViewerState struct {
	Liked    bool `json:"liked"`
	Reposted bool `json:"reposted"`
	Saved    bool `json:"saved"`
}

// HasParticipants reports whether anyone is tagged in the collage
func (c *Collage) HasParticipants() bool {
	return len(c.Participants) > 0
}

// MediaURLs returns the media URLs in display order
func (c *Collage) MediaURLs() []string {
	urls := make([]string, 0, len(c.Media))
	for _, m := range c.Media {
		urls = append(urls, m.URL)
	}
	return urls
}

// ValidateID checks that id is a well-formed collage ID
func ValidateID(id string) error {
	if id == "" {
		return &InvalidIDError{ID: id, Reason: "collage ID is required"}
	}
	if _, err := uuid.Parse(id); err != nil {
		return &InvalidIDError{ID: id, Reason: "must be a UUID"}
	}
	return nil
}
