package users

import (
	"time"
)

// User represents an account that can author collages and read the feed
type User struct {
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	ID          string    `json:"id" db:"id"`
	Handle      string    `json:"handle" db:"handle"`
	DisplayName string    `json:"displayName,omitempty" db:"display_name"`
	AvatarURL   string    `json:"avatarUrl,omitempty" db:"avatar_url"`
}

// AuthorView is the author summary attached to hydrated feed records
type AuthorView struct {
	DisplayName *string `json:"displayName,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
	ID          string  `json:"_id"`
	Handle      string  `json:"handle"`
}

// ToAuthorView builds the author summary for a user
func (u *User) ToAuthorView() *AuthorView {
	view := &AuthorView{
		ID:     u.ID,
		Handle: u.Handle,
	}
	if u.DisplayName != "" {
		name := u.DisplayName
		view.DisplayName = &name
	}
	if u.AvatarURL != "" {
		avatar := u.AvatarURL
		view.Avatar = &avatar
	}
	return view
}
