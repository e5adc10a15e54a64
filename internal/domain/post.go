package domain

import "time"

// MaxPostLength bounds post text, counted in runes.
const MaxPostLength = 500

// Post is a short text entry with an optional media attachment.
type Post struct {
	ID        string
	UserID    string
	Text      string
	MediaRef  *string
	CreatedAt time.Time
	Owner     *User
}

// HasMedia reports whether the post references a stored media object.
func (p Post) HasMedia() bool {
	return p.MediaRef != nil && *p.MediaRef != ""
}
