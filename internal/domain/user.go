package domain

import "time"

// User represents an account that can sign in and own posts.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Birthday     time.Time
	CreatedAt    time.Time
}
