package client

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	CreationDate time.Time `json:"creationDate"`
	Birthday     time.Time `json:"birthday"`
}

// Post as returned by the client. BlobURL is absolute or nil.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Text      string    `json:"text"`
	BlobURL   *string   `json:"blobUrl"`
	CreatedAt time.Time `json:"createdAt"`
	Owner     *User     `json:"owner,omitempty"`
}

type SignupRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
	Birthday  string `json:"birthday"`
}

type AuthToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type Message struct {
	Message string `json:"message"`
}

// Upload reports a stored attachment; BlobURL is absolute.
type Upload struct {
	Message string
	BlobURL string
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type postTextRequest struct {
	Text string `json:"text"`
}

type uploadPayload struct {
	Message string `json:"message"`
	BlobURL string `json:"blob_url"`
}

type errorPayload struct {
	Detail any `json:"detail"`
}
