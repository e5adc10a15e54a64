package http

import (
	"time"

	"postly/internal/domain"
)

type UserResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	CreationDate string `json:"creationDate"`
	Birthday     string `json:"birthday"`
}

// PostResponse carries the media reference as stored: a bare file name that
// clients resolve under /posts/media/.
type PostResponse struct {
	ID        string        `json:"id"`
	UserID    string        `json:"userId"`
	Text      string        `json:"text"`
	BlobURL   *string       `json:"blobUrl"`
	CreatedAt string        `json:"createdAt"`
	Owner     *UserResponse `json:"owner,omitempty"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type UploadResponse struct {
	Message string `json:"message"`
	BlobURL string `json:"blob_url"`
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		CreationDate: user.CreatedAt.UTC().Format(time.RFC3339),
		Birthday:     user.Birthday.UTC().Format(time.RFC3339),
	}
}

func postToResponse(post domain.Post) PostResponse {
	resp := PostResponse{
		ID:        post.ID,
		UserID:    post.UserID,
		Text:      post.Text,
		CreatedAt: post.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if post.HasMedia() {
		v := *post.MediaRef
		resp.BlobURL = &v
	}
	if post.Owner != nil {
		owner := userToResponse(*post.Owner)
		resp.Owner = &owner
	}
	return resp
}

func postsToResponse(posts []domain.Post) []PostResponse {
	resp := make([]PostResponse, len(posts))
	for i := range posts {
		resp[i] = postToResponse(posts[i])
	}
	return resp
}
