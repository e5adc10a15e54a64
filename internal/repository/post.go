package repository

import (
	"context"

	"postly/internal/domain"
)

// Page selects a window of a post listing.
type Page struct {
	Skip  int
	Limit int
}

// PostRepository exposes persistence operations for posts. Listings are
// newest first and carry the owner summary.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post) error
	Get(ctx context.Context, id string) (*domain.Post, error)
	List(ctx context.Context, page Page) ([]domain.Post, error)
	ListByUser(ctx context.Context, userID string, page Page) ([]domain.Post, error)
	ListWithMedia(ctx context.Context) ([]domain.Post, error)
	UpdateText(ctx context.Context, id, text string) error
	SetMedia(ctx context.Context, id string, ref *string) error
	Delete(ctx context.Context, id string) error
}
