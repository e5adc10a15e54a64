package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"postly/internal/cache"
	"postly/internal/domain"
	"postly/internal/repository"
	"postly/internal/storage"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// MediaRemover accepts media keys that are no longer referenced by any post.
type MediaRemover interface {
	Enqueue(key string)
}

// MediaUpload is one file attached to a post.
type MediaUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// PostService coordinates post operations backed by repositories and media storage.
type PostService interface {
	Create(ctx context.Context, userID, text string) (*domain.Post, error)
	Get(ctx context.Context, id string) (*domain.Post, error)
	List(ctx context.Context, page repository.Page) ([]domain.Post, error)
	ListByUser(ctx context.Context, userID string, page repository.Page) ([]domain.Post, error)
	Update(ctx context.Context, userID, id, text string) (*domain.Post, error)
	Delete(ctx context.Context, userID, id string) error
	UploadMedia(ctx context.Context, userID, id string, upload MediaUpload) (string, error)
	OpenMedia(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error)
}

type PostServiceConfig struct {
	MaxMediaSize int64
	Cache        cache.FeedCache
	Remover      MediaRemover
}

type postService struct {
	posts    repository.PostRepository
	media    storage.Service
	feed     cache.FeedCache
	remover  MediaRemover
	maxMedia int64
	policy   *bluemonday.Policy
}

func NewPostService(posts repository.PostRepository, media storage.Service, cfg PostServiceConfig) PostService {
	if cfg.Cache == nil {
		cfg.Cache = cache.Noop{}
	}
	if cfg.MaxMediaSize <= 0 {
		cfg.MaxMediaSize = 10 << 20
	}
	return &postService{
		posts:    posts,
		media:    media,
		feed:     cfg.Cache,
		remover:  cfg.Remover,
		maxMedia: cfg.MaxMediaSize,
		policy:   bluemonday.StrictPolicy(),
	}
}

func (s *postService) Create(ctx context.Context, userID, text string) (*domain.Post, error) {
	text, err := s.cleanText(text)
	if err != nil {
		return nil, err
	}

	post := &domain.Post{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	s.feed.Invalidate(ctx)
	return s.Get(ctx, post.ID)
}

func (s *postService) Get(ctx context.Context, id string) (*domain.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return post, nil
}

func (s *postService) List(ctx context.Context, page repository.Page) ([]domain.Post, error) {
	page, err := normalizePage(page)
	if err != nil {
		return nil, err
	}
	cached, gen, ok := s.feed.Get(ctx, page.Skip, page.Limit)
	if ok {
		return cached, nil
	}
	posts, err := s.posts.List(ctx, page)
	if err != nil {
		return nil, err
	}
	s.feed.Set(ctx, gen, page.Skip, page.Limit, posts)
	return posts, nil
}

func (s *postService) ListByUser(ctx context.Context, userID string, page repository.Page) ([]domain.Post, error) {
	page, err := normalizePage(page)
	if err != nil {
		return nil, err
	}
	return s.posts.ListByUser(ctx, userID, page)
}

func (s *postService) Update(ctx context.Context, userID, id, text string) (*domain.Post, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	text, err := s.cleanText(text)
	if err != nil {
		return nil, err
	}
	if err := s.posts.UpdateText(ctx, id, text); err != nil {
		return nil, err
	}
	s.feed.Invalidate(ctx)
	return s.Get(ctx, id)
}

func (s *postService) Delete(ctx context.Context, userID, id string) error {
	post, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	s.feed.Invalidate(ctx)
	if post.HasMedia() {
		s.discard(*post.MediaRef)
	}
	return nil
}

func (s *postService) UploadMedia(ctx context.Context, userID, id string, upload MediaUpload) (string, error) {
	post, err := s.owned(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if upload.Size > s.maxMedia {
		return "", fmt.Errorf("%w: maximum size is %d bytes", ErrMediaTooLarge, s.maxMedia)
	}

	key := uuid.NewString()
	if ext := strings.ToLower(filepath.Ext(upload.Filename)); ext != "" && ext != "." {
		key += ext
	}

	// one byte past the limit proves a lying Content-Length
	body := io.LimitReader(upload.Body, s.maxMedia+1)
	counter := &countingReader{r: body}
	if err := s.media.Put(ctx, key, counter, upload.ContentType); err != nil {
		return "", err
	}
	if counter.n > s.maxMedia {
		s.discard(key)
		return "", fmt.Errorf("%w: maximum size is %d bytes", ErrMediaTooLarge, s.maxMedia)
	}

	if err := s.posts.SetMedia(ctx, id, &key); err != nil {
		s.discard(key)
		return "", err
	}
	s.feed.Invalidate(ctx)
	if post.HasMedia() {
		s.discard(*post.MediaRef)
	}
	return key, nil
}

func (s *postService) OpenMedia(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	rc, info, err := s.media.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			return nil, storage.ObjectInfo{}, fmt.Errorf("media %s: %w", key, ErrNotFound)
		}
		return nil, storage.ObjectInfo{}, err
	}
	return rc, info, nil
}

func (s *postService) owned(ctx context.Context, userID, id string) (*domain.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotOwner
		}
		return nil, err
	}
	if post.UserID != userID {
		return nil, ErrNotOwner
	}
	return post, nil
}

func (s *postService) discard(key string) {
	if s.remover != nil {
		s.remover.Enqueue(key)
	}
}

// cleanText strips markup but keeps plain text (including & and quotes) as typed.
func (s *postService) cleanText(text string) (string, error) {
	clean := html.UnescapeString(s.policy.Sanitize(text))
	if strings.TrimSpace(clean) == "" {
		return "", fmt.Errorf("%w: post text is required", ErrValidation)
	}
	if utf8.RuneCountInString(clean) > domain.MaxPostLength {
		return "", fmt.Errorf("%w: post text must be at most %d characters", ErrValidation, domain.MaxPostLength)
	}
	return clean, nil
}

func normalizePage(page repository.Page) (repository.Page, error) {
	if page.Skip < 0 || page.Limit < 0 {
		return page, fmt.Errorf("%w: skip and limit must not be negative", ErrValidation)
	}
	if page.Limit == 0 {
		page.Limit = DefaultPageLimit
	}
	if page.Limit > MaxPageLimit {
		page.Limit = MaxPageLimit
	}
	return page, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
