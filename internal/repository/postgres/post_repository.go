package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"postly/internal/domain"
	"postly/internal/repository"
)

const createPostsTable = `
CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	blob_url TEXT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

const createPostsUserIndex = `CREATE INDEX IF NOT EXISTS idx_posts_user_created ON posts (user_id, created_at DESC)`

const selectPosts = `
SELECT p.id, p.user_id, p.text, p.blob_url, p.created_at,
	u.id, u.email, u.first_name, u.last_name, u.birthday, u.created_at
FROM posts p
JOIN users u ON u.id = p.user_id
`

type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) repository.PostRepository {
	return &PostRepository{pool: pool}
}

func (r *PostRepository) Init(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createPostsTable); err != nil {
		return fmt.Errorf("create posts table: %w", err)
	}
	if _, err := r.pool.Exec(ctx, createPostsUserIndex); err != nil {
		return fmt.Errorf("create posts index: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO posts (id, user_id, text, blob_url, created_at)
VALUES ($1, $2, $3, $4, $5)`,
		post.ID, post.UserID, post.Text, post.MediaRef, post.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (r *PostRepository) Get(ctx context.Context, id string) (*domain.Post, error) {
	return scanPost(r.pool.QueryRow(ctx, selectPosts+`WHERE p.id = $1`, id))
}

func (r *PostRepository) List(ctx context.Context, page repository.Page) ([]domain.Post, error) {
	return r.query(ctx, selectPosts+`
ORDER BY p.created_at DESC, p.id DESC
LIMIT $1 OFFSET $2`, page.Limit, page.Skip)
}

func (r *PostRepository) ListByUser(ctx context.Context, userID string, page repository.Page) ([]domain.Post, error) {
	return r.query(ctx, selectPosts+`
WHERE p.user_id = $1
ORDER BY p.created_at DESC, p.id DESC
LIMIT $2 OFFSET $3`, userID, page.Limit, page.Skip)
}

func (r *PostRepository) ListWithMedia(ctx context.Context) ([]domain.Post, error) {
	return r.query(ctx, selectPosts+`
WHERE p.blob_url IS NOT NULL
ORDER BY p.created_at ASC`)
}

func (r *PostRepository) UpdateText(ctx context.Context, id, text string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE posts SET text = $1 WHERE id = $2`, text, id)
	if err != nil {
		return fmt.Errorf("update post text: %w", err)
	}
	return expectOneRow(tag, "update post text")
}

func (r *PostRepository) SetMedia(ctx context.Context, id string, ref *string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE posts SET blob_url = $1 WHERE id = $2`, ref, id)
	if err != nil {
		return fmt.Errorf("update post media: %w", err)
	}
	return expectOneRow(tag, "update post media")
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return expectOneRow(tag, "delete post")
}

func (r *PostRepository) query(ctx context.Context, query string, args ...any) ([]domain.Post, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := []domain.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

func scanPost(row pgx.Row) (*domain.Post, error) {
	var (
		post  domain.Post
		owner domain.User
	)
	if err := row.Scan(
		&post.ID,
		&post.UserID,
		&post.Text,
		&post.MediaRef,
		&post.CreatedAt,
		&owner.ID,
		&owner.Email,
		&owner.FirstName,
		&owner.LastName,
		&owner.Birthday,
		&owner.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("post: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	post.CreatedAt = post.CreatedAt.UTC()
	owner.Birthday = owner.Birthday.UTC()
	owner.CreatedAt = owner.CreatedAt.UTC()
	post.Owner = &owner
	return &post, nil
}

func expectOneRow(tag pgconn.CommandTag, op string) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return nil
}
