package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"postly/internal/domain"
	"postly/internal/repository"
)

const createPostsTable = `
CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	blob_url TEXT NULL,
	created_at DATETIME NOT NULL
);
`

const createPostsUserIndex = `CREATE INDEX IF NOT EXISTS idx_posts_user_created ON posts (user_id, created_at);`

const selectPosts = `
SELECT p.id, p.user_id, p.text, p.blob_url, p.created_at,
	u.id, u.email, u.first_name, u.last_name, u.birthday, u.created_at
FROM posts p
JOIN users u ON u.id = p.user_id
`

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) repository.PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPostsTable); err != nil {
		return fmt.Errorf("create posts table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createPostsUserIndex); err != nil {
		return fmt.Errorf("create posts index: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO posts (id, user_id, text, blob_url, created_at)
VALUES (?, ?, ?, ?, ?)`,
		post.ID,
		post.UserID,
		post.Text,
		nullString(post.MediaRef),
		post.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (r *PostRepository) Get(ctx context.Context, id string) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, selectPosts+`WHERE p.id = ?`, id)
	return scanPost(row)
}

func (r *PostRepository) List(ctx context.Context, page repository.Page) ([]domain.Post, error) {
	return r.query(ctx, selectPosts+`
ORDER BY p.created_at DESC, p.rowid DESC
LIMIT ? OFFSET ?`, page.Limit, page.Skip)
}

func (r *PostRepository) ListByUser(ctx context.Context, userID string, page repository.Page) ([]domain.Post, error) {
	return r.query(ctx, selectPosts+`
WHERE p.user_id = ?
ORDER BY p.created_at DESC, p.rowid DESC
LIMIT ? OFFSET ?`, userID, page.Limit, page.Skip)
}

func (r *PostRepository) ListWithMedia(ctx context.Context) ([]domain.Post, error) {
	return r.query(ctx, selectPosts+`
WHERE p.blob_url IS NOT NULL
ORDER BY p.created_at ASC`)
}

func (r *PostRepository) UpdateText(ctx context.Context, id, text string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE posts SET text = ? WHERE id = ?`, text, id)
	if err != nil {
		return fmt.Errorf("update post text: %w", err)
	}
	return expectOneRow(res, "update post text")
}

func (r *PostRepository) SetMedia(ctx context.Context, id string, ref *string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE posts SET blob_url = ? WHERE id = ?`, nullString(ref), id)
	if err != nil {
		return fmt.Errorf("update post media: %w", err)
	}
	return expectOneRow(res, "update post media")
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return expectOneRow(res, "delete post")
}

func (r *PostRepository) query(ctx context.Context, query string, args ...any) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
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

func scanPost(scanner interface {
	Scan(dest ...any) error
}) (*domain.Post, error) {
	var (
		post    domain.Post
		owner   domain.User
		blobURL sql.NullString
	)

	if err := scanner.Scan(
		&post.ID,
		&post.UserID,
		&post.Text,
		&blobURL,
		&post.CreatedAt,
		&owner.ID,
		&owner.Email,
		&owner.FirstName,
		&owner.LastName,
		&owner.Birthday,
		&owner.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}

	if blobURL.Valid {
		v := blobURL.String
		post.MediaRef = &v
	}
	post.CreatedAt = post.CreatedAt.UTC()
	owner.Birthday = owner.Birthday.UTC()
	owner.CreatedAt = owner.CreatedAt.UTC()
	post.Owner = &owner
	return &post, nil
}

func expectOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
