package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"forum/internal/database"
)

var ErrPostNotFound = errors.New("post not found")

// Repository stores posts. Implementations must make a single Save atomic per id and
// must hand out copies, never shared references.
type Repository interface {
	// List returns a snapshot of every stored post.
	List(ctx context.Context) ([]Post, error)
	// GetByID returns ErrPostNotFound when no post has the id.
	GetByID(ctx context.Context, id uuid.UUID) (*Post, error)
	// Save inserts or replaces a post. A nil ID and a zero CreatedAt are assigned;
	// UpdatedAt is always refreshed.
	Save(ctx context.Context, post *Post) (*Post, error)
	// DeleteByID reports whether a post was removed.
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
	// IncrementLikes reports whether the post exists.
	IncrementLikes(ctx context.Context, id uuid.UUID) (bool, error)
	// DecrementLikes never goes below zero and reports whether a like was removed.
	DecrementLikes(ctx context.Context, id uuid.UUID) (bool, error)
}

// PrepareSave returns the copy of post a backend should store: a nil ID and a zero
// CreatedAt are assigned and UpdatedAt is refreshed.
func PrepareSave(post *Post, now time.Time) Post {
	p := post.Clone()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = stamp(p.UpdatedAt, now)
	return p
}

const postColumns = `id, author_id, topic_id, title, content, likes, created_at, updated_at`

// SQLRepository handles all database operations for posts
type SQLRepository struct {
	db  database.Service
	now func() time.Time
}

// NewRepository creates a new posts repository
func NewRepository(db database.Service) *SQLRepository {
	return &SQLRepository{db: db, now: time.Now}
}

func (r *SQLRepository) List(ctx context.Context) ([]Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return posts, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id uuid.UUID) (*Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

func (r *SQLRepository) Save(ctx context.Context, post *Post) (*Post, error) {
	p := PrepareSave(post, r.now())

	query := `
		INSERT INTO posts (` + postColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			author_id  = EXCLUDED.author_id,
			topic_id   = EXCLUDED.topic_id,
			title      = EXCLUDED.title,
			content    = EXCLUDED.content,
			likes      = EXCLUDED.likes,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + postColumns

	saved, err := scanPost(r.db.QueryRow(ctx, query,
		p.ID, p.AuthorID, nullUUID(p.TopicID), p.Title, p.Content, p.Likes, p.CreatedAt, p.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to save post: %w", err)
	}
	return saved, nil
}

func (r *SQLRepository) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
}

func (r *SQLRepository) IncrementLikes(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exec(ctx, `UPDATE posts SET likes = likes + 1, updated_at = GREATEST(updated_at, $2) WHERE id = $1`, id, r.now())
}

func (r *SQLRepository) DecrementLikes(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exec(ctx, `UPDATE posts SET likes = GREATEST(0, likes - 1), updated_at = GREATEST(updated_at, $2) WHERE id = $1 AND likes > 0`, id, r.now())
}

func (r *SQLRepository) exec(ctx context.Context, query string, args ...any) (bool, error) {
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update post: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*Post, error) {
	var (
		post    Post
		topicID uuid.NullUUID
	)
	err := row.Scan(
		&post.ID,
		&post.AuthorID,
		&topicID,
		&post.Title,
		&post.Content,
		&post.Likes,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if topicID.Valid {
		id := topicID.UUID
		post.TopicID = &id
	}
	return &post, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
