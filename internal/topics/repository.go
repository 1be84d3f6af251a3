package topics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"forum/internal/database"
)

var (
	ErrTopicNotFound = errors.New("topic not found")
	ErrTopicClosed   = errors.New("topic is closed")
)

// Repository stores topics. Save never touches the view and reply counters or
// lastPostAt of an existing topic; those only change through IncrementViews and
// AdjustReplies.
type Repository interface {
	List(ctx context.Context) ([]Topic, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Topic, error)
	Save(ctx context.Context, topic *Topic) (*Topic, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
	IncrementViews(ctx context.Context, id uuid.UUID) (bool, error)
	// AdjustReplies adds delta to the reply counter, flooring at zero. A non-nil
	// lastPostAt replaces the stored one.
	AdjustReplies(ctx context.Context, id uuid.UUID, delta int, lastPostAt *time.Time) (bool, error)
}

func prepareSave(topic *Topic, now time.Time) Topic {
	t := topic.Clone()
	t.Posts = nil
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Author == "" {
		t.Author = DefaultAuthor
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if now.After(t.UpdatedAt) {
		t.UpdatedAt = now
	}
	return t
}

const topicColumns = `id, title, description, author, view_count, reply_count, pinned, closed, tags, deleted, last_post_at, created_at, updated_at`

type SQLRepository struct {
	db  database.Service
	now func() time.Time
}

func NewRepository(db database.Service) *SQLRepository {
	return &SQLRepository{db: db, now: time.Now}
}

func (r *SQLRepository) List(ctx context.Context) ([]Topic, error) {
	rows, err := r.db.Query(ctx, `SELECT `+topicColumns+` FROM topics ORDER BY pinned DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query topics: %w", err)
	}
	defer rows.Close()

	out := []Topic{}
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate topics: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id uuid.UUID) (*Topic, error) {
	t, err := scanTopic(r.db.QueryRow(ctx, `SELECT `+topicColumns+` FROM topics WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTopicNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	return t, nil
}

func (r *SQLRepository) Save(ctx context.Context, topic *Topic) (*Topic, error) {
	t := prepareSave(topic, r.now())

	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}

	query := `
		INSERT INTO topics (` + topicColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			title       = EXCLUDED.title,
			description = EXCLUDED.description,
			author      = EXCLUDED.author,
			pinned      = EXCLUDED.pinned,
			closed      = EXCLUDED.closed,
			tags        = EXCLUDED.tags,
			deleted     = EXCLUDED.deleted,
			updated_at  = GREATEST(topics.updated_at, EXCLUDED.updated_at)
		RETURNING ` + topicColumns

	saved, err := scanTopic(r.db.QueryRow(ctx, query,
		t.ID, t.Title, t.Description, t.Author, t.ViewCount, t.ReplyCount,
		t.Pinned, t.Closed, string(tags), t.Deleted, nullTime(t.LastPostAt), t.CreatedAt, t.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to save topic: %w", err)
	}
	return saved, nil
}

func (r *SQLRepository) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exec(ctx, `DELETE FROM topics WHERE id = $1`, id)
}

func (r *SQLRepository) IncrementViews(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exec(ctx, `UPDATE topics SET view_count = view_count + 1 WHERE id = $1`, id)
}

func (r *SQLRepository) AdjustReplies(ctx context.Context, id uuid.UUID, delta int, lastPostAt *time.Time) (bool, error) {
	query := `
		UPDATE topics SET
			reply_count  = GREATEST(0, reply_count + $2),
			last_post_at = COALESCE($3, last_post_at),
			updated_at   = GREATEST(updated_at, $4)
		WHERE id = $1`
	return r.exec(ctx, query, id, delta, nullTime(lastPostAt), r.now())
}

func (r *SQLRepository) exec(ctx context.Context, query string, args ...any) (bool, error) {
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update topic: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTopic(row rowScanner) (*Topic, error) {
	var (
		t           Topic
		description sql.NullString
		tags        []byte
		lastPostAt  sql.NullTime
	)
	err := row.Scan(
		&t.ID,
		&t.Title,
		&description,
		&t.Author,
		&t.ViewCount,
		&t.ReplyCount,
		&t.Pinned,
		&t.Closed,
		&tags,
		&t.Deleted,
		&lastPostAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Description = description.String
	t.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &t.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	if lastPostAt.Valid {
		at := lastPostAt.Time
		t.LastPostAt = &at
	}
	return &t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
