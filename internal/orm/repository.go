// Package orm is a gorm-backed posts.Repository sharing the posts table with the
// SQL repository.
package orm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"forum/internal/database"
	"forum/internal/posts"
)

type postRecord struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	AuthorID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	TopicID   *uuid.UUID `gorm:"type:uuid;index"`
	Title     string     `gorm:"size:200;not null"`
	Content   string     `gorm:"type:text;not null"`
	Likes     int        `gorm:"not null;default:0"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime:false"`
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime:false"`
}

func (postRecord) TableName() string { return "posts" }

func toRecord(p posts.Post) postRecord {
	return postRecord(p)
}

func (r postRecord) toPost() posts.Post {
	return posts.Post(r)
}

// PostRepository stores posts through gorm.
type PostRepository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ posts.Repository = (*PostRepository)(nil)

// Open wraps the pool of an existing database service in a gorm session.
func Open(db database.Service) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB()}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return gdb, nil
}

// NewPostRepository creates a gorm post repository.
func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db, now: time.Now}
}

func (r *PostRepository) List(ctx context.Context) ([]posts.Post, error) {
	var records []postRecord
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	out := make([]posts.Post, len(records))
	for i, rec := range records {
		out[i] = rec.toPost()
	}
	return out, nil
}

func (r *PostRepository) GetByID(ctx context.Context, id uuid.UUID) (*posts.Post, error) {
	var rec postRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, posts.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	p := rec.toPost()
	return &p, nil
}

func (r *PostRepository) Save(ctx context.Context, post *posts.Post) (*posts.Post, error) {
	rec := toRecord(posts.PrepareSave(post, r.now()))

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"author_id", "topic_id", "title", "content", "likes", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save post: %w", err)
	}
	// created_at is never overwritten by the upsert, read back the stored row
	return r.GetByID(ctx, rec.ID)
}

func (r *PostRepository) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&postRecord{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete post: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *PostRepository) IncrementLikes(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&postRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"likes":      gorm.Expr("likes + 1"),
			"updated_at": gorm.Expr("GREATEST(updated_at, ?)", r.now()),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to like post: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *PostRepository) DecrementLikes(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&postRecord{}).
		Where("id = ? AND likes > 0", id).
		Updates(map[string]any{
			"likes":      gorm.Expr("likes - 1"),
			"updated_at": gorm.Expr("GREATEST(updated_at, ?)", r.now()),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to unlike post: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
