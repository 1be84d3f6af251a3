package posts_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forum/internal/database/dbtest"
	"forum/internal/posts"
)

func TestSQLRepository(t *testing.T) {
	db := dbtest.StartPostgres(t)
	repo := posts.NewRepository(db)
	ctx := context.Background()

	topic := uuid.New()
	saved, err := repo.Save(ctx, &posts.Post{
		AuthorID: uuid.New(),
		TopicID:  &topic,
		Title:    "hello",
		Content:  "world",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, "hello", got.Title)
		require.NotNil(t, got.TopicID)
		assert.Equal(t, topic, *got.TopicID)

		_, err = repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, posts.ErrPostNotFound)
	})

	t.Run("upsert keeps created at", func(t *testing.T) {
		update := *saved
		update.Title = "renamed"
		update.TopicID = nil
		update.CreatedAt = saved.CreatedAt.Add(time.Hour)

		got, err := repo.Save(ctx, &update)
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Title)
		assert.Nil(t, got.TopicID)
		assert.WithinDuration(t, saved.CreatedAt, got.CreatedAt, time.Millisecond)
		assert.False(t, got.UpdatedAt.Before(saved.UpdatedAt.Truncate(time.Microsecond)))
	})

	t.Run("likes", func(t *testing.T) {
		ok, err := repo.DecrementLikes(ctx, saved.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.IncrementLikes(ctx, saved.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Likes)
	})

	t.Run("list and delete", func(t *testing.T) {
		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)

		deleted, err := repo.DeleteByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.DeleteByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}
