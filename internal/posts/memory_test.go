package posts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_SaveAssignsIdentity(t *testing.T) {
	repo := NewMemoryRepository()
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	saved, err := repo.Save(context.Background(), &Post{AuthorID: uuid.New(), Title: "t", Content: "c"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)
	assert.Equal(t, fixed, saved.CreatedAt)
	assert.Equal(t, fixed, saved.UpdatedAt)

	later := fixed.Add(time.Minute)
	repo.now = func() time.Time { return later }
	saved.Title = "changed"
	resaved, err := repo.Save(context.Background(), saved)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, resaved.ID)
	assert.Equal(t, fixed, resaved.CreatedAt)
	assert.Equal(t, later, resaved.UpdatedAt)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	topic := uuid.New()
	saved, err := repo.Save(context.Background(), &Post{Title: "t", TopicID: &topic})
	require.NoError(t, err)

	got, err := repo.GetByID(context.Background(), saved.ID)
	require.NoError(t, err)
	got.Title = "mutated"
	*got.TopicID = uuid.New()

	again, err := repo.GetByID(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", again.Title)
	assert.Equal(t, topic, *again.TopicID)
}

func TestMemoryRepository_DeleteAndLikes(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	saved, err := repo.Save(ctx, &Post{Title: "t"})
	require.NoError(t, err)

	ok, err := repo.DecrementLikes(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, ok, "likes never drop below zero")

	ok, err = repo.IncrementLikes(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IncrementLikes(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err := repo.DeleteByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = repo.GetByID(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestMemoryRepository_ConcurrentLikes(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	saved, err := repo.Save(ctx, &Post{Title: "t"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.IncrementLikes(ctx, saved.ID)
		}()
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Likes)
}
