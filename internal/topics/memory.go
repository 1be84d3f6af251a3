package topics

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	topics map[uuid.UUID]Topic
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		topics: make(map[uuid.UUID]Topic),
		now:    time.Now,
	}
}

func (r *MemoryRepository) List(_ context.Context) ([]Topic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Topic, 0, len(r.topics))
	for _, t := range r.topics {
		out = append(out, t.Clone())
	}
	Order(out)
	return out, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Topic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.topics[id]
	if !ok {
		return nil, ErrTopicNotFound
	}
	c := t.Clone()
	return &c, nil
}

func (r *MemoryRepository) Save(_ context.Context, topic *Topic) (*Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := prepareSave(topic, r.now())
	if existing, ok := r.topics[t.ID]; ok {
		t.ViewCount = existing.ViewCount
		t.ReplyCount = existing.ReplyCount
		t.LastPostAt = existing.LastPostAt
		t.CreatedAt = existing.CreatedAt
		if existing.UpdatedAt.After(t.UpdatedAt) {
			t.UpdatedAt = existing.UpdatedAt
		}
	}
	r.topics[t.ID] = t
	c := t.Clone()
	return &c, nil
}

func (r *MemoryRepository) DeleteByID(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.topics[id]; !ok {
		return false, nil
	}
	delete(r.topics, id)
	return true, nil
}

func (r *MemoryRepository) IncrementViews(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.topics[id]
	if !ok {
		return false, nil
	}
	t.ViewCount++
	r.topics[id] = t
	return true, nil
}

func (r *MemoryRepository) AdjustReplies(_ context.Context, id uuid.UUID, delta int, lastPostAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.topics[id]
	if !ok {
		return false, nil
	}
	t.ReplyCount = max(0, t.ReplyCount+delta)
	if lastPostAt != nil {
		at := *lastPostAt
		t.LastPostAt = &at
	}
	if now := r.now(); now.After(t.UpdatedAt) {
		t.UpdatedAt = now
	}
	r.topics[id] = t
	return true, nil
}
