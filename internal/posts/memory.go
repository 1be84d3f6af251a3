package posts

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps posts in a map. It is the default backend and the one used
// by tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	posts map[uuid.UUID]Post
	now   func() time.Time
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		posts: make(map[uuid.UUID]Post),
		now:   time.Now,
	}
}

func (r *MemoryRepository) List(_ context.Context) ([]Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Post, 0, len(r.posts))
	for _, p := range r.posts {
		out = append(out, p.Clone())
	}
	// Map iteration order is random; hand out a deterministic snapshot.
	DefaultSort.Sort(out)
	return out, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	c := p.Clone()
	return &c, nil
}

func (r *MemoryRepository) Save(_ context.Context, post *Post) (*Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := PrepareSave(post, r.now())
	r.posts[p.ID] = p
	c := p.Clone()
	return &c, nil
}

func (r *MemoryRepository) DeleteByID(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return false, nil
	}
	delete(r.posts, id)
	return true, nil
}

func (r *MemoryRepository) IncrementLikes(_ context.Context, id uuid.UUID) (bool, error) {
	return r.adjustLikes(id, 1), nil
}

func (r *MemoryRepository) DecrementLikes(_ context.Context, id uuid.UUID) (bool, error) {
	return r.adjustLikes(id, -1), nil
}

func (r *MemoryRepository) adjustLikes(id uuid.UUID, delta int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]
	if !ok || p.Likes+delta < 0 {
		return false
	}
	p.Likes += delta
	p.UpdatedAt = stamp(p.UpdatedAt, r.now())
	r.posts[p.ID] = p
	return true
}
