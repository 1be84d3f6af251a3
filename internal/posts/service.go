package posts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"forum/internal/jsonpatch"
)

// Event types published on every post mutation.
const (
	EventCreated  = "post.created"
	EventReplaced = "post.replaced"
	EventPatched  = "post.patched"
	EventDeleted  = "post.deleted"
	EventLiked    = "post.liked"
	EventUnliked  = "post.unliked"
)

// Event is the payload published for a post mutation.
type Event struct {
	Type       string     `json:"type"`
	PostID     uuid.UUID  `json:"postId"`
	AuthorID   uuid.UUID  `json:"authorId"`
	TopicID    *uuid.UUID `json:"topicId,omitempty"`
	Likes      int        `json:"likes"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// EventPublisher delivers events to a message broker.
type EventPublisher interface {
	Publish(topic, key string, event any) error
}

// Options carries the optional collaborators of a Service.
type Options struct {
	Cache       *redis.Client
	Events      EventPublisher
	EventsTopic string
	Logger      *slog.Logger
	Now         func() time.Time
}

// Service handles business logic for posts with caching
type Service struct {
	repo        Repository
	cache       *cache
	events      EventPublisher
	eventsTopic string
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a new posts service. Zero Options give an uncached service that
// publishes nothing and logs through slog.Default.
func NewService(repo Repository, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	topic := opts.EventsTopic
	if topic == "" {
		topic = "post-events"
	}
	return &Service{
		repo:        repo,
		cache:       &cache{client: opts.Cache, logger: logger},
		events:      opts.Events,
		eventsTopic: topic,
		logger:      logger,
		now:         now,
	}
}

// Query filters, sorts and paginates posts. base is the path the listing is served
// at and is used to build navigation links.
func (s *Service) Query(ctx context.Context, base string, q ListQuery) (*Page[Post], error) {
	links := BuildLinks(base, q, 0)
	key := pageKey(*links["self"])

	var cached Page[Post]
	if s.cache.get(ctx, key, &cached) {
		return &cached, nil
	}

	start := time.Now()
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	matched := Filter(all, q.Criteria)
	spec := ParseSort(q.Sort)
	spec.Sort(matched)
	content, totalPages := Paginate(matched, q.Page, q.Size)

	queryDuration.Observe(time.Since(start).Seconds())
	queryResults.Observe(float64(len(matched)))

	page := &Page[Post]{
		Content:       content,
		Page:          q.Page,
		Size:          q.Size,
		TotalElements: int64(len(matched)),
		TotalPages:    totalPages,
		Sort:          spec.String(),
		Links:         BuildLinks(base, q, totalPages),
	}

	s.cache.set(ctx, key, page, pageTTL)
	return page, nil
}

// ListByTopic returns every post of a topic, newest first.
func (s *Service) ListByTopic(ctx context.Context, topicID uuid.UUID) ([]Post, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	matched := Filter(all, FilterCriteria{TopicID: &topicID})
	DefaultSort.Sort(matched)
	return matched, nil
}

// Get retrieves a post by ID with caching
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Post, error) {
	var cached Post
	if s.cache.get(ctx, postKey(id), &cached) {
		return &cached, nil
	}

	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.set(ctx, postKey(id), post, postTTL)
	return post, nil
}

// Create stores a new post with zero likes.
func (s *Service) Create(ctx context.Context, req CreatePostRequest) (*Post, error) {
	post := &Post{
		AuthorID: *req.AuthorID,
		TopicID:  req.TopicID,
		Title:    req.Title,
		Content:  req.Content,
	}
	saved, err := s.repo.Save(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	s.afterMutation(ctx, EventCreated, saved)
	return saved, nil
}

// Replace overwrites the editable fields of a post.
func (s *Service) Replace(ctx context.Context, id uuid.UUID, req ReplacePostRequest) (*Post, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.TopicID = req.TopicID
	existing.Title = req.Title
	existing.Content = req.Content
	existing.UpdatedAt = stamp(existing.UpdatedAt, s.now())

	saved, err := s.repo.Save(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("replace post: %w", err)
	}
	s.afterMutation(ctx, EventReplaced, saved)
	return saved, nil
}

// PatchJSON applies a structural patch. A rejected patch returns an error wrapping
// ErrPatchFailed and the stored post is not touched.
func (s *Service) PatchJSON(ctx context.Context, id uuid.UUID, patch jsonpatch.Patch) (*Post, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patched, err := ApplyJSONPatch(*existing, patch, s.now())
	if err != nil {
		patchesTotal.WithLabelValues("json-patch", "rejected").Inc()
		s.logger.InfoContext(ctx, "json patch rejected", "post_id", id, "error", err)
		return nil, err
	}

	saved, err := s.repo.Save(ctx, &patched)
	if err != nil {
		return nil, fmt.Errorf("save patched post: %w", err)
	}
	patchesTotal.WithLabelValues("json-patch", "applied").Inc()
	s.afterMutation(ctx, EventPatched, saved)
	return saved, nil
}

// PatchMerge applies a merge patch to topicId, title and content.
func (s *Service) PatchMerge(ctx context.Context, id uuid.UUID, patch MergePatch) (*Post, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patched := ApplyMergePatch(*existing, patch, s.now())
	saved, err := s.repo.Save(ctx, &patched)
	if err != nil {
		return nil, fmt.Errorf("save patched post: %w", err)
	}
	patchesTotal.WithLabelValues("merge-patch", "applied").Inc()
	s.afterMutation(ctx, EventPatched, saved)
	return saved, nil
}

// Delete removes a post. It reports false when there was nothing to delete.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return false, nil
		}
		return false, err
	}

	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete post: %w", err)
	}
	if deleted {
		s.afterMutation(ctx, EventDeleted, existing)
	}
	return deleted, nil
}

// Like adds one like to a post.
func (s *Service) Like(ctx context.Context, id uuid.UUID) (*Post, error) {
	ok, err := s.repo.IncrementLikes(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("like post: %w", err)
	}
	if !ok {
		return nil, ErrPostNotFound
	}
	return s.reload(ctx, EventLiked, id)
}

// Unlike removes one like from a post. A post without likes stays at zero.
func (s *Service) Unlike(ctx context.Context, id uuid.UUID) (*Post, error) {
	if _, err := s.repo.DecrementLikes(ctx, id); err != nil {
		return nil, fmt.Errorf("unlike post: %w", err)
	}
	return s.reload(ctx, EventUnliked, id)
}

func (s *Service) reload(ctx context.Context, eventType string, id uuid.UUID) (*Post, error) {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, eventType, post)
	return post, nil
}

// afterMutation invalidates caches and publishes the event. Failures here are logged
// and never fail the request that caused them.
func (s *Service) afterMutation(ctx context.Context, eventType string, post *Post) {
	mutationsTotal.WithLabelValues(eventType).Inc()
	s.cache.invalidate(ctx, post.ID)

	if s.events == nil {
		return
	}
	event := Event{
		Type:       eventType,
		PostID:     post.ID,
		AuthorID:   post.AuthorID,
		TopicID:    post.TopicID,
		Likes:      post.Likes,
		OccurredAt: s.now(),
	}
	if err := s.events.Publish(s.eventsTopic, post.ID.String(), event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish post event", "type", eventType, "post_id", post.ID, "error", err)
	}
}
