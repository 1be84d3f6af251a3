package topics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"forum/internal/posts"
)

// PostService is the part of the posts service that topics depend on.
type PostService interface {
	Get(ctx context.Context, id uuid.UUID) (*posts.Post, error)
	Create(ctx context.Context, req posts.CreatePostRequest) (*posts.Post, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	ListByTopic(ctx context.Context, topicID uuid.UUID) ([]posts.Post, error)
}

type Service interface {
	List(ctx context.Context, criteria FilterCriteria) ([]Topic, error)
	// View counts one view and returns the topic with its posts.
	View(ctx context.Context, id uuid.UUID) (*Topic, error)
	Create(ctx context.Context, req CreateTopicRequest) (*Topic, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateTopicRequest) (*Topic, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	TogglePinned(ctx context.Context, id uuid.UUID) (*Topic, error)
	AddPost(ctx context.Context, id uuid.UUID, req posts.CreatePostRequest) (*posts.Post, error)
	RemovePost(ctx context.Context, id, postID uuid.UUID) error
}

type service struct {
	repo   Repository
	posts  PostService
	logger *slog.Logger
}

func NewService(repo Repository, postService PostService, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{repo: repo, posts: postService, logger: logger}
}

func (s *service) List(ctx context.Context, criteria FilterCriteria) ([]Topic, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	matched := Filter(all, criteria)
	Order(matched)
	return matched, nil
}

func (s *service) View(ctx context.Context, id uuid.UUID) (*Topic, error) {
	ok, err := s.repo.IncrementViews(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count topic view: %w", err)
	}
	if !ok {
		return nil, ErrTopicNotFound
	}
	topicViews.Inc()

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Posts, err = s.posts.ListByTopic(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list topic posts: %w", err)
	}
	return t, nil
}

func (s *service) Create(ctx context.Context, req CreateTopicRequest) (*Topic, error) {
	t := &Topic{
		Title:       req.Title,
		Description: req.Description,
		Author:      req.Author,
		Pinned:      req.Pinned != nil && *req.Pinned,
		Closed:      req.Closed != nil && *req.Closed,
		Tags:        CleanTags(req.Tags),
	}
	saved, err := s.repo.Save(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create topic: %w", err)
	}
	s.logger.InfoContext(ctx, "topic created", "topic_id", saved.ID, "author", saved.Author)
	return saved, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateTopicRequest) (*Topic, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	t.Title = req.Title
	t.Description = req.Description
	if req.Pinned != nil {
		t.Pinned = *req.Pinned
	}
	if req.Closed != nil {
		t.Closed = *req.Closed
	}
	if req.Tags != nil {
		t.Tags = CleanTags(req.Tags)
	}
	if req.Deleted != nil {
		t.Deleted = *req.Deleted
	}

	saved, err := s.repo.Save(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("update topic: %w", err)
	}
	return saved, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete topic: %w", err)
	}
	return deleted, nil
}

func (s *service) TogglePinned(ctx context.Context, id uuid.UUID) (*Topic, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Pinned = !t.Pinned

	saved, err := s.repo.Save(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("toggle pin: %w", err)
	}
	return saved, nil
}

// AddPost creates a post inside the topic and records it as the latest reply.
func (s *service) AddPost(ctx context.Context, id uuid.UUID, req posts.CreatePostRequest) (*posts.Post, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Closed {
		return nil, ErrTopicClosed
	}

	req.TopicID = &id
	post, err := s.posts.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	createdAt := post.CreatedAt
	if _, err := s.repo.AdjustReplies(ctx, id, 1, &createdAt); err != nil {
		return nil, fmt.Errorf("count topic reply: %w", err)
	}
	return post, nil
}

// RemovePost deletes a post of the topic. Posts that belong elsewhere are reported
// as not found.
func (s *service) RemovePost(ctx context.Context, id, postID uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return err
	}
	if post.TopicID == nil || *post.TopicID != id {
		return posts.ErrPostNotFound
	}

	deleted, err := s.posts.Delete(ctx, postID)
	if err != nil {
		return err
	}
	if !deleted {
		return posts.ErrPostNotFound
	}

	if _, err := s.repo.AdjustReplies(ctx, id, -1, nil); err != nil {
		return fmt.Errorf("uncount topic reply: %w", err)
	}
	return nil
}

