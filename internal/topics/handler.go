package topics

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"forum/internal/posts"
)

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func NewHandler(svc Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// GET /topics?title=&author=&pinned=&closed=&deleted=
func (h *Handler) List(c *gin.Context) {
	criteria, err := parseCriteria(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, posts.ErrorResponse{
			Success: false,
			Error:   err.Error(),
			Code:    "INVALID_REQUEST",
		})
		return
	}

	topics, err := h.svc.List(c.Request.Context(), criteria)
	if err != nil {
		h.respondError(c, err, "Failed to retrieve topics")
		return
	}
	c.JSON(http.StatusOK, topics)
}

// GET /topics/:id
// Counts a view and embeds the topic's posts.
func (h *Handler) Get(c *gin.Context) {
	id, ok := pathID(c, "id", "Invalid topic ID")
	if !ok {
		return
	}

	topic, err := h.svc.View(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to retrieve topic")
		return
	}
	c.JSON(http.StatusOK, topic)
}

// POST /topics
func (h *Handler) Create(c *gin.Context) {
	var req CreateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	topic, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "Failed to create topic")
		return
	}
	c.Header("Location", fmt.Sprintf("%s/%s", c.Request.URL.Path, topic.ID))
	c.JSON(http.StatusCreated, topic)
}

// PUT /topics/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := pathID(c, "id", "Invalid topic ID")
	if !ok {
		return
	}

	var req UpdateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	topic, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err, "Failed to update topic")
		return
	}
	c.JSON(http.StatusOK, topic)
}

// DELETE /topics/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id", "Invalid topic ID")
	if !ok {
		return
	}

	deleted, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to delete topic")
		return
	}
	if !deleted {
		h.respondError(c, ErrTopicNotFound, "")
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /topics/:id/pin
func (h *Handler) TogglePin(c *gin.Context) {
	id, ok := pathID(c, "id", "Invalid topic ID")
	if !ok {
		return
	}

	topic, err := h.svc.TogglePinned(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to pin topic")
		return
	}
	c.JSON(http.StatusOK, topic)
}

// POST /topics/:id/posts
func (h *Handler) AddPost(c *gin.Context) {
	id, ok := pathID(c, "id", "Invalid topic ID")
	if !ok {
		return
	}

	var req posts.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	post, err := h.svc.AddPost(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err, "Failed to add post")
		return
	}
	c.Header("Location", fmt.Sprintf("/api/v1/posts/%s", post.ID))
	c.JSON(http.StatusCreated, post)
}

// DELETE /topics/:id/posts/:postId
func (h *Handler) RemovePost(c *gin.Context) {
	id, ok := pathID(c, "id", "Invalid topic ID")
	if !ok {
		return
	}
	postID, ok := pathID(c, "postId", "Invalid post ID")
	if !ok {
		return
	}

	if err := h.svc.RemovePost(c.Request.Context(), id, postID); err != nil {
		h.respondError(c, err, "Failed to remove post")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) respondError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, ErrTopicNotFound):
		c.JSON(http.StatusNotFound, posts.ErrorResponse{
			Success: false,
			Error:   "Topic not found",
			Code:    "NOT_FOUND",
		})
	case errors.Is(err, posts.ErrPostNotFound):
		c.JSON(http.StatusNotFound, posts.ErrorResponse{
			Success: false,
			Error:   "Post not found",
			Code:    "NOT_FOUND",
		})
	case errors.Is(err, ErrTopicClosed):
		c.JSON(http.StatusConflict, posts.ErrorResponse{
			Success: false,
			Error:   "Topic is closed",
			Code:    "TOPIC_CLOSED",
		})
	default:
		h.logger.ErrorContext(c.Request.Context(), message, "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, posts.ErrorResponse{
			Success: false,
			Error:   message,
			Code:    "INTERNAL_ERROR",
		})
	}
}

func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusUnprocessableEntity, posts.ErrorResponse{
			Success: false,
			Error:   "Validation failed",
			Code:    "VALIDATION_FAILED",
			Details: verrs.Error(),
		})
		return
	}
	c.JSON(http.StatusBadRequest, posts.ErrorResponse{
		Success: false,
		Error:   "Invalid request body: " + err.Error(),
		Code:    "INVALID_REQUEST",
	})
}

func pathID(c *gin.Context, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, posts.ErrorResponse{
			Success: false,
			Error:   message,
			Code:    "INVALID_REQUEST",
		})
		return uuid.Nil, false
	}
	return id, true
}

func parseCriteria(c *gin.Context) (FilterCriteria, error) {
	var criteria FilterCriteria
	if v := c.Query("title"); v != "" {
		criteria.Title = &v
	}
	if v := c.Query("author"); v != "" {
		criteria.Author = &v
	}
	for name, dst := range map[string]**bool{
		"pinned":  &criteria.Pinned,
		"closed":  &criteria.Closed,
		"deleted": &criteria.Deleted,
	} {
		v := c.Query(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return FilterCriteria{}, fmt.Errorf("invalid %s: %q", name, v)
		}
		*dst = &b
	}
	return criteria, nil
}
