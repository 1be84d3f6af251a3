package posts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"forum/internal/jsonpatch"
)

// Content types accepted by PATCH /posts/:id.
const (
	ContentTypeJSONPatch  = "application/json-patch+json"
	ContentTypeMergePatch = "application/merge-patch+json"
)

const defaultPageSize = 20

// Handler handles HTTP requests for posts
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new posts handler
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// ListPosts handles GET /posts
func (h *Handler) ListPosts(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   err.Error(),
			Code:    "INVALID_REQUEST",
		})
		return
	}

	page, err := h.service.Query(c.Request.Context(), c.Request.URL.Path, q)
	if err != nil {
		h.respondError(c, err, "Failed to retrieve posts")
		return
	}

	c.JSON(http.StatusOK, page)
}

// CreatePost handles POST /posts
func (h *Handler) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	post, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "Failed to create post")
		return
	}

	c.Header("Location", fmt.Sprintf("%s/%s", c.Request.URL.Path, post.ID))
	c.JSON(http.StatusCreated, post)
}

// GetPost handles GET /posts/:id
func (h *Handler) GetPost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	post, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to retrieve post")
		return
	}

	c.JSON(http.StatusOK, post)
}

// ReplacePost handles PUT /posts/:id
func (h *Handler) ReplacePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	var req ReplacePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	post, err := h.service.Replace(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err, "Failed to replace post")
		return
	}

	c.JSON(http.StatusOK, post)
}

// PatchPost handles PATCH /posts/:id. The Content-Type selects the patch semantics.
func (h *Handler) PatchPost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Failed to read request body",
			Code:    "INVALID_REQUEST",
		})
		return
	}

	var post *Post
	switch c.ContentType() {
	case ContentTypeJSONPatch:
		patch, err := jsonpatch.DecodePatch(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Success: false,
				Error:   "Invalid JSON Patch document",
				Code:    "INVALID_REQUEST",
				Details: err.Error(),
			})
			return
		}
		post, err = h.service.PatchJSON(c.Request.Context(), id, patch)
		if err != nil {
			h.respondError(c, err, "Failed to patch post")
			return
		}

	case ContentTypeMergePatch, gin.MIMEJSON:
		var patch MergePatch
		if err := json.Unmarshal(body, &patch); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Success: false,
				Error:   "Invalid merge patch document",
				Code:    "INVALID_REQUEST",
				Details: err.Error(),
			})
			return
		}
		post, err = h.service.PatchMerge(c.Request.Context(), id, patch)
		if err != nil {
			h.respondError(c, err, "Failed to patch post")
			return
		}

	default:
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{
			Success: false,
			Error:   fmt.Sprintf("Unsupported content type %q", c.ContentType()),
			Code:    "UNSUPPORTED_MEDIA_TYPE",
			Details: "use " + ContentTypeJSONPatch + " or " + ContentTypeMergePatch,
		})
		return
	}

	c.JSON(http.StatusOK, post)
}

// DeletePost handles DELETE /posts/:id
func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to delete post")
		return
	}
	if !deleted {
		h.respondError(c, ErrPostNotFound, "")
		return
	}

	c.Status(http.StatusNoContent)
}

// LikePost handles POST /posts/:id/like
func (h *Handler) LikePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	post, err := h.service.Like(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to like post")
		return
	}

	c.JSON(http.StatusOK, post)
}

// UnlikePost handles DELETE /posts/:id/like
func (h *Handler) UnlikePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	post, err := h.service.Unlike(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to unlike post")
		return
	}

	c.JSON(http.StatusOK, post)
}

func (h *Handler) respondError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, ErrPostNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Success: false,
			Error:   "Post not found",
			Code:    "NOT_FOUND",
		})
	case errors.Is(err, jsonpatch.ErrTestFailed):
		c.JSON(http.StatusConflict, ErrorResponse{
			Success: false,
			Error:   "Patch test operation failed",
			Code:    "PATCH_TEST_FAILED",
			Details: err.Error(),
		})
	case errors.Is(err, ErrPatchFailed):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Success: false,
			Error:   "Patch could not be applied",
			Code:    "PATCH_FAILED",
			Details: err.Error(),
		})
	default:
		h.logger.ErrorContext(c.Request.Context(), message, "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   message,
			Code:    "INTERNAL_ERROR",
		})
	}
}

// respondBindError reports validation failures as 422 and unreadable bodies as 400.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Success: false,
			Error:   "Validation failed",
			Code:    "VALIDATION_FAILED",
			Details: verrs.Error(),
		})
		return
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Success: false,
		Error:   "Invalid request body: " + err.Error(),
		Code:    "INVALID_REQUEST",
	})
}

func postID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid post ID",
			Code:    "INVALID_REQUEST",
		})
		return uuid.Nil, false
	}
	return id, true
}

func parseListQuery(c *gin.Context) (ListQuery, error) {
	q := ListQuery{Size: defaultPageSize, Sort: c.Query("sort")}
	var err error

	if q.Criteria.AuthorID, err = optionalUUID(c, "authorId"); err != nil {
		return q, err
	}
	if q.Criteria.TopicID, err = optionalUUID(c, "topicId"); err != nil {
		return q, err
	}
	if v := c.Query("titleContains"); v != "" {
		q.Criteria.TitleContains = &v
	}
	if v := c.Query("minLikes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, fmt.Errorf("invalid minLikes %q", v)
		}
		q.Criteria.MinLikes = &n
	}
	if q.Criteria.CreatedAtFrom, err = optionalTime(c, "createdAtFrom"); err != nil {
		return q, err
	}
	if q.Criteria.CreatedAtTo, err = optionalTime(c, "createdAtTo"); err != nil {
		return q, err
	}

	if v := c.Query("page"); v != "" {
		if q.Page, err = strconv.Atoi(v); err != nil || q.Page < 0 {
			return q, fmt.Errorf("invalid page %q", v)
		}
	}
	if v := c.Query("size"); v != "" {
		if q.Size, err = strconv.Atoi(v); err != nil || q.Size < 1 {
			return q, fmt.Errorf("invalid size %q", v)
		}
	}
	return q, nil
}

func optionalUUID(c *gin.Context, name string) (*uuid.UUID, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", name, v)
	}
	return &id, nil
}

func optionalTime(c *gin.Context, name string) (*time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: expected RFC 3339 date-time with offset", name, v)
	}
	return &t, nil
}
