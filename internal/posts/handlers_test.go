package posts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (*gin.Engine, *MemoryRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := NewMemoryRepository()
	handler := NewHandler(NewService(repo, Options{}), nil)

	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"), handler)
	return r, repo
}

func do(r http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHandler_ListPosts(t *testing.T) {
	r, repo := setupRouter(t)
	for i := 0; i < 25; i++ {
		seed(t, repo, fixture("post", i, time.Duration(i)*time.Minute))
	}

	w := do(r, http.MethodGet, "/api/v1/posts?page=2&size=10&sort=likes,asc", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	page := decodeBody[Page[Post]](t, w)
	assert.Len(t, page.Content, 5)
	assert.Equal(t, 20, page.Content[0].Likes)
	assert.Equal(t, "likes,asc", page.Sort)
	assert.Equal(t, 3, page.TotalPages)

	var raw struct {
		Links map[string]any `json:"links"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Contains(t, raw.Links, "next")
	assert.Nil(t, raw.Links["next"])
	assert.Equal(t, "/api/v1/posts?page=1&size=10&sort=likes%2Casc", raw.Links["prev"])
}

func TestHandler_ListPostsDefaults(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(r, http.MethodGet, "/api/v1/posts", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	page := decodeBody[Page[Post]](t, w)
	assert.Equal(t, 0, page.Page)
	assert.Equal(t, 20, page.Size)
	assert.Equal(t, "createdAt,desc", page.Sort)
	assert.NotNil(t, page.Content)
	assert.Empty(t, page.Content)
}

func TestHandler_ListPostsRejectsBadParams(t *testing.T) {
	r, _ := setupRouter(t)
	for _, query := range []string{
		"authorId=nope",
		"minLikes=lots",
		"createdAtFrom=2024-01-01",
		"page=-1",
		"size=0",
	} {
		w := do(r, http.MethodGet, "/api/v1/posts?"+query, "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestHandler_ListPostsFilters(t *testing.T) {
	r, repo := setupRouter(t)
	seed(t, repo, fixture("Go tips", 1, 0), fixture("Rust tips", 8, time.Minute), fixture("GO modules", 9, 2*time.Minute))

	w := do(r, http.MethodGet, "/api/v1/posts?titleContains=go&minLikes=5&createdAtFrom=2024-03-01T14:00:00%2B02:00", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	page := decodeBody[Page[Post]](t, w)
	assert.Equal(t, []string{"GO modules"}, titles(page.Content))
}

func TestHandler_CreatePost(t *testing.T) {
	r, _ := setupRouter(t)
	author := uuid.New()

	w := do(r, http.MethodPost, "/api/v1/posts", "application/json",
		`{"authorId":"`+author.String()+`","title":"Hello","content":"World"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	post := decodeBody[Post](t, w)
	assert.Equal(t, author, post.AuthorID)
	assert.Equal(t, "/api/v1/posts/"+post.ID.String(), w.Header().Get("Location"))
}

func TestHandler_CreatePostValidation(t *testing.T) {
	r, _ := setupRouter(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing author", `{"title":"t","content":"c"}`, http.StatusUnprocessableEntity},
		{"blank title", `{"authorId":"` + uuid.NewString() + `","title":"   ","content":"c"}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"title":`, http.StatusBadRequest},
		{"bad uuid", `{"authorId":"x","title":"t","content":"c"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/v1/posts", "application/json", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestHandler_GetPost(t *testing.T) {
	r, repo := setupRouter(t)
	stored := seed(t, repo, fixture("title", 0, 0))[0]

	w := do(r, http.MethodGet, "/api/v1/posts/"+stored.ID.String(), "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/v1/posts/"+uuid.NewString(), "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeBody[ErrorResponse](t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "NOT_FOUND", resp.Code)

	w = do(r, http.MethodGet, "/api/v1/posts/not-a-uuid", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ReplacePost(t *testing.T) {
	r, repo := setupRouter(t)
	stored := seed(t, repo, fixture("title", 0, 0))[0]

	w := do(r, http.MethodPut, "/api/v1/posts/"+stored.ID.String(), "application/json", `{"title":"new","content":"body"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "new", decodeBody[Post](t, w).Title)

	w = do(r, http.MethodPut, "/api/v1/posts/"+stored.ID.String(), "application/json", `{"title":"new"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(r, http.MethodPut, "/api/v1/posts/"+uuid.NewString(), "application/json", `{"title":"new","content":"body"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_PatchPost(t *testing.T) {
	r, repo := setupRouter(t)
	stored := seed(t, repo, fixture("title", 2, 0))[0]
	path := "/api/v1/posts/" + stored.ID.String()

	t.Run("json patch", func(t *testing.T) {
		w := do(r, http.MethodPatch, path, ContentTypeJSONPatch, `[{"op":"replace","path":"/title","value":"patched"}]`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "patched", decodeBody[Post](t, w).Title)
	})

	t.Run("merge patch with charset", func(t *testing.T) {
		w := do(r, http.MethodPatch, path, ContentTypeMergePatch+"; charset=utf-8", `{"content":"merged","likes":99}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		post := decodeBody[Post](t, w)
		assert.Equal(t, "merged", post.Content)
		assert.Equal(t, 2, post.Likes)
	})

	t.Run("failed test is a conflict", func(t *testing.T) {
		w := do(r, http.MethodPatch, path, ContentTypeJSONPatch, `[{"op":"test","path":"/title","value":"nope"}]`)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unappliable patch", func(t *testing.T) {
		w := do(r, http.MethodPatch, path, ContentTypeJSONPatch, `[{"op":"remove","path":"/missing"}]`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "PATCH_FAILED", decodeBody[ErrorResponse](t, w).Code)
	})

	t.Run("malformed patch document", func(t *testing.T) {
		w := do(r, http.MethodPatch, path, ContentTypeJSONPatch, `{"op":"add"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unsupported content type", func(t *testing.T) {
		w := do(r, http.MethodPatch, path, "text/plain", `title=x`)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("missing post", func(t *testing.T) {
		w := do(r, http.MethodPatch, "/api/v1/posts/"+uuid.NewString(), ContentTypeMergePatch, `{"title":"x"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	after, err := repo.GetByID(t.Context(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "patched", after.Title)
	assert.Equal(t, "merged", after.Content)
}

func TestHandler_DeletePost(t *testing.T) {
	r, repo := setupRouter(t)
	stored := seed(t, repo, fixture("title", 0, 0))[0]
	path := "/api/v1/posts/" + stored.ID.String()

	w := do(r, http.MethodDelete, path, "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodDelete, path, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_LikeUnlike(t *testing.T) {
	r, repo := setupRouter(t)
	stored := seed(t, repo, fixture("title", 0, 0))[0]
	path := "/api/v1/posts/" + stored.ID.String() + "/like"

	w := do(r, http.MethodPost, path, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeBody[Post](t, w).Likes)

	w = do(r, http.MethodDelete, path, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decodeBody[Post](t, w).Likes)

	w = do(r, http.MethodPost, "/api/v1/posts/"+uuid.NewString()+"/like", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
