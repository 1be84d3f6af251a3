package topics

import (
	"github.com/gin-gonic/gin"

	"forum/internal/posts"
)

func RegisterRoutes(rg *gin.RouterGroup, h *Handler) {
	posts.RegisterValidators()

	g := rg.Group("/topics")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/pin", h.TogglePin)
	g.POST("/:id/posts", h.AddPost)
	g.DELETE("/:id/posts/:postId", h.RemovePost)
}
