package posts

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var registerValidators sync.Once

// RegisterValidators adds the custom binding tags used by request bodies to gin's
// validator. It is safe to call more than once.
func RegisterValidators() {
	registerValidators.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("notblank", validators.NotBlank)
		}
	})
}

// RegisterRoutes mounts the posts API under rg.
func RegisterRoutes(rg *gin.RouterGroup, handler *Handler) {
	RegisterValidators()

	postsGroup := rg.Group("/posts")
	{
		postsGroup.GET("", handler.ListPosts)              // GET /posts?authorId=&minLikes=&page=0&size=20&sort=likes,asc
		postsGroup.POST("", handler.CreatePost)            // POST /posts
		postsGroup.GET("/:id", handler.GetPost)            // GET /posts/:id
		postsGroup.PUT("/:id", handler.ReplacePost)        // PUT /posts/:id
		postsGroup.PATCH("/:id", handler.PatchPost)        // PATCH /posts/:id (json-patch or merge-patch)
		postsGroup.DELETE("/:id", handler.DeletePost)      // DELETE /posts/:id
		postsGroup.POST("/:id/like", handler.LikePost)     // POST /posts/:id/like
		postsGroup.DELETE("/:id/like", handler.UnlikePost) // DELETE /posts/:id/like
	}
}
