package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports a dependency as down by returning an error.
type HealthCheck func(ctx context.Context) error

// HealthHandler answers 200 when every check passes and 503 otherwise, listing each
// dependency's status.
func HealthHandler(service string, checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]gin.H, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				deps[name] = gin.H{"status": "down", "error": err.Error()}
				continue
			}
			deps[name] = gin.H{"status": "up"}
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":       overall,
			"service":      service,
			"dependencies": deps,
		})
	}
}
