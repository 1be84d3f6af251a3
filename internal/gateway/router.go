// Package gateway implements the API Gateway: it discovers healthy forum service
// instances in Consul and forwards the public API to them.
package gateway

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"forum/internal/consul"
	"forum/internal/server"
)

// Options configures SetupRouter.
type Options struct {
	Upstream       string
	Logger         *slog.Logger
	AllowedOrigins []string
	Checks         map[string]server.HealthCheck
}

// SetupRouter configures and returns the gateway router
func SetupRouter(discovery consul.ServiceDiscovery, opts Options) *gin.Engine {
	r := server.NewRouter(server.RouterOptions{
		ServiceName:    "api-gateway",
		Logger:         opts.Logger,
		AllowedOrigins: opts.AllowedOrigins,
		Checks:         opts.Checks,
	})

	proxy := NewProxyHandler(discovery, opts.Logger).ProxyRequest(opts.Upstream)

	api := r.Group("/api/v1")
	{
		// Routes like /api/v1/posts/* -> forum-service/api/v1/posts/*
		api.Any("/posts", proxy)
		api.Any("/posts/*path", proxy)
		api.Any("/topics", proxy)
		api.Any("/topics/*path", proxy)
	}

	return r
}
