// Package server builds the gin engine and http.Server shared by the forum service and
// the gateway: request ids, structured request logs, CORS, tracing, Prometheus metrics
// and health reporting.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Config holds server configuration
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// RouterOptions configures NewRouter.
type RouterOptions struct {
	ServiceName    string
	Logger         *slog.Logger
	AllowedOrigins []string
	// Checks are reported by GET /health.
	Checks map[string]HealthCheck
}

// NewRouter returns an engine with the shared middleware chain, GET /health and
// GET /metrics already mounted.
func NewRouter(opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(otelgin.Middleware(opts.ServiceName))
	r.Use(LoggingMiddleware(logger))
	r.Use(MetricsMiddleware())
	r.Use(CORSMiddleware(opts.AllowedOrigins))

	r.GET("/health", HealthHandler(opts.ServiceName, opts.Checks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// New configures the HTTP server
func New(cfg Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
