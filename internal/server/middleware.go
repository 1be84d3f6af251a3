package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id between the gateway, the forum service and
// clients.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware reuses an incoming request id or generates one. The id is put on
// the gin context, the response and the request itself so proxied calls keep it.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Request.Header.Set(RequestIDHeader, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)

		c.Next()
	}
}

// DefaultAllowedOrigin is the local frontend, allowed when no origins are configured.
const DefaultAllowedOrigin = "http://localhost:5173"

// CORSMiddleware allows the configured browser origins.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{DefaultAllowedOrigin}
	}
	return cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposeHeaders:    []string{"Location", RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// LoggingMiddleware logs all requests with structured attributes
func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		attrs := []any{
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", float64(latency.Microseconds()) / 1000,
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"response_size", max(c.Writer.Size(), 0),
		}

		if query := c.Request.URL.RawQuery; query != "" {
			attrs = append(attrs, "query", query)
		}

		// Set by the gateway proxy
		if upstream, exists := c.Get("upstream_service"); exists {
			attrs = append(attrs, "upstream_service", upstream)
		}

		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		ctx := c.Request.Context()
		switch {
		case status >= http.StatusInternalServerError:
			logger.ErrorContext(ctx, "Request failed - server error", attrs...)
		case status >= http.StatusBadRequest:
			logger.WarnContext(ctx, "Request failed - client error", attrs...)
		default:
			logger.InfoContext(ctx, "Request completed", attrs...)
		}
	}
}
