package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRequestIDMiddleware_Generates(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/test", func(c *gin.Context) {
		// The id is also visible on the request for proxied calls
		if c.Request.Header.Get(RequestIDHeader) != c.GetString("request_id") {
			t.Errorf("Expected request header to carry the request id")
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("Expected X-Request-ID response header")
	}
}

func TestRequestIDMiddleware_ReusesIncoming(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "from-gateway")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "from-gateway" {
		t.Errorf("Expected X-Request-ID to be from-gateway, got %s", got)
	}
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORSMiddleware([]string{"http://localhost:5173"}))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Error("Expected CORS Allow-Origin header")
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("Expected CORS Allow-Credentials header")
	}
}

func TestCORSMiddleware_OPTIONS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORSMiddleware([]string{"http://localhost:5173"}))
	r.OPTIONS("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204 for OPTIONS, got %d", w.Code)
	}
}

func TestCORSMiddleware_ForeignOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORSMiddleware([]string{"http://localhost:5173"}))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for foreign origin, got %d", w.Code)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(logger))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "missing"})
	})

	req := httptest.NewRequest(http.MethodGet, "/test?page=1", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("Failed to decode log record: %v", err)
	}
	if record["level"] != "WARN" {
		t.Errorf("Expected WARN level for 404, got %v", record["level"])
	}
	if record["request_id"] != "req-1" {
		t.Errorf("Expected request_id req-1, got %v", record["request_id"])
	}
	if record["query"] != "page=1" {
		t.Errorf("Expected query page=1, got %v", record["query"])
	}
	if record["status"] != float64(http.StatusNotFound) {
		t.Errorf("Expected status 404, got %v", record["status"])
	}
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	checks := map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
	}
	r := NewRouter(RouterOptions{ServiceName: "forum-service", Checks: checks})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	checks["cache"] = func(context.Context) error { return errors.New("connection refused") }
	r = NewRouter(RouterOptions{ServiceName: "forum-service", Checks: checks})

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "connection refused") {
		t.Errorf("Expected failing dependency in body, got %s", w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := NewRouter(RouterOptions{ServiceName: "forum-service"})
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `forum_http_requests_total{method="GET",route="/ping",status="200"}`) {
		t.Error("Expected request counter for /ping")
	}
}
