package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"

	"forum/internal/consul"
	"forum/internal/server"
)

type mockDiscovery struct {
	instance *consul.ServiceInstance
	err      error
	asked    []string
}

func (m *mockDiscovery) Discover(ctx context.Context, serviceName string) ([]*consul.ServiceInstance, error) {
	inst, err := m.DiscoverOne(ctx, serviceName)
	if err != nil {
		return nil, err
	}
	return []*consul.ServiceInstance{inst}, nil
}

func (m *mockDiscovery) DiscoverOne(_ context.Context, serviceName string) (*consul.ServiceInstance, error) {
	m.asked = append(m.asked, serviceName)
	if m.err != nil {
		return nil, m.err
	}
	return m.instance, nil
}

func upstream(t *testing.T, handler http.HandlerFunc) *consul.ServiceInstance {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return &consul.ServiceInstance{ID: "forum-1", Name: "forum-service", Address: host, Port: port}
}

func TestProxyForwardsPathQueryAndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var gotPath, gotQuery, gotRequestID string
	instance := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"1"}`))
	})

	discovery := &mockDiscovery{instance: instance}
	r := SetupRouter(discovery, Options{Upstream: "forum-service"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/topics/abc/posts?x=1", nil)
	req.Header.Set("X-Request-ID", "trace-me")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	if gotPath != "/api/v1/topics/abc/posts" {
		t.Errorf("Expected upstream path /api/v1/topics/abc/posts, got %s", gotPath)
	}
	if gotQuery != "x=1" {
		t.Errorf("Expected upstream query x=1, got %s", gotQuery)
	}
	if gotRequestID != "trace-me" {
		t.Errorf("Expected request id to be forwarded, got %q", gotRequestID)
	}
	if len(discovery.asked) != 1 || discovery.asked[0] != "forum-service" {
		t.Errorf("Expected discovery of forum-service, got %v", discovery.asked)
	}
}

func TestProxyCollectionRoot(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var gotPath string
	instance := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})
	r := SetupRouter(&mockDiscovery{instance: instance}, Options{Upstream: "forum-service"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if gotPath != "/api/v1/posts" {
		t.Errorf("Expected upstream path /api/v1/posts, got %s", gotPath)
	}
}

func TestProxyServiceUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := SetupRouter(&mockDiscovery{err: consul.ErrNoInstances}, Options{Upstream: "forum-service"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestProxyBadGateway(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Nothing listens on the discovered instance
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	instance := &consul.ServiceInstance{ID: "gone", Address: "127.0.0.1", Port: port}
	r := SetupRouter(&mockDiscovery{instance: instance}, Options{Upstream: "forum-service"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/topics", nil))

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", w.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)

	discovery := &mockDiscovery{err: consul.ErrNoInstances}
	r := SetupRouter(discovery, Options{Upstream: "forum-service"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/users", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if len(discovery.asked) != 0 {
		t.Errorf("Expected no discovery for unknown routes, got %v", discovery.asked)
	}
}

func TestGatewayHealthReportsConsul(t *testing.T) {
	gin.SetMode(gin.TestMode)

	discovery := &mockDiscovery{err: consul.ErrNoInstances}
	r := SetupRouter(discovery, Options{
		Upstream: "forum-service",
		Checks: map[string]server.HealthCheck{
			"consul": func(context.Context) error { return errors.New("agent unreachable") },
		},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
	if len(discovery.asked) != 0 {
		t.Errorf("Expected health to stay local, got discovery of %v", discovery.asked)
	}
}
