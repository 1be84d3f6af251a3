package gateway

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"

	"forum/internal/consul"
)

// ProxyHandler handles reverse proxy requests to backend services
type ProxyHandler struct {
	discovery consul.ServiceDiscovery
	logger    *slog.Logger
}

// NewProxyHandler creates a new proxy handler
func NewProxyHandler(discovery consul.ServiceDiscovery, logger *slog.Logger) *ProxyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProxyHandler{
		discovery: discovery,
		logger:    logger,
	}
}

// ProxyRequest creates a handler that forwards requests unchanged to a healthy
// instance of serviceName.
func (h *ProxyHandler) ProxyRequest(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		c.Set("upstream_service", serviceName)

		instance, err := h.discovery.DiscoverOne(ctx, serviceName)
		if err != nil {
			h.logger.WarnContext(ctx, "Failed to discover service",
				"service", serviceName,
				"error", err,
				"request_id", c.GetString("request_id"))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error":   "service " + serviceName + " unavailable",
				"code":    "SERVICE_UNAVAILABLE",
			})
			return
		}

		targetURL, err := url.Parse(instance.URL())
		if err != nil {
			h.logger.ErrorContext(ctx, "Failed to parse target URL", "target", instance.URL(), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "internal server error",
				"code":    "INTERNAL_ERROR",
			})
			return
		}

		proxy := &httputil.ReverseProxy{
			Rewrite: func(pr *httputil.ProxyRequest) {
				pr.SetURL(targetURL)
				pr.SetXForwarded()
				pr.Out.Host = targetURL.Host
			},
			ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
				h.logger.ErrorContext(r.Context(), "Proxy error",
					"service", serviceName,
					"instance", instance.ID,
					"error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(`{"success":false,"error":"bad gateway","code":"BAD_GATEWAY"}`))
			},
		}

		h.logger.DebugContext(ctx, "Proxying request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"instance", instance.ID)

		proxy.ServeHTTP(c.Writer, c.Request)
	}
}
