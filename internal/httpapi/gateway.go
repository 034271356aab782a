package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yungbote/flightwx/internal/platform/logger"
)

const GatewayStatus = "flightwx gateway status: UP"

// Route maps a path prefix onto an upstream base URL.
type Route struct {
	Prefix string
	Target string
}

type GatewayHandler struct {
	routes []Route
	log    *logger.Logger
}

func NewGatewayHandler(routes []Route, log *logger.Logger) (*GatewayHandler, error) {
	if log == nil {
		log = logger.Nop()
	}
	for _, rt := range routes {
		if !strings.HasPrefix(rt.Prefix, "/") || strings.HasSuffix(rt.Prefix, "/") {
			return nil, fmt.Errorf("gateway: prefix %q must start and not end with /", rt.Prefix)
		}
		u, err := url.Parse(rt.Target)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("gateway: target %q for %s must be an absolute url", rt.Target, rt.Prefix)
		}
	}
	return &GatewayHandler{routes: routes, log: log.With("handler", "GatewayHandler")}, nil
}

func (h *GatewayHandler) Register(r gin.IRouter) {
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GatewayStatus)
	})
	for _, rt := range h.routes {
		proxy := h.newProxy(rt)
		handle := func(c *gin.Context) {
			path := c.Param("path")
			if path == "" {
				path = "/"
			}
			c.Request.URL.Path = path
			c.Request.URL.RawPath = ""
			proxy.ServeHTTP(c.Writer, c.Request)
		}
		r.Any(rt.Prefix+"/*path", handle)
	}
}

func (h *GatewayHandler) newProxy(rt Route) *httputil.ReverseProxy {
	target, _ := url.Parse(rt.Target)
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		// Negative flushes every write, which keeps NDJSON and SSE streams live.
		FlushInterval: -1,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			h.log.Warn("upstream unavailable", "prefix", rt.Prefix, "path", r.URL.Path, "error", err)
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(ErrorEnvelope{Error: APIError{
				Message: fmt.Sprintf("%s unavailable", strings.TrimPrefix(rt.Prefix, "/")),
				Code:    "upstream_unavailable",
			}})
		},
	}
}
