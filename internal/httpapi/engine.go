package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/flightwx/internal/config"
	"github.com/yungbote/flightwx/internal/observability"
	"github.com/yungbote/flightwx/internal/platform/logger"
)

// NewEngine builds a gin engine with the middleware every service shares.
// component names the service in traces and logs.
func NewEngine(log *logger.Logger, cfg config.HTTPConfig, component string) *gin.Engine {
	return newEngine(log, cfg, component, observability.Current())
}

func newEngine(log *logger.Logger, cfg config.HTTPConfig, component string, m *observability.Metrics) *gin.Engine {
	if log == nil {
		log = logger.Nop()
	}
	r := gin.New()
	r.Use(Recovery(log))
	r.Use(otelgin.Middleware(component))
	r.Use(AttachTraceContext())
	r.Use(RequestLogger(log.With("component", component)))
	r.Use(RequestMetrics(m))
	r.Use(CORS(cfg.AllowOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if m != nil {
		r.GET("/metrics", gin.WrapF(m.WriteHTTP))
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorEnvelope{Error: APIError{Message: "route not found", Code: "not_found"}})
	})
	return r
}
