package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/flightwx/internal/conditions"
	"github.com/yungbote/flightwx/internal/observability"
	"github.com/yungbote/flightwx/internal/platform/apierr"
	"github.com/yungbote/flightwx/internal/platform/logger"
)

type ConditionsHandler struct {
	svc     *conditions.Service
	log     *logger.Logger
	metrics *observability.Metrics
}

func NewConditionsHandler(svc *conditions.Service, log *logger.Logger) *ConditionsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ConditionsHandler{
		svc:     svc,
		log:     log.With("handler", "ConditionsHandler"),
		metrics: observability.Current(),
	}
}

func (h *ConditionsHandler) Register(r gin.IRouter) {
	r.GET("/", h.Greeting)
	r.GET("/summary", h.Summary)
}

func (h *ConditionsHandler) Greeting(c *gin.Context) {
	c.String(http.StatusOK, conditions.Greeting)
}

// Summary streams one record per airport as its METAR resolves, then a
// summary record. A client that goes away cancels the run.
func (h *ConditionsHandler) Summary(c *gin.Context) {
	o, err := conditions.ParseOverrides(c.Request.URL.Query())
	if err != nil {
		RespondError(c, apierr.BadRequest("invalid_query", err))
		return
	}
	run, err := h.svc.Start(c.Request.Context(), o)
	if err != nil {
		RespondError(c, apierr.BadRequest("invalid_options", err))
		return
	}

	h.metrics.AggregateRunStarted()
	stream := newRecordStream(c)
	for out := range run.Outcomes() {
		if out.OK() {
			h.metrics.ObserveAggregateItem(true, "")
		} else {
			h.metrics.ObserveAggregateItem(false, out.Err.Kind.String())
		}
		if err := stream.Write("outcome", conditions.NewRecord(out)); err != nil {
			h.log.Debug("client stopped reading", "run_id", run.ID, "error", err)
			break
		}
	}
	<-run.Done()
	sum := run.Summary()
	h.metrics.AggregateRunFinished(sum.State.String(), sum.Duration)
	if err := stream.Write("summary", conditions.SummaryRecord{Summary: sum}); err != nil {
		h.log.Debug("summary not delivered", "run_id", run.ID, "error", err)
	}
}
