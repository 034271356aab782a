package observability

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/flightwx/internal/config"
)

// Metrics holds the process counters exposed in Prometheus text format.
// Every method is safe on a nil receiver, so callers never check Enabled.
type Metrics struct {
	httpRequests *CounterVec
	httpLatency  *HistogramVec
	httpInflight *Gauge

	runsTotal    *CounterVec
	runDuration  *HistogramVec
	itemsTotal   *CounterVec
	runsInflight *Gauge

	cacheLookups *CounterVec
	seedTotal    *CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Init installs the process metrics once. It returns nil when metrics are
// disabled.
func Init(cfg config.MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
	})
	return instance
}

func Current() *Metrics {
	return instance
}

func NewMetrics() *Metrics {
	return &Metrics{
		httpRequests: NewCounterVec("flightwx_http_requests_total", "HTTP requests served", []string{"method", "route", "status"}),
		httpLatency:  NewHistogramVec("flightwx_http_request_duration_seconds", "HTTP request latency", []string{"method", "route"}, nil),
		httpInflight: NewGauge("flightwx_http_inflight_requests", "HTTP requests in progress"),

		runsTotal:    NewCounterVec("flightwx_aggregate_runs_total", "Aggregation runs by terminal state", []string{"state"}),
		runDuration:  NewHistogramVec("flightwx_aggregate_run_duration_seconds", "Aggregation run duration", []string{"state"}, []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60}),
		itemsTotal:   NewCounterVec("flightwx_aggregate_items_total", "Aggregated items by outcome", []string{"status", "kind"}),
		runsInflight: NewGauge("flightwx_aggregate_inflight_runs", "Aggregation runs in progress"),

		cacheLookups: NewCounterVec("flightwx_weather_cache_lookups_total", "Weather cache lookups", []string{"result"}),
		seedTotal:    NewCounterVec("flightwx_catalog_seed_stations_total", "Catalog stations seeded", []string{"status"}),
	}
}

// WriteHTTP serves the exposition; a nil Metrics answers 503.
func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []collector{
		m.httpRequests, m.httpLatency, m.httpInflight,
		m.runsTotal, m.runDuration, m.itemsTotal, m.runsInflight,
		m.cacheLookups, m.seedTotal,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveHTTP(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.Inc(method, route, strconv.Itoa(status))
	m.httpLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) HTTPInflightInc() {
	if m == nil {
		return
	}
	m.httpInflight.Inc()
}

func (m *Metrics) HTTPInflightDec() {
	if m == nil {
		return
	}
	m.httpInflight.Dec()
}

func (m *Metrics) AggregateRunStarted() {
	if m == nil {
		return
	}
	m.runsInflight.Inc()
}

func (m *Metrics) AggregateRunFinished(state string, dur time.Duration) {
	if m == nil {
		return
	}
	m.runsInflight.Dec()
	m.runsTotal.Inc(state)
	m.runDuration.Observe(dur.Seconds(), state)
}

// ObserveAggregateItem counts one outcome. kind is empty for successes.
func (m *Metrics) ObserveAggregateItem(ok bool, kind string) {
	if m == nil {
		return
	}
	if ok {
		m.itemsTotal.Inc("ok", "none")
		return
	}
	m.itemsTotal.Inc("failed", kind)
}

// ObserveCache records a lookup result: hit, miss or error.
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.Inc(result)
}

func (m *Metrics) ObserveSeed(saved, failed int) {
	if m == nil {
		return
	}
	m.seedTotal.Add(float64(saved), "saved")
	m.seedTotal.Add(float64(failed), "failed")
}
