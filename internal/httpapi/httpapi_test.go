package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/flightwx/internal/aggregate"
	"github.com/yungbote/flightwx/internal/airport"
	"github.com/yungbote/flightwx/internal/avwx"
	"github.com/yungbote/flightwx/internal/conditions"
	"github.com/yungbote/flightwx/internal/config"
	"github.com/yungbote/flightwx/internal/observability"
	"github.com/yungbote/flightwx/internal/platform/dbctx"
	"github.com/yungbote/flightwx/internal/platform/httpx"
	"github.com/yungbote/flightwx/internal/store"
	"github.com/yungbote/flightwx/internal/upstream"
	"github.com/yungbote/flightwx/internal/weather"
)

func init() { gin.SetMode(gin.TestMode) }

func do(t *testing.T, h http.Handler, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v body=%s", err, rec.Body.String())
	}
	return env
}

func newAirportEngine(t *testing.T) *gin.Engine {
	t.Helper()
	svc, err := store.Open(config.StoreConfig{Driver: "sqlite", DSN: "file::memory:"}, nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	if err := svc.AutoMigrate(&airport.Airport{}); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	repo := airport.NewRepo(svc.DB(), nil)
	dbc := dbctx.New(context.Background())
	for icao, name := range map[string]string{"KSUS": "Spirit of St Louis Airport", "KSTL": "St Louis Lambert International Airport"} {
		if err := repo.Save(dbc, airport.FromStation(avwx.Station{ICAO: icao, Name: name})); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	r := NewEngine(nil, config.HTTPConfig{}, "airport")
	NewAirportHandler(repo).Register(r)
	return r
}

func TestAirportRoutes(t *testing.T) {
	r := newAirportEngine(t)

	rec := do(t, r, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var all []airport.Airport
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(all) != 2 || all[0].ICAO != "KSTL" {
		t.Fatalf("all=%+v", all)
	}

	rec = do(t, r, http.MethodGet, "/list", nil)
	want := "KSTL, St Louis Lambert International Airport\nKSUS, Spirit of St Louis Airport\n"
	if rec.Body.String() != want {
		t.Fatalf("list=%q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type=%q", ct)
	}

	rec = do(t, r, http.MethodGet, "/airport/ksus", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"icao":"KSUS"`) {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/airport/KZZZ", nil)
	if rec.Code != http.StatusNotFound || decodeEnvelope(t, rec).Error.Code != "not_found" {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz status=%d", rec.Code)
	}
	if rec.Header().Get(headerRequestID) == "" {
		t.Fatalf("missing request id header")
	}
}

type fakeSource struct {
	err error
}

func (s fakeSource) Metar(_ context.Context, icao string) (avwx.METAR, error) {
	if s.err != nil {
		return avwx.METAR{}, s.err
	}
	return avwx.METAR{Raw: icao + " 141851Z 21010KT 10SM FEW250", FlightRules: "VFR"}, nil
}

func (s fakeSource) Taf(_ context.Context, icao string) (avwx.TAF, error) {
	if s.err != nil {
		return avwx.TAF{}, s.err
	}
	return avwx.TAF{Forecast: []avwx.Forecast{{Raw: icao + " 21010KT P6SM"}}}, nil
}

func newWeatherEngine(src weather.Source) *gin.Engine {
	r := NewEngine(nil, config.HTTPConfig{}, "weather")
	NewWeatherHandler(weather.NewService(src, nil, nil)).Register(r)
	return r
}

func TestWeatherRoutes(t *testing.T) {
	r := newWeatherEngine(fakeSource{})

	rec := do(t, r, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "KSTL 141851Z") {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = do(t, r, http.MethodGet, "/metar/kcps", nil)
	if !strings.Contains(rec.Body.String(), "KCPS 141851Z") {
		t.Fatalf("body=%s", rec.Body.String())
	}
	rec = do(t, r, http.MethodGet, "/taf/KALN", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"forecast"`) {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestWeatherUpstreamErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &httpx.HTTPError{StatusCode: http.StatusNotFound}, http.StatusNotFound},
		{"timeout", fmt.Errorf("avwx metar KSTL: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"server error", &httpx.HTTPError{StatusCode: http.StatusInternalServerError}, http.StatusBadGateway},
		{"transport", errors.New("connection refused"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, newWeatherEngine(fakeSource{err: tc.err}), http.MethodGet, "/metar/KSTL", nil)
			if rec.Code != tc.want {
				t.Fatalf("status=%d want=%d body=%s", rec.Code, tc.want, rec.Body.String())
			}
			if decodeEnvelope(t, rec).Error.Message == "" {
				t.Fatalf("empty message")
			}
		})
	}
}

func newConditionsEngine(t *testing.T, ids []string, detail aggregate.Detail[avwx.METAR]) *gin.Engine {
	t.Helper()
	var items []string
	for _, id := range ids {
		items = append(items, fmt.Sprintf(`{"icao":%q}`, id))
	}
	airports := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[" + strings.Join(items, ",") + "]"))
	}))
	t.Cleanup(airports.Close)

	dir, err := upstream.NewAirportDirectory(airports.URL, airports.Client())
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	opts := aggregate.Options{
		Concurrency:    2,
		PerItemTimeout: time.Second,
		MaxAttempts:    2,
		Backoff:        aggregate.Backoff{Initial: time.Millisecond, NoJitter: true},
	}
	r := NewEngine(nil, config.HTTPConfig{}, "conditions")
	NewConditionsHandler(conditions.NewService(dir, detail, opts, nil), nil).Register(r)
	return r
}

func metarDetail(missing ...string) aggregate.Detail[avwx.METAR] {
	skip := map[aggregate.EntityID]bool{}
	for _, m := range missing {
		skip[aggregate.EntityID(m)] = true
	}
	return aggregate.DetailFunc[avwx.METAR](func(_ context.Context, id aggregate.EntityID) (avwx.METAR, error) {
		if skip[id] {
			return avwx.METAR{}, &httpx.HTTPError{StatusCode: http.StatusNotFound}
		}
		return avwx.METAR{Raw: string(id) + " 141853Z", FlightRules: "VFR"}, nil
	})
}

func TestConditionsGreeting(t *testing.T) {
	r := newConditionsEngine(t, nil, metarDetail())
	rec := do(t, r, http.MethodGet, "/", nil)
	if rec.Body.String() != conditions.Greeting {
		t.Fatalf("body=%q", rec.Body.String())
	}
}

func TestConditionsSummaryNDJSON(t *testing.T) {
	r := newConditionsEngine(t, []string{"KSTL", "KSUS", "KZZZ"}, metarDetail("KZZZ"))
	rec := do(t, r, http.MethodGet, "/summary?concurrency=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != contentTypeNDJSON {
		t.Fatalf("content-type=%q", ct)
	}

	var records []conditions.Record
	var summary struct {
		Summary map[string]any `json:"summary"`
	}
	sc := bufio.NewScanner(rec.Body)
	for sc.Scan() {
		line := sc.Bytes()
		if strings.HasPrefix(string(line), `{"summary"`) {
			if err := json.Unmarshal(line, &summary); err != nil {
				t.Fatalf("decode summary: %v", err)
			}
			continue
		}
		var rr conditions.Record
		if err := json.Unmarshal(line, &rr); err != nil {
			t.Fatalf("decode record %q: %v", line, err)
		}
		records = append(records, rr)
	}
	if len(records) != 3 {
		t.Fatalf("records=%+v", records)
	}
	failures := 0
	for _, rr := range records {
		if rr.Status == conditions.StatusFailure {
			failures++
			if rr.ID != "KZZZ" || rr.Error.Kind != "permanent" || rr.Error.Code != http.StatusNotFound {
				t.Fatalf("failure=%+v", rr.Error)
			}
		}
	}
	if failures != 1 {
		t.Fatalf("failures=%d", failures)
	}
	if summary.Summary["state"] != "partial_failure" || summary.Summary["dispatched"] != float64(3) {
		t.Fatalf("summary=%v", summary.Summary)
	}
}

func TestConditionsSummarySSE(t *testing.T) {
	r := newConditionsEngine(t, []string{"KSTL", "KCPS"}, metarDetail())
	rec := do(t, r, http.MethodGet, "/summary", map[string]string{"Accept": "text/event-stream"})
	if ct := rec.Header().Get("Content-Type"); ct != contentTypeSSE {
		t.Fatalf("content-type=%q", ct)
	}
	body := rec.Body.String()
	if n := strings.Count(body, "event: outcome\n"); n != 2 {
		t.Fatalf("outcome events=%d body=%s", n, body)
	}
	if !strings.HasSuffix(body, "\n\n") || strings.Count(body, "event: summary\n") != 1 {
		t.Fatalf("body=%s", body)
	}
	if !strings.Contains(body, `"state":"completed"`) {
		t.Fatalf("body=%s", body)
	}
}

func TestConditionsSummaryRejectsBadQuery(t *testing.T) {
	r := newConditionsEngine(t, []string{"KSTL"}, metarDetail())
	rec := do(t, r, http.MethodGet, "/summary?concurrency=-1", nil)
	if rec.Code != http.StatusBadRequest || decodeEnvelope(t, rec).Error.Code != "invalid_query" {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestConditionsSummaryDirectoryDown(t *testing.T) {
	airports := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer airports.Close()
	dir, err := upstream.NewAirportDirectory(airports.URL, airports.Client())
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	r := NewEngine(nil, config.HTTPConfig{}, "conditions")
	NewConditionsHandler(conditions.NewService(dir, metarDetail(), aggregate.Options{Concurrency: 1}, nil), nil).Register(r)

	rec := do(t, r, http.MethodGet, "/summary", nil)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], `"state":"aborted"`) || !strings.Contains(lines[0], "directory unavailable") {
		t.Fatalf("body=%s", rec.Body.String())
	}
}

func TestRecoveryWritesEnvelope(t *testing.T) {
	r := NewEngine(nil, config.HTTPConfig{}, "test")
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	rec := do(t, r, http.MethodGet, "/boom", nil)
	if rec.Code != http.StatusInternalServerError || decodeEnvelope(t, rec).Error.Code != "internal" {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	r := NewEngine(nil, config.HTTPConfig{AllowOrigins: []string{"http://localhost:5173"}}, "test")
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := do(t, r, http.MethodOptions, "/x", map[string]string{
		"Origin":                        "http://localhost:5173",
		"Access-Control-Request-Method": http.MethodGet,
	})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow-origin=%q", got)
	}

	rec = do(t, NewEngine(nil, config.HTTPConfig{}, "test"), http.MethodGet, "/healthz", map[string]string{"Origin": "http://evil.test"})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("allow-origin=%q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := observability.NewMetrics()
	r := newEngine(nil, config.HTTPConfig{}, "test", m)
	r.GET("/x/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do(t, r, http.MethodGet, "/x/KSTL", nil)
	rec := do(t, r, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if want := `flightwx_http_requests_total{method="GET",route="/x/:id",status="204"} 1`; !strings.Contains(rec.Body.String(), want) {
		t.Fatalf("missing %q in\n%s", want, rec.Body.String())
	}

	rec = do(t, NewEngine(nil, config.HTTPConfig{}, "test"), http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("metrics disabled: status=%d", rec.Code)
	}
}
