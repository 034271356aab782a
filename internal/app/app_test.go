package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yungbote/flightwx/internal/config"
	"github.com/yungbote/flightwx/internal/httpapi"
	"github.com/yungbote/flightwx/internal/platform/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	cfg.Store.DSN = "file::memory:"
	cfg.HTTP.ShutdownTimeout = config.Duration{Duration: time.Second}
	return cfg
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Gateway ")
	if err != nil || k != KindGateway {
		t.Fatalf("k=%q err=%v", k, err)
	}
	if _, err := ParseKind("radar"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestListenAddrFromServiceURL(t *testing.T) {
	cfg := testConfig(t)
	if got := listenAddr(cfg, KindWeather); got != ":8082" {
		t.Fatalf("weather addr=%q", got)
	}
	if got := listenAddr(cfg, KindGateway); got != cfg.HTTP.Addr {
		t.Fatalf("gateway addr=%q", got)
	}
}

func TestGatewayApp(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), logger.Nop(), KindGateway, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Body.String() != httpapi.GatewayStatus {
		t.Fatalf("body=%q", rec.Body.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestConditionsAppRequiresServiceURLs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Services.Weather = ""
	if _, err := New(context.Background(), cfg, nil, KindConditions, ""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestAirportAppServesEmptyCatalog(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, nil, KindAirport, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.close()
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}
