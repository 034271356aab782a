package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "flightwx.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Aggregate.Concurrency != 4 || cfg.Aggregate.MaxAttempts != 3 {
		t.Fatalf("unexpected aggregate defaults: %+v", cfg.Aggregate)
	}
	if len(cfg.Catalog.Stations) != 14 || cfg.Catalog.Stations[0] != "KSTL" {
		t.Fatalf("unexpected stations: %v", cfg.Catalog.Stations)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Fatalf("driver=%q", cfg.Store.Driver)
	}
}

func TestLoadFileYAML(t *testing.T) {
	p := writeConfig(t, `
env: production
http:
  addr: ":9090"
avwx:
  base_url: "https://example.test/api/"
  token: abc
aggregate:
  concurrency: 2
  per_item_timeout: 750ms
  max_attempts: 0
  backoff_initial: 5s
  backoff_max: 1s
  grace: 3000000000
store:
  driver: PG
  dsn: postgres://x
catalog:
  stations: [kstl, " ksus ", KSTL, ""]
`)
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("addr=%q", cfg.HTTP.Addr)
	}
	if cfg.AVWX.BaseURL != "https://example.test/api" {
		t.Fatalf("base_url=%q", cfg.AVWX.BaseURL)
	}
	if cfg.Aggregate.PerItemTimeout.Duration != 750*time.Millisecond {
		t.Fatalf("timeout=%v", cfg.Aggregate.PerItemTimeout.Duration)
	}
	if cfg.Aggregate.Grace.Duration != 3*time.Second {
		t.Fatalf("grace=%v", cfg.Aggregate.Grace.Duration)
	}
	if cfg.Aggregate.BackoffInitial.Duration != time.Second {
		t.Fatalf("backoff_initial not capped: %v", cfg.Aggregate.BackoffInitial.Duration)
	}
	if cfg.Store.Driver != "postgres" {
		t.Fatalf("driver=%q", cfg.Store.Driver)
	}
	if len(cfg.Catalog.Stations) != 2 || cfg.Catalog.Stations[1] != "KSUS" {
		t.Fatalf("stations=%v", cfg.Catalog.Stations)
	}
}

func TestLoadFileEnvOverrides(t *testing.T) {
	t.Setenv("AVWX_TOKEN", "from-env")
	t.Setenv("AGGREGATE_CONCURRENCY", "9")
	t.Setenv("CATALOG_STATIONS", "KJFK,KLGA")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=abc, bad ,=v")
	t.Setenv("OTEL_SAMPLER_RATIO", "3")
	t.Setenv("METRICS_ENABLED", "true")
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.AVWX.Token != "from-env" {
		t.Fatalf("token not overridden")
	}
	if cfg.Aggregate.Concurrency != 9 {
		t.Fatalf("concurrency=%d", cfg.Aggregate.Concurrency)
	}
	if len(cfg.Catalog.Stations) != 2 {
		t.Fatalf("stations=%v", cfg.Catalog.Stations)
	}
	if len(cfg.Otel.Headers) != 1 || cfg.Otel.Headers["x-api-key"] != "abc" {
		t.Fatalf("headers=%v", cfg.Otel.Headers)
	}
	if cfg.Otel.SampleRatio != 1 {
		t.Fatalf("sample ratio=%v", cfg.Otel.SampleRatio)
	}
	if !cfg.Metrics.Enabled {
		t.Fatalf("metrics not enabled from env")
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"zero concurrency": "aggregate:\n  concurrency: 0\n",
		"negative attempts": "aggregate:\n  max_attempts: -1\n",
		"bad driver":        "store:\n  driver: mongo\n",
		"bad duration":      "aggregate:\n  grace: soon\n",
	}
	for name, body := range cases {
		if _, err := LoadFile(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := LoadFile(filepath.Join("..", "..", "config", "flightwx.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Aggregate.Grace.Duration != 2*time.Second || len(cfg.Catalog.Stations) != 14 {
		t.Fatalf("unexpected example config: %+v", cfg.Aggregate)
	}
}
