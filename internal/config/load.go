package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/flightwx/internal/platform/envutil"
)

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	s := strings.TrimSpace(node.Value)
	if s == "" || s == "null" || s == "~" {
		d.Duration = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		d.Duration = time.Duration(n)
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration must be a string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
		},
		AVWX: AVWXConfig{
			BaseURL: "https://avwx.rest/api",
			Token:   "NoValidToken",
			Timeout: Duration{Duration: 10 * time.Second},
		},
		Services: ServicesConfig{
			Airport:    "http://localhost:8081",
			Weather:    "http://localhost:8082",
			Conditions: "http://localhost:8083",
		},
		Aggregate: AggregateConfig{
			Concurrency:    4,
			PerItemTimeout: Duration{Duration: 5 * time.Second},
			MaxAttempts:    3,
			BackoffInitial: Duration{Duration: 250 * time.Millisecond},
			BackoffMax:     Duration{Duration: 2 * time.Second},
			Grace:          Duration{Duration: 2 * time.Second},
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "file:flightwx.db?cache=shared",
		},
		Redis:   RedisConfig{TTL: Duration{Duration: 2 * time.Minute}},
		Catalog: CatalogConfig{Stations: append([]string(nil), DefaultStations...)},
		Otel:    OtelConfig{SampleRatio: 0.1},
	}
}

// Load reads the YAML file named by FLIGHTWX_CONFIG (or ./config/flightwx.yaml when
// present), applies env overrides and validates the result.
func Load() (*Config, error) {
	cfgPath := strings.TrimSpace(os.Getenv("FLIGHTWX_CONFIG"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "flightwx.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	return LoadFile(cfgPath)
}

// LoadFile is Load with an explicit path. An empty path skips the file.
func LoadFile(cfgPath string) (*Config, error) {
	cfg := defaultConfig()

	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg)

	if err := normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)
	cfg.HTTP.Addr = envutil.String("FLIGHTWX_HTTP_ADDR", cfg.HTTP.Addr)

	cfg.AVWX.BaseURL = envutil.String("AVWX_BASE_URL", cfg.AVWX.BaseURL)
	cfg.AVWX.Token = envutil.String("AVWX_TOKEN", cfg.AVWX.Token)

	cfg.Services.Airport = envutil.String("AIRPORT_SERVICE_URL", cfg.Services.Airport)
	cfg.Services.Weather = envutil.String("WEATHER_SERVICE_URL", cfg.Services.Weather)
	cfg.Services.Conditions = envutil.String("CONDITIONS_SERVICE_URL", cfg.Services.Conditions)

	cfg.Aggregate.Concurrency = envutil.Int("AGGREGATE_CONCURRENCY", cfg.Aggregate.Concurrency)
	cfg.Aggregate.MaxAttempts = envutil.Int("AGGREGATE_MAX_ATTEMPTS", cfg.Aggregate.MaxAttempts)
	cfg.Aggregate.PerItemTimeout.Duration = envutil.Duration("AGGREGATE_PER_ITEM_TIMEOUT", cfg.Aggregate.PerItemTimeout.Duration)

	cfg.Store.Driver = envutil.String("FLIGHTWX_DB_DRIVER", cfg.Store.Driver)
	cfg.Store.DSN = envutil.String("FLIGHTWX_DB_DSN", cfg.Store.DSN)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)

	if v := strings.TrimSpace(os.Getenv("CATALOG_STATIONS")); v != "" {
		cfg.Catalog.Stations = strings.Split(v, ",")
	}

	cfg.Otel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Otel.Enabled)
	cfg.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Otel.Endpoint)
	cfg.Otel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Otel.Insecure)
	cfg.Otel.SampleRatio = envutil.Float("OTEL_SAMPLER_RATIO", cfg.Otel.SampleRatio)
	if h := parseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")); h != nil {
		cfg.Otel.Headers = h
	}

	cfg.Metrics.Enabled = envutil.Bool("METRICS_ENABLED", cfg.Metrics.Enabled)
}

// parseHeaders reads "k1=v1,k2=v2".
func parseHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	headers := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		val := strings.TrimSpace(kv[1])
		if key == "" || val == "" {
			continue
		}
		headers[key] = val
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

func normalize(cfg *Config) error {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8080"
	}

	cfg.AVWX.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.AVWX.BaseURL), "/")
	cfg.AVWX.Token = strings.TrimSpace(cfg.AVWX.Token)
	if cfg.AVWX.Timeout.Duration <= 0 {
		cfg.AVWX.Timeout = Duration{Duration: 10 * time.Second}
	}

	cfg.Services.Airport = strings.TrimRight(strings.TrimSpace(cfg.Services.Airport), "/")
	cfg.Services.Weather = strings.TrimRight(strings.TrimSpace(cfg.Services.Weather), "/")
	cfg.Services.Conditions = strings.TrimRight(strings.TrimSpace(cfg.Services.Conditions), "/")

	a := &cfg.Aggregate
	if a.Concurrency <= 0 {
		return fmt.Errorf("aggregate.concurrency must be positive, got %d", a.Concurrency)
	}
	if a.MaxAttempts < 0 {
		return fmt.Errorf("aggregate.max_attempts must be non-negative, got %d", a.MaxAttempts)
	}
	if a.PerItemTimeout.Duration < 0 || a.BackoffInitial.Duration < 0 || a.BackoffMax.Duration < 0 || a.Grace.Duration < 0 {
		return errors.New("aggregate durations must be non-negative")
	}
	if a.BackoffMax.Duration > 0 && a.BackoffInitial.Duration > a.BackoffMax.Duration {
		a.BackoffInitial = a.BackoffMax
	}

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	switch cfg.Store.Driver {
	case "", "sqlite":
		cfg.Store.Driver = "sqlite"
	case "postgres", "postgresql", "pg":
		cfg.Store.Driver = "postgres"
	default:
		return fmt.Errorf("store.driver %q not supported", cfg.Store.Driver)
	}
	if strings.TrimSpace(cfg.Store.DSN) == "" {
		return errors.New("store.dsn is required")
	}

	if cfg.Redis.TTL.Duration <= 0 {
		cfg.Redis.TTL = Duration{Duration: 2 * time.Minute}
	}

	stations := make([]string, 0, len(cfg.Catalog.Stations))
	seen := map[string]bool{}
	for _, s := range cfg.Catalog.Stations {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		stations = append(stations, s)
	}
	cfg.Catalog.Stations = stations

	if cfg.Otel.SampleRatio < 0 {
		cfg.Otel.SampleRatio = 0
	}
	if cfg.Otel.SampleRatio > 1 {
		cfg.Otel.SampleRatio = 1
	}
	return nil
}
