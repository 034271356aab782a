package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `yaml:"addr"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	IdleTimeout       Duration `yaml:"idle_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`

	// AllowOrigins feeds the CORS middleware. Empty disables CORS headers.
	AllowOrigins []string `yaml:"allow_origins,omitempty"`
}

type AVWXConfig struct {
	BaseURL string `yaml:"base_url"`

	// Token is sent to AVWX on every request. Never logged.
	Token   string   `yaml:"token"`
	Timeout Duration `yaml:"timeout"`
}

// ServicesConfig holds the static base URLs of the collaborating services.
type ServicesConfig struct {
	Airport    string `yaml:"airport"`
	Weather    string `yaml:"weather"`
	Conditions string `yaml:"conditions"`
}

type AggregateConfig struct {
	Concurrency    int      `yaml:"concurrency"`
	PerItemTimeout Duration `yaml:"per_item_timeout"`

	// MaxAttempts bounds total attempts per item, first call included.
	MaxAttempts    int      `yaml:"max_attempts"`
	BackoffInitial Duration `yaml:"backoff_initial"`
	BackoffMax     Duration `yaml:"backoff_max"`

	// Grace bounds how long a cancelled run waits for in-flight fetches.
	Grace Duration `yaml:"grace"`
}

type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr string   `yaml:"addr,omitempty"`
	TTL  Duration `yaml:"ttl"`
}

type CatalogConfig struct {
	Stations []string `yaml:"stations"`
}

type OtelConfig struct {
	Enabled     bool              `yaml:"enabled"`
	ServiceName string            `yaml:"service_name,omitempty"`
	Endpoint    string            `yaml:"endpoint,omitempty"`
	Insecure    bool              `yaml:"insecure,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	SampleRatio float64           `yaml:"sample_ratio"`
}

type MetricsConfig struct {
	// Enabled exposes /metrics on every service.
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	Env       string          `yaml:"env"`
	HTTP      HTTPConfig      `yaml:"http"`
	AVWX      AVWXConfig      `yaml:"avwx"`
	Services  ServicesConfig  `yaml:"services"`
	Aggregate AggregateConfig `yaml:"aggregate"`
	Store     StoreConfig     `yaml:"store"`
	Redis     RedisConfig     `yaml:"redis"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Otel      OtelConfig      `yaml:"otel"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// DefaultStations is the catalog the airport service seeds when none is configured.
var DefaultStations = []string{
	"KSTL", "KSUS", "KCPS", "KALN", "KBLV", "KCOU", "KJEF",
	"KSPI", "KDEC", "KCMI", "KMDH", "KMWA", "KCGI", "KTBN",
}
