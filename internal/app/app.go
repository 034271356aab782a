package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/flightwx/internal/aggregate"
	"github.com/yungbote/flightwx/internal/airport"
	"github.com/yungbote/flightwx/internal/avwx"
	"github.com/yungbote/flightwx/internal/conditions"
	"github.com/yungbote/flightwx/internal/config"
	"github.com/yungbote/flightwx/internal/httpapi"
	"github.com/yungbote/flightwx/internal/observability"
	"github.com/yungbote/flightwx/internal/platform/logger"
	"github.com/yungbote/flightwx/internal/store"
	"github.com/yungbote/flightwx/internal/upstream"
	"github.com/yungbote/flightwx/internal/weather"
)

// Kind names one of the flightwx services.
type Kind string

const (
	KindAirport    Kind = "airport"
	KindWeather    Kind = "weather"
	KindConditions Kind = "conditions"
	KindGateway    Kind = "gateway"
)

var Kinds = []Kind{KindAirport, KindWeather, KindConditions, KindGateway}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown service %q (want one of airport, weather, conditions, gateway)", s)
}

type App struct {
	Log    *logger.Logger
	Config *config.Config
	Kind   Kind

	server     *http.Server
	background []func(context.Context)
	closers    []func() error
}

// New wires one service. addr overrides the listen address; when empty the
// port of the service's configured URL is used, and the gateway listens on
// http.addr.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, kind Kind, addr string) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{Log: log.With("service", string(kind)), Config: cfg, Kind: kind}
	if env := strings.ToLower(cfg.Env); env == "prod" || env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	observability.Init(cfg.Metrics)
	r := httpapi.NewEngine(a.Log, cfg.HTTP, string(kind))
	var err error
	switch kind {
	case KindAirport:
		err = a.wireAirport(r)
	case KindWeather:
		err = a.wireWeather(ctx, r)
	case KindConditions:
		err = a.wireConditions(r)
	case KindGateway:
		err = a.wireGateway(r)
	default:
		err = fmt.Errorf("unknown service %q", kind)
	}
	if err != nil {
		_ = a.close()
		return nil, err
	}

	if addr == "" {
		addr = listenAddr(cfg, kind)
	}
	a.server = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Duration,
		IdleTimeout:       cfg.HTTP.IdleTimeout.Duration,
		WriteTimeout:      0,
	}
	return a, nil
}

func (a *App) wireAirport(r *gin.Engine) error {
	st, err := store.Open(a.Config.Store, a.Log)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, st.Close)
	if err := st.AutoMigrate(&airport.Airport{}); err != nil {
		return err
	}
	client, err := avwx.New(a.Config.AVWX)
	if err != nil {
		return err
	}
	repo := airport.NewRepo(st.DB(), a.Log)
	seeder := airport.NewSeeder(repo, client, a.Config.Catalog.Stations, aggregate.OptionsFromConfig(a.Config.Aggregate), a.Log)
	a.background = append(a.background, func(ctx context.Context) {
		if _, err := seeder.Seed(ctx); err != nil {
			a.Log.Error("catalog seed failed", "error", err)
		}
	})
	httpapi.NewAirportHandler(repo).Register(r)
	return nil
}

func (a *App) wireWeather(ctx context.Context, r *gin.Engine) error {
	client, err := avwx.New(a.Config.AVWX)
	if err != nil {
		return err
	}
	var cache weather.Cache
	if a.Config.Redis.Addr != "" {
		rc, err := weather.NewRedisCache(ctx, a.Config.Redis)
		if err != nil {
			a.Log.Warn("redis cache disabled", "addr", a.Config.Redis.Addr, "error", err)
		} else {
			a.closers = append(a.closers, rc.Close)
			cache = rc
		}
	}
	httpapi.NewWeatherHandler(weather.NewService(client, cache, a.Log)).Register(r)
	return nil
}

func (a *App) wireConditions(r *gin.Engine) error {
	svc, err := NewConditionsService(a.Config, a.Log)
	if err != nil {
		return err
	}
	httpapi.NewConditionsHandler(svc, a.Log).Register(r)
	return nil
}

func (a *App) wireGateway(r *gin.Engine) error {
	gw, err := httpapi.NewGatewayHandler([]httpapi.Route{
		{Prefix: "/airport-service", Target: a.Config.Services.Airport},
		{Prefix: "/weather-service", Target: a.Config.Services.Weather},
		{Prefix: "/conditions-service", Target: a.Config.Services.Conditions},
	}, a.Log)
	if err != nil {
		return err
	}
	gw.Register(r)
	return nil
}

// NewConditionsService aggregates over the configured airport and weather
// services.
func NewConditionsService(cfg *config.Config, log *logger.Logger) (*conditions.Service, error) {
	dir, err := upstream.NewAirportDirectory(cfg.Services.Airport, nil)
	if err != nil {
		return nil, err
	}
	detail, err := upstream.NewWeatherDetail(cfg.Services.Weather, nil)
	if err != nil {
		return nil, err
	}
	return conditions.NewService(dir, detail, aggregate.OptionsFromConfig(cfg.Aggregate), log), nil
}

func listenAddr(cfg *config.Config, kind Kind) string {
	var raw string
	switch kind {
	case KindAirport:
		raw = cfg.Services.Airport
	case KindWeather:
		raw = cfg.Services.Weather
	case KindConditions:
		raw = cfg.Services.Conditions
	}
	if u, err := url.Parse(raw); err == nil && u.Port() != "" {
		return net.JoinHostPort("", u.Port())
	}
	return cfg.HTTP.Addr
}

func (a *App) Handler() http.Handler { return a.server.Handler }

func (a *App) Addr() string { return a.server.Addr }

func (a *App) Run(ctx context.Context) error {
	shutdownOtel := observability.InitOTel(ctx, a.Log, a.Config.Otel, a.Config.Env, string(a.Kind))
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		if err := shutdownOtel(sctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		if err := a.close(); err != nil {
			a.Log.Warn("close failed", "error", err)
		}
	}()

	bgCtx, cancelBG := context.WithCancel(ctx)
	var wg sync.WaitGroup
	for _, fn := range a.background {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(bgCtx)
		}()
	}
	defer func() {
		cancelBG()
		wg.Wait()
	}()

	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.server.Addr, err)
	}
	a.Log.Info("listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		_ = a.server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
