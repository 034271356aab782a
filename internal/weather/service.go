package weather

import (
	"context"
	"strings"

	"github.com/yungbote/flightwx/internal/avwx"
	"github.com/yungbote/flightwx/internal/observability"
	"github.com/yungbote/flightwx/internal/platform/logger"
)

// DefaultStation is served by the weather service root.
const DefaultStation = "KSTL"

type Source interface {
	Metar(ctx context.Context, icao string) (avwx.METAR, error)
	Taf(ctx context.Context, icao string) (avwx.TAF, error)
}

// Service serves METAR and TAF reports, consulting an optional cache first.
type Service struct {
	source  Source
	cache   Cache
	log     *logger.Logger
	metrics *observability.Metrics
}

// NewService accepts a nil cache.
func NewService(source Source, cache Cache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		source:  source,
		cache:   cache,
		log:     log.With("service", "WeatherService"),
		metrics: observability.Current(),
	}
}

func (s *Service) Metar(ctx context.Context, icao string) (avwx.METAR, error) {
	icao = normalize(icao)
	return cached(ctx, s, metarKey(icao), func(ctx context.Context) (avwx.METAR, error) {
		return s.source.Metar(ctx, icao)
	})
}

func (s *Service) Taf(ctx context.Context, icao string) (avwx.TAF, error) {
	icao = normalize(icao)
	return cached(ctx, s, tafKey(icao), func(ctx context.Context) (avwx.TAF, error) {
		return s.source.Taf(ctx, icao)
	})
}

func cached[T any](ctx context.Context, s *Service, key string, fetch func(context.Context) (T, error)) (T, error) {
	var v T
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, key, &v)
		switch {
		case err != nil:
			s.metrics.ObserveCache("error")
			s.log.Warn("cache read failed", "key", key, "error", err)
		case hit:
			s.metrics.ObserveCache("hit")
			return v, nil
		default:
			s.metrics.ObserveCache("miss")
		}
	}

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, v); err != nil {
			s.log.Warn("cache write failed", "key", key, "error", err)
		}
	}
	return v, nil
}

func normalize(icao string) string {
	icao = strings.ToUpper(strings.TrimSpace(icao))
	if icao == "" {
		return DefaultStation
	}
	return icao
}
