package airport

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/flightwx/internal/aggregate"
	"github.com/yungbote/flightwx/internal/avwx"
	"github.com/yungbote/flightwx/internal/observability"
	"github.com/yungbote/flightwx/internal/platform/dbctx"
	"github.com/yungbote/flightwx/internal/platform/logger"
)

// StationSource resolves a station id to its AVWX station report.
type StationSource interface {
	Station(ctx context.Context, icao string) (avwx.Station, error)
}

// Seeder rebuilds the catalog from a fixed list of station ids.
type Seeder struct {
	repo     Repo
	source   StationSource
	stations []aggregate.EntityID
	opts     aggregate.Options
	log      *logger.Logger
}

type SeedReport struct {
	Summary aggregate.Summary
	Saved   int
	Failed  []aggregate.EntityID
}

func NewSeeder(repo Repo, source StationSource, stations []string, opts aggregate.Options, log *logger.Logger) *Seeder {
	if log == nil {
		log = logger.Nop()
	}
	ids := make([]aggregate.EntityID, 0, len(stations))
	for _, s := range stations {
		ids = append(ids, aggregate.EntityID(s))
	}
	return &Seeder{
		repo:     repo,
		source:   source,
		stations: ids,
		opts:     opts,
		log:      log.With("component", "AirportSeeder"),
	}
}

// Seed clears the catalog, then saves every station that resolves. Stations
// that fail are logged and listed in the report. It returns an error only if
// the catalog cannot be cleared or written.
func (s *Seeder) Seed(ctx context.Context) (SeedReport, error) {
	var report SeedReport
	dbc := dbctx.New(ctx)
	if err := s.repo.DeleteAll(dbc); err != nil {
		return report, fmt.Errorf("clear catalog: %w", err)
	}

	detail := aggregate.DetailFunc[avwx.Station](func(ctx context.Context, id aggregate.EntityID) (avwx.Station, error) {
		return s.source.Station(ctx, string(id))
	})
	run, err := aggregate.New[avwx.Station](aggregate.StaticDirectory(s.stations...), detail, s.log).Aggregate(ctx, s.opts)
	if err != nil {
		return report, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.opts.Concurrency))
	saved := make(chan struct{}, len(s.stations))
	for o := range run.Outcomes() {
		if !o.OK() {
			report.Failed = append(report.Failed, o.ID)
			s.log.Warn("station not seeded", "icao", string(o.ID), "kind", o.Err.Kind.String(), "error", o.Err.Err)
			continue
		}
		ap := FromStation(o.Record)
		if ap.ICAO == "" {
			ap.ICAO = string(o.ID)
		}
		g.Go(func() error {
			if err := s.repo.Save(dbctx.New(gctx), ap); err != nil {
				return fmt.Errorf("save %s: %w", ap.ICAO, err)
			}
			saved <- struct{}{}
			return nil
		})
	}
	<-run.Done()
	werr := g.Wait()
	close(saved)
	for range saved {
		report.Saved++
	}
	report.Summary = run.Summary()
	observability.Current().ObserveSeed(report.Saved, len(report.Failed))

	s.log.Info("catalog seeded",
		"state", report.Summary.State.String(),
		"saved", report.Saved,
		"failed", len(report.Failed),
	)
	return report, werr
}
