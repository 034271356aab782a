package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/flightwx/internal/aggregate"
	"github.com/yungbote/flightwx/internal/app"
	"github.com/yungbote/flightwx/internal/conditions"
	"github.com/yungbote/flightwx/internal/platform/shutdown"
)

type SummaryOptions struct {
	*RootOptions
	Concurrency int
	Timeout     time.Duration
	MaxAttempts int
	AirportURL  string
	WeatherURL  string
}

func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SummaryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Fetch the current METAR of every catalogued airport",
		Long: `Aggregate current METARs for every airport the airport service lists,
printing each result as it arrives and a summary at the end.

Exits 1 when the run aborts, for example when the airport list is unavailable.

Example:
  flightwx summary --concurrency 8 --timeout 3s
  flightwx summary --format json --max-attempts 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "max in-flight METAR fetches (default from config)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "per-attempt timeout (default from config)")
	cmd.Flags().IntVar(&opts.MaxAttempts, "max-attempts", 0, "attempts per airport, first call included (default from config)")
	cmd.Flags().StringVar(&opts.AirportURL, "airport-url", "", "airport service base URL (overrides services.airport)")
	cmd.Flags().StringVar(&opts.WeatherURL, "weather-url", "", "weather service base URL (overrides services.weather)")
	return cmd
}

func runSummary(cmd *cobra.Command, opts *SummaryOptions) error {
	if opts.Concurrency < 0 || opts.Timeout < 0 || opts.MaxAttempts < 0 {
		return NewExitError(ExitCommandError, "--concurrency, --timeout and --max-attempts must not be negative")
	}
	cfg, log, err := opts.load()
	if err != nil {
		return err
	}
	defer log.Sync()
	if opts.AirportURL != "" {
		cfg.Services.Airport = opts.AirportURL
	}
	if opts.WeatherURL != "" {
		cfg.Services.Weather = opts.WeatherURL
	}

	svc, err := app.NewConditionsService(cfg, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "summary", err)
	}

	ctx, stop := shutdown.NotifyContext(cmd.Context())
	defer stop()

	over := conditions.Overrides{
		Concurrency:    opts.Concurrency,
		PerItemTimeout: opts.Timeout,
	}
	if cmd.Flags().Changed("max-attempts") {
		over.MaxAttempts = &opts.MaxAttempts
	}
	run, err := svc.Start(ctx, over)
	if err != nil {
		return WrapExitError(ExitCommandError, "summary", err)
	}

	p := newPrinter(opts.Format, cmd.OutOrStdout())
	for o := range run.Outcomes() {
		if err := p.Outcome(conditions.NewRecord(o)); err != nil {
			return WrapExitError(ExitCommandError, "write output", err)
		}
	}
	<-run.Done()
	sum := run.Summary()
	if err := p.Summary(sum); err != nil {
		return WrapExitError(ExitCommandError, "write output", err)
	}
	if sum.State == aggregate.Aborted {
		return WrapExitError(ExitFailure, fmt.Sprintf("run %s aborted", sum.RunID), sum.Err)
	}
	return nil
}
