package aggregate

import "github.com/yungbote/flightwx/internal/config"

// OptionsFromConfig maps the aggregate config section onto run options.
func OptionsFromConfig(c config.AggregateConfig) Options {
	return Options{
		Concurrency:    c.Concurrency,
		PerItemTimeout: c.PerItemTimeout.Duration,
		MaxAttempts:    c.MaxAttempts,
		Backoff: Backoff{
			Initial: c.BackoffInitial.Duration,
			Max:     c.BackoffMax.Duration,
		},
		Grace: c.Grace.Duration,
	}
}
