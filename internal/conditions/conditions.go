// Package conditions runs the airport-wide METAR aggregation and shapes its
// outcomes into wire records.
package conditions

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/flightwx/internal/aggregate"
	"github.com/yungbote/flightwx/internal/avwx"
	"github.com/yungbote/flightwx/internal/platform/logger"
)

const Greeting = "Greetings and salutations, everyone!!"

type Service struct {
	ctrl *aggregate.Controller[avwx.METAR]
	opts aggregate.Options
}

func NewService(dir aggregate.Directory, detail aggregate.Detail[avwx.METAR], opts aggregate.Options, log *logger.Logger) *Service {
	return &Service{
		ctrl: aggregate.New[avwx.METAR](dir, detail, log),
		opts: opts,
	}
}

// Overrides adjusts the configured options for one run. Zero Concurrency and
// PerItemTimeout keep the configured value, as does a nil MaxAttempts. An
// explicit MaxAttempts of 0 is passed through and means a single attempt.
type Overrides struct {
	Concurrency    int
	PerItemTimeout time.Duration
	MaxAttempts    *int
}

func (o Overrides) apply(opts aggregate.Options) aggregate.Options {
	if o.Concurrency > 0 {
		opts.Concurrency = o.Concurrency
	}
	if o.PerItemTimeout > 0 {
		opts.PerItemTimeout = o.PerItemTimeout
	}
	if o.MaxAttempts != nil {
		opts.MaxAttempts = *o.MaxAttempts
	}
	return opts
}

// ParseOverrides reads concurrency, timeout and max_attempts from a query.
// timeout accepts a Go duration or a bare number of seconds.
func ParseOverrides(q url.Values) (Overrides, error) {
	var o Overrides
	var errs []error
	if v := strings.TrimSpace(q.Get("concurrency")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("concurrency must be a positive integer, got %q", v))
		}
		o.Concurrency = n
	}
	if v := strings.TrimSpace(q.Get("timeout")); v != "" {
		d, err := parseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("timeout must be a positive duration, got %q", v))
		}
		o.PerItemTimeout = d
	}
	if v := strings.TrimSpace(q.Get("max_attempts")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Errorf("max_attempts must be a non-negative integer, got %q", v))
		}
		o.MaxAttempts = &n
	}
	if err := errors.Join(errs...); err != nil {
		return Overrides{}, err
	}
	return o, nil
}

func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Start prepares one aggregation; nothing is fetched until its
// outcomes are ranged over.
func (s *Service) Start(ctx context.Context, o Overrides) (*aggregate.Run[avwx.METAR], error) {
	return s.ctrl.Aggregate(ctx, o.apply(s.opts))
}
