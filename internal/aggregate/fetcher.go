package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/flightwx/internal/platform/httpx"
)

const tracerName = "github.com/yungbote/flightwx/internal/aggregate"

// Delay returns the wait before retry n (n >= 1): Initial doubled per retry,
// capped at Max.
func (b Backoff) Delay(n int) time.Duration {
	if b.Initial <= 0 || n <= 0 {
		return 0
	}
	d := b.Initial
	for i := 1; i < n; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			d = b.Max
			break
		}
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	if b.NoJitter {
		return d
	}
	return httpx.JitterSleep(d)
}

// Fetcher resolves one identifier through a Detail, with a per-attempt
// timeout and bounded retries of transient failures.
type Fetcher[R any] struct {
	detail      Detail[R]
	timeout     time.Duration
	maxAttempts int
	backoff     Backoff
	tracer      trace.Tracer
}

func NewFetcher[R any](detail Detail[R], opts Options) *Fetcher[R] {
	return &Fetcher[R]{
		detail:      detail,
		timeout:     opts.PerItemTimeout,
		maxAttempts: opts.attempts(),
		backoff:     opts.Backoff,
		tracer:      otel.Tracer(tracerName),
	}
}

// Fetch always returns an Outcome; failures are reported in Outcome.Err.
func (f *Fetcher[R]) Fetch(ctx context.Context, id EntityID) Outcome[R] {
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		attempts = attempt
		rec, err := f.attempt(ctx, id, attempt)
		if err == nil {
			return Outcome[R]{ID: id, Record: rec}
		}
		lastErr = err

		kind := Classify(ctx, err)
		if kind != KindTransient {
			return failure[R](id, kind, attempt, err)
		}
		if attempt == f.maxAttempts {
			break
		}
		if err := httpx.Sleep(ctx, f.retryDelay(attempt, lastErr)); err != nil {
			return failure[R](id, KindCanceled, attempt, errors.Join(ErrCanceled, lastErr))
		}
	}
	return failure[R](id, KindTransient, attempts, lastErr)
}

// retryDelay honors an upstream Retry-After hint, bounded by Backoff.Max.
func (f *Fetcher[R]) retryDelay(attempt int, err error) time.Duration {
	d := f.backoff.Delay(attempt)
	if ra := httpx.RetryAfter(err); ra > d {
		d = ra
		if f.backoff.Max > 0 && d > f.backoff.Max {
			d = f.backoff.Max
		}
	}
	return d
}

type attemptResult[R any] struct {
	rec R
	err error
}

func (f *Fetcher[R]) attempt(ctx context.Context, id EntityID, n int) (R, error) {
	ctx, span := f.tracer.Start(ctx, "aggregate.fetch", trace.WithAttributes(
		attribute.String("entity.id", string(id)),
		attribute.Int("attempt", n),
	))
	defer span.End()

	actx := ctx
	cancel := context.CancelFunc(func() {})
	if f.timeout > 0 {
		actx, cancel = context.WithTimeout(ctx, f.timeout)
	}
	defer cancel()

	// The call runs in its own goroutine so a provider that ignores ctx is
	// still abandoned at the deadline. The buffer lets it finish unobserved.
	ch := make(chan attemptResult[R], 1)
	go func() {
		rec, err := f.detail.Get(actx, id)
		ch <- attemptResult[R]{rec: rec, err: err}
	}()

	var res attemptResult[R]
	timedOut := false
	select {
	case res = <-ch:
	case <-actx.Done():
		res.err = actx.Err()
		timedOut = true
	}

	if res.err != nil && ctx.Err() == nil && (timedOut || errors.Is(res.err, context.DeadlineExceeded)) {
		res.err = fmt.Errorf("%w: %s after %s: %w", ErrDetailTimeout, id, f.timeout, res.err)
	}
	if res.err != nil {
		span.RecordError(res.err)
		span.SetStatus(codes.Error, res.err.Error())
	}
	return res.rec, res.err
}

func failure[R any](id EntityID, kind ErrorKind, attempts int, err error) Outcome[R] {
	return Outcome[R]{
		ID: id,
		Err: &FetchError{
			ID:       id,
			Kind:     kind,
			Attempts: attempts,
			Code:     httpx.StatusCode(err),
			Err:      err,
		},
	}
}
