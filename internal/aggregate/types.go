package aggregate

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"
)

type EntityID string

// Directory enumerates the identifiers of one run. A non-nil error ends the
// sequence; identifiers yielded before it are still processed.
type Directory interface {
	List(ctx context.Context) iter.Seq2[EntityID, error]
}

// Detail resolves one identifier to its record.
type Detail[R any] interface {
	Get(ctx context.Context, id EntityID) (R, error)
}

type DirectoryFunc func(ctx context.Context) iter.Seq2[EntityID, error]

func (f DirectoryFunc) List(ctx context.Context) iter.Seq2[EntityID, error] { return f(ctx) }

type DetailFunc[R any] func(ctx context.Context, id EntityID) (R, error)

func (f DetailFunc[R]) Get(ctx context.Context, id EntityID) (R, error) { return f(ctx, id) }

// StaticDirectory lists a fixed set of identifiers in order.
func StaticDirectory(ids ...EntityID) Directory {
	return DirectoryFunc(func(ctx context.Context) iter.Seq2[EntityID, error] {
		return func(yield func(EntityID, error) bool) {
			for _, id := range ids {
				if !yield(id, nil) {
					return
				}
			}
		}
	})
}

type ErrorKind int

const (
	KindTransient ErrorKind = iota + 1
	KindPermanent
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

func (k ErrorKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// FetchError is the failure side of an Outcome.
type FetchError struct {
	ID       EntityID
	Kind     ErrorKind
	Attempts int

	// Code is the upstream status when the detail provider reported one.
	Code int
	Err  error
}

func (e *FetchError) Error() string {
	if e == nil {
		return ""
	}
	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("fetch %s: %s failure after %d attempt(s): %s", e.ID, e.Kind, e.Attempts, msg)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Outcome is the result of resolving one identifier. Err is nil on success.
type Outcome[R any] struct {
	ID     EntityID
	Record R
	Err    *FetchError
}

func (o Outcome[R]) OK() bool { return o.Err == nil }

type RunState int32

const (
	Running RunState = iota
	Completed
	PartialFailure
	Aborted
)

func (s RunState) String() string {
	switch s {
	case Running:
		return "running"
	case Completed:
		return "completed"
	case PartialFailure:
		return "partial_failure"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

func (s RunState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s RunState) Terminal() bool { return s != Running }

// Backoff is the delay policy between attempts of one item.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration

	// NoJitter disables the ±20% spread. Tests use it for stable timings.
	NoJitter bool
}

// Options configures one run.
type Options struct {
	Concurrency    int
	PerItemTimeout time.Duration

	// MaxAttempts bounds total attempts per item. Zero means a single attempt.
	MaxAttempts int
	Backoff     Backoff

	// Grace bounds the wait for in-flight lookups after cancellation.
	Grace time.Duration
}

const defaultGrace = 2 * time.Second

func (o Options) Validate() error {
	var errs []error
	if o.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", o.Concurrency))
	}
	if o.PerItemTimeout < 0 {
		errs = append(errs, fmt.Errorf("per-item timeout must be non-negative, got %s", o.PerItemTimeout))
	}
	if o.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("max attempts must be non-negative, got %d", o.MaxAttempts))
	}
	if o.Backoff.Initial < 0 || o.Backoff.Max < 0 {
		errs = append(errs, errors.New("backoff delays must be non-negative"))
	}
	if o.Grace < 0 {
		errs = append(errs, fmt.Errorf("grace must be non-negative, got %s", o.Grace))
	}
	return errors.Join(errs...)
}

func (o Options) attempts() int {
	if o.MaxAttempts <= 0 {
		return 1
	}
	return o.MaxAttempts
}

func (o Options) grace() time.Duration {
	if o.Grace <= 0 {
		return defaultGrace
	}
	return o.Grace
}
