package aggregate

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/flightwx/internal/platform/logger"
)

// Controller is the entry point of the aggregation pipeline.
type Controller[R any] struct {
	dir    Directory
	detail Detail[R]
	log    *logger.Logger
}

func New[R any](dir Directory, detail Detail[R], log *logger.Logger) *Controller[R] {
	if log == nil {
		log = logger.Nop()
	}
	return &Controller[R]{dir: dir, detail: detail, log: log.With("component", "aggregate")}
}

// Summary describes a finished run.
type Summary struct {
	RunID          string        `json:"run_id"`
	State          RunState      `json:"state"`
	Dispatched     int           `json:"dispatched"`
	Succeeded      int           `json:"succeeded"`
	Failed         int           `json:"failed"`
	Canceled       bool          `json:"canceled,omitempty"`
	Abandoned      int           `json:"abandoned,omitempty"`
	DirectoryError string        `json:"directory_error,omitempty"`
	PeakInFlight   int           `json:"peak_in_flight"`
	DurationMS     int64         `json:"duration_ms"`
	Duration       time.Duration `json:"-"`
	Err            error         `json:"-"`
}

// Run is one aggregation. Its identifiers are listed when Outcomes is first
// ranged over.
type Run[R any] struct {
	ID string

	ctrl *Controller[R]
	opts Options
	log  *logger.Logger

	state     atomic.Int32
	succeeded atomic.Int64
	failed    atomic.Int64
	emitted   atomic.Int64

	dispatcher *Dispatcher[R]
	seq        iter.Seq[Outcome[R]]
	done       chan struct{}
	summary    Summary
}

// Aggregate prepares a run. It only fails on invalid options.
func (c *Controller[R]) Aggregate(ctx context.Context, opts Options) (*Run[R], error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("aggregate options: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	id := uuid.NewString()
	r := &Run[R]{
		ID:   id,
		ctrl: c,
		opts: opts,
		log:  c.log.With("run_id", id),
		done: make(chan struct{}),
	}
	r.dispatcher = NewDispatcher(NewFetcher(c.detail, opts), opts.Concurrency)
	r.seq = r.start(ctx)
	return r, nil
}

func (r *Run[R]) start(parent context.Context) iter.Seq[Outcome[R]] {
	var started atomic.Bool
	return func(yield func(Outcome[R]) bool) {
		if !started.CompareAndSwap(false, true) {
			return
		}
		begin := time.Now()
		ctx, cancel := context.WithCancel(parent)
		r.log.Debug("run started",
			"concurrency", r.opts.Concurrency,
			"per_item_timeout", r.opts.PerItemTimeout.String(),
			"max_attempts", r.opts.attempts(),
		)

		outcomes := r.dispatcher.Run(ctx, r.ctrl.dir.List(ctx))
		seq := merge(ctx, cancel, outcomes, r.dispatcher, r.opts.grace(), mergeHooks[R]{
			emit: r.record,
			done: func(canceled, drained bool) {
				r.finish(canceled, drained, time.Since(begin))
			},
		})
		seq(yield)
	}
}

// Outcomes yields every outcome in completion order. It can be ranged over
// once; later calls yield nothing.
func (r *Run[R]) Outcomes() iter.Seq[Outcome[R]] { return r.seq }

// Done is closed once the run reached a terminal state.
func (r *Run[R]) Done() <-chan struct{} { return r.done }

func (r *Run[R]) State() RunState { return RunState(r.state.Load()) }

// Summary is only meaningful after Done is closed; before that it reports a
// Running state with live counters.
func (r *Run[R]) Summary() Summary {
	select {
	case <-r.done:
		return r.summary
	default:
		return Summary{
			RunID:        r.ID,
			State:        r.State(),
			Dispatched:   r.dispatcher.Admitted(),
			Succeeded:    int(r.succeeded.Load()),
			Failed:       int(r.failed.Load()),
			PeakInFlight: r.dispatcher.PeakInFlight(),
		}
	}
}

// Dispatcher exposes the run's dispatcher for inspection.
func (r *Run[R]) Dispatcher() *Dispatcher[R] { return r.dispatcher }

func (r *Run[R]) record(o Outcome[R]) {
	r.emitted.Add(1)
	if o.OK() {
		r.succeeded.Add(1)
		return
	}
	r.failed.Add(1)
	r.log.Warn("item failed",
		"id", string(o.ID),
		"kind", o.Err.Kind.String(),
		"attempts", o.Err.Attempts,
		"code", o.Err.Code,
		"error", o.Err.Err,
	)
}

func (r *Run[R]) transition(to RunState) bool {
	return r.state.CompareAndSwap(int32(Running), int32(to))
}

func (r *Run[R]) finish(canceled, drained bool, took time.Duration) {
	dirErr := r.dispatcher.Err()
	admitted := r.dispatcher.Admitted()
	failed := int(r.failed.Load())
	emitted := int(r.emitted.Load())

	var state RunState
	switch {
	case dirErr != nil && admitted == 0:
		state = Aborted
	case canceled && emitted == 0:
		state = Aborted
	case canceled:
		if failed > 0 || dirErr != nil {
			state = PartialFailure
		} else {
			state = Aborted
		}
	case dirErr != nil || failed > 0:
		state = PartialFailure
	default:
		state = Completed
	}
	r.transition(state)

	sum := Summary{
		RunID:        r.ID,
		State:        r.State(),
		Dispatched:   admitted,
		Succeeded:    int(r.succeeded.Load()),
		Failed:       failed,
		Canceled:     canceled,
		Abandoned:    r.dispatcher.Abandoned(),
		PeakInFlight: r.dispatcher.PeakInFlight(),
		DurationMS:   took.Milliseconds(),
		Duration:     took,
	}
	var errs []error
	if dirErr != nil {
		sum.DirectoryError = dirErr.Error()
		errs = append(errs, dirErr)
	}
	if canceled {
		errs = append(errs, ErrCanceled)
	}
	sum.Err = errors.Join(errs...)
	r.summary = sum

	fields := []interface{}{
		"state", sum.State.String(),
		"dispatched", sum.Dispatched,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"peak_in_flight", sum.PeakInFlight,
		"duration_ms", sum.DurationMS,
	}
	if dirErr != nil {
		fields = append(fields, "directory_error", dirErr)
	}
	if sum.Abandoned > 0 {
		fields = append(fields, "abandoned", sum.Abandoned)
	}
	if !drained {
		fields = append(fields, "in_flight", r.dispatcher.InFlight())
		r.log.Warn("grace period expired before in-flight fetches were released", fields...)
	}
	switch sum.State {
	case Completed:
		r.log.Info("run finished", fields...)
	default:
		r.log.Warn("run finished", fields...)
	}
	close(r.done)
}

// Collect drains a run and returns its outcomes and summary.
func Collect[R any](run *Run[R]) ([]Outcome[R], Summary) {
	var out []Outcome[R]
	for o := range run.Outcomes() {
		out = append(out, o)
	}
	<-run.Done()
	return out, run.Summary()
}
