package aggregate

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// slot is one unit of the dispatcher's concurrency budget.
type slot struct {
	once    sync.Once
	release func()
}

func (s *slot) Release() {
	s.once.Do(s.release)
}

// Dispatcher admits identifiers in production order and runs at most limit
// fetches concurrently. Outcomes are delivered on a single channel in
// completion order. A Dispatcher serves exactly one run.
type Dispatcher[R any] struct {
	fetcher *Fetcher[R]
	sem     *semaphore.Weighted

	out     chan Outcome[R]
	drained chan struct{}
	started atomic.Bool

	inFlight  atomic.Int64
	peak      atomic.Int64
	admitted  atomic.Int64
	abandoned atomic.Int64

	// streamErr is written before out is closed and read after.
	streamErr error
}

func NewDispatcher[R any](fetcher *Fetcher[R], limit int) *Dispatcher[R] {
	if limit < 1 {
		limit = 1
	}
	return &Dispatcher[R]{
		fetcher: fetcher,
		sem:     semaphore.NewWeighted(int64(limit)),
		out:     make(chan Outcome[R]),
		drained: make(chan struct{}),
	}
}

// Run starts consuming ids and returns the outcome channel. The channel is
// closed once the id sequence ends (or ctx is done) and every admitted fetch
// has either delivered its outcome or abandoned it on cancellation.
func (d *Dispatcher[R]) Run(ctx context.Context, ids iter.Seq2[EntityID, error]) <-chan Outcome[R] {
	if !d.started.CompareAndSwap(false, true) {
		panic("aggregate: Dispatcher.Run called twice")
	}
	go d.loop(ctx, ids)
	return d.out
}

func (d *Dispatcher[R]) loop(ctx context.Context, ids iter.Seq2[EntityID, error]) {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		close(d.out)
		close(d.drained)
	}()

	for id, err := range ids {
		if err != nil {
			d.streamErr = fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
			return
		}
		if ctx.Err() != nil {
			return
		}
		s, err := d.acquire(ctx)
		if err != nil {
			return
		}
		d.admitted.Add(1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.Release()
			o := d.fetcher.Fetch(ctx, id)
			select {
			case d.out <- o:
			case <-ctx.Done():
				d.abandoned.Add(1)
			}
		}()
	}
}

func (d *Dispatcher[R]) acquire(ctx context.Context) (*slot, error) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	n := d.inFlight.Add(1)
	for {
		p := d.peak.Load()
		if n <= p || d.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return &slot{release: func() {
		d.inFlight.Add(-1)
		d.sem.Release(1)
	}}, nil
}

// Err reports the directory failure that ended the id sequence, if any.
// Valid once the outcome channel is closed.
func (d *Dispatcher[R]) Err() error {
	select {
	case <-d.drained:
		return d.streamErr
	default:
		return nil
	}
}

// WaitDrained blocks until every slot is released or timeout elapses.
func (d *Dispatcher[R]) WaitDrained(timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-d.drained:
		return true
	case <-t.C:
		return false
	}
}

func (d *Dispatcher[R]) InFlight() int { return int(d.inFlight.Load()) }
func (d *Dispatcher[R]) PeakInFlight() int { return int(d.peak.Load()) }
func (d *Dispatcher[R]) Admitted() int { return int(d.admitted.Load()) }
func (d *Dispatcher[R]) Drained() <-chan struct{} { return d.drained }

// Abandoned counts fetches whose outcome was dropped because the run was
// canceled before it could be delivered.
func (d *Dispatcher[R]) Abandoned() int { return int(d.abandoned.Load()) }
