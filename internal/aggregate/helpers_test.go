package aggregate_test

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yungbote/flightwx/internal/aggregate"
)

func ids(n int) []aggregate.EntityID {
	out := make([]aggregate.EntityID, n)
	for i := range out {
		out[i] = aggregate.EntityID(fmt.Sprintf("K%03d", i))
	}
	return out
}

// failingDirectory yields ids and then err.
func failingDirectory(err error, ids ...aggregate.EntityID) aggregate.Directory {
	return aggregate.DirectoryFunc(func(ctx context.Context) iter.Seq2[aggregate.EntityID, error] {
		return func(yield func(aggregate.EntityID, error) bool) {
			for _, id := range ids {
				if !yield(id, nil) {
					return
				}
			}
			yield("", err)
		}
	})
}

// countingDirectory counts List calls.
type countingDirectory struct {
	ids   []aggregate.EntityID
	calls atomic.Int32
}

func (d *countingDirectory) List(ctx context.Context) iter.Seq2[aggregate.EntityID, error] {
	d.calls.Add(1)
	return aggregate.StaticDirectory(d.ids...).List(ctx)
}

type record struct {
	ID string
}

// fakeDetail records concurrency and per-id attempts. behave decides what
// one call does; nil behave succeeds after delay.
type fakeDetail struct {
	delay  time.Duration
	behave func(ctx context.Context, id aggregate.EntityID, attempt int) error

	mu       sync.Mutex
	attempts map[aggregate.EntityID]int
	calls    atomic.Int64
	active   atomic.Int64
	peak     atomic.Int64
}

func (d *fakeDetail) Get(ctx context.Context, id aggregate.EntityID) (record, error) {
	d.calls.Add(1)
	n := d.active.Add(1)
	defer d.active.Add(-1)
	for {
		p := d.peak.Load()
		if n <= p || d.peak.CompareAndSwap(p, n) {
			break
		}
	}

	d.mu.Lock()
	if d.attempts == nil {
		d.attempts = map[aggregate.EntityID]int{}
	}
	d.attempts[id]++
	attempt := d.attempts[id]
	d.mu.Unlock()

	if d.delay > 0 {
		select {
		case <-ctx.Done():
			return record{}, ctx.Err()
		case <-time.After(d.delay):
		}
	}
	if d.behave != nil {
		if err := d.behave(ctx, id, attempt); err != nil {
			return record{}, err
		}
	}
	return record{ID: string(id)}, nil
}

func (d *fakeDetail) attemptsFor(id aggregate.EntityID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts[id]
}

// hang blocks until ctx is done.
func hang(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func fastOptions(k int) aggregate.Options {
	return aggregate.Options{
		Concurrency:    k,
		PerItemTimeout: 200 * time.Millisecond,
		MaxAttempts:    3,
		Backoff:        aggregate.Backoff{Initial: time.Millisecond, Max: 5 * time.Millisecond, NoJitter: true},
		Grace:          time.Second,
	}
}

func statusByID(outs []aggregate.Outcome[record]) map[aggregate.EntityID]bool {
	m := make(map[aggregate.EntityID]bool, len(outs))
	for _, o := range outs {
		m[o.ID] = o.OK()
	}
	return m
}
