package aggregate

import (
	"context"
	"iter"
	"sync/atomic"
	"time"
)

// mergeHooks lets the controller account for what the merger emits.
type mergeHooks[R any] struct {
	emit func(Outcome[R])

	// done runs exactly once, after the dispatcher drained or grace expired.
	done func(canceled, drained bool)
}

// merge exposes a dispatcher's outcome channel as a single-use sequence in
// completion order. Stopping early, or ctx being done, cancels the dispatcher
// through cancel and waits up to grace for in-flight fetches to let go of
// their slots. Outcomes completing after that point are never yielded.
func merge[R any](ctx context.Context, cancel context.CancelFunc, outcomes <-chan Outcome[R], d *Dispatcher[R], grace time.Duration, hooks mergeHooks[R]) iter.Seq[Outcome[R]] {
	var consumed atomic.Bool
	return func(yield func(Outcome[R]) bool) {
		if !consumed.CompareAndSwap(false, true) {
			return
		}

		canceled := false
		defer func() {
			cancel()
			drained := true
			if canceled {
				drained = d.WaitDrained(grace)
			} else {
				<-d.Drained()
			}
			if hooks.done != nil {
				hooks.done(canceled, drained)
			}
		}()

		for {
			select {
			case o, ok := <-outcomes:
				if !ok {
					canceled = ctx.Err() != nil
					return
				}
				if ctx.Err() != nil {
					canceled = true
					return
				}
				if hooks.emit != nil {
					hooks.emit(o)
				}
				if !yield(o) {
					canceled = true
					return
				}
			case <-ctx.Done():
				canceled = true
				return
			}
		}
	}
}
