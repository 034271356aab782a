/*
Package aggregate fans a directory of identifiers out to a detail provider and
streams the merged results back in completion order.

A run is driven by a Controller:

	ctrl := aggregate.New[avwx.METAR](directory, detail, log)
	run, err := ctrl.Aggregate(ctx, aggregate.Options{
		Concurrency:    4,
		PerItemTimeout: 5 * time.Second,
		MaxAttempts:    3,
	})
	if err != nil {
		return err
	}
	for o := range run.Outcomes() {
		if o.Err != nil {
			// per-item failures are data, not errors
		}
	}
	sum := run.Summary()

The Directory is listed exactly once per run, lazily, when Outcomes is first
ranged over. At most Concurrency detail lookups are in flight at any time.
Each Directory identifier yields exactly one Outcome unless the run is
cancelled first. Breaking out of the range loop, or cancelling ctx, stops
admission of new lookups and waits up to Options.Grace for in-flight lookups
to be abandoned.

Outcomes can only be ranged over once.
*/
package aggregate
