package workflow

import (
	"context"
	"fmt"
	"time"

	"subscraper/pkg/events"
)

// DaemonOptions controls the repeat loop.
type DaemonOptions struct {
	// Interval is the pause between the end of one run and the start
	// of the next
	Interval time.Duration
	// MaxRuns stops the loop after this many runs (0 means run until
	// the context is cancelled)
	MaxRuns int
}

// RunDaemon repeats the scrape until the context is cancelled or
// MaxRuns is reached. Failures of individual runs are logged and the
// loop continues; only cancellation stops it.
func (w *Workflow) RunDaemon(ctx context.Context, opts Options, daemon DaemonOptions) error {
	if daemon.Interval <= 0 {
		return fmt.Errorf("daemon interval must be positive")
	}

	run := 0
	for {
		run++
		w.hub.Emit(events.Event{Type: events.DaemonRun, Run: run})
		w.logger.InfoWithFields("Daemon run starting", map[string]interface{}{
			"run": run,
		})

		if _, err := w.Run(ctx, opts); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.ErrorWithFields("Daemon run failed", map[string]interface{}{
				"run":   run,
				"error": err.Error(),
			})
		}

		if daemon.MaxRuns > 0 && run >= daemon.MaxRuns {
			return nil
		}
		if err := w.countdown(ctx, daemon.Interval, run); err != nil {
			return err
		}
	}
}

// countdown waits out the interval, emitting a countdown event each
// second so the UI can show time to the next run.
func (w *Workflow) countdown(ctx context.Context, interval time.Duration, run int) error {
	deadline := time.Now().Add(interval)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		if remaining >= time.Second {
			w.hub.Countdown(int(remaining.Round(time.Second)/time.Second), run)
		}
		step := remaining
		if step > time.Second {
			step = time.Second
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(step):
		}
	}
}
