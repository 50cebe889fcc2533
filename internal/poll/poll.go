// Package poll implements a cancellable bounded wait: sleep an interval, check a
// condition, repeat until it holds, the deadline passes or the context ends.
package poll

import (
	"context"
	"time"

	"k8s.io/utils/clock"
)

// Outcome is how a wait ended.
type Outcome int

const (
	Succeeded Outcome = iota
	TimedOut
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Condition reports whether the awaited state was reached. A non-nil error is a
// transient failure: it is handed to OnError and the wait continues.
type Condition func(ctx context.Context) (bool, error)

type Options struct {
	Interval time.Duration
	Timeout  time.Duration
	// Start anchors the deadline when set; otherwise it is the call time.
	Start time.Time
	// Clock defaults to the real clock.
	Clock clock.Clock
	// OnError observes transient condition failures.
	OnError func(attempt int, err error)
	// OnTimeout runs once when the deadline passes without success.
	OnTimeout func(elapsed time.Duration, attempts int)
}

// Result describes a finished wait.
type Result struct {
	Outcome  Outcome
	Attempts int
	Elapsed  time.Duration
}

// Until sleeps one interval before every check. The deadline is measured from
// opts.Start, or from the call when Start is zero.
func Until(ctx context.Context, opts Options, cond Condition) Result {
	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	start := opts.Start
	if start.IsZero() {
		start = clk.Now()
	}
	attempts := 0

	for clk.Since(start) < opts.Timeout {
		t := clk.NewTimer(opts.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return Result{Outcome: Cancelled, Attempts: attempts, Elapsed: clk.Since(start)}
		case <-t.C():
		}

		attempts++
		done, err := cond(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Result{Outcome: Cancelled, Attempts: attempts, Elapsed: clk.Since(start)}
			}
			if opts.OnError != nil {
				opts.OnError(attempts, err)
			}
			continue
		}
		if done {
			return Result{Outcome: Succeeded, Attempts: attempts, Elapsed: clk.Since(start)}
		}
	}

	elapsed := clk.Since(start)
	if opts.OnTimeout != nil {
		opts.OnTimeout(elapsed, attempts)
	}
	return Result{Outcome: TimedOut, Attempts: attempts, Elapsed: elapsed}
}
