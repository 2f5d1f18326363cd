// internal/automation/waiter.go
package automation

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Condition is the state a wait is looking for.
type Condition int

const (
	// Present is met when at least one element matches.
	Present Condition = iota
	// Visible is met when a match is rendered with a non-empty box.
	Visible
	// Clickable is met when a match is visible and not disabled.
	Clickable
)

func (c Condition) String() string {
	switch c {
	case Present:
		return "present"
	case Visible:
		return "visible"
	case Clickable:
		return "clickable"
	default:
		return "unknown"
	}
}

// index returns the element satisfying the condition, if any.
func (c Condition) index(st ElementState) (int, bool) {
	switch c {
	case Present:
		return 0, st.Count > 0
	case Visible:
		return st.FirstVisible, st.FirstVisible >= 0 && st.FirstVisible < st.Count
	case Clickable:
		return st.FirstClickable, st.FirstClickable >= 0 && st.FirstClickable < st.Count
	}
	return -1, false
}

// Timing holds the wait and pause durations shared by the steps.
type Timing struct {
	PollInterval    time.Duration
	WaitTimeout     time.Duration
	SettleDelay     time.Duration
	CalendarTimeout time.Duration
	CalendarSettle  time.Duration
}

// DefaultTiming matches the pacing the target page needs in practice.
func DefaultTiming() Timing {
	return Timing{
		PollInterval:    100 * time.Millisecond,
		WaitTimeout:     10 * time.Second,
		SettleDelay:     2 * time.Second,
		CalendarTimeout: 30 * time.Second,
		CalendarSettle:  3 * time.Second,
	}
}

// Waiter polls a Page until a selector satisfies a condition.
type Waiter struct {
	page     Page
	interval time.Duration
	logger   *zap.Logger
}

// NewWaiter creates a Waiter polling page every interval.
func NewWaiter(page Page, interval time.Duration, logger *zap.Logger) *Waiter {
	if interval <= 0 {
		interval = DefaultTiming().PollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Waiter{page: page, interval: interval, logger: logger.Named("waiter")}
}

// Wait blocks until sel satisfies cond or timeout elapses. Probe errors do not
// end the wait, since a re-rendering page routinely fails a probe or two; the
// last one is reported on the TimeoutError. Cancelling ctx returns ctx.Err().
func (w *Waiter) Wait(ctx context.Context, sel Selector, cond Condition, timeout time.Duration) (ElementRef, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	start := time.Now()
	var lastErr error
	probes := 0
	for {
		probes++
		state, err := w.page.Probe(waitCtx, sel)
		switch {
		case err != nil:
			if waitCtx.Err() == nil {
				lastErr = err
			}
		default:
			if idx, ok := cond.index(state); ok {
				w.logger.Debug("Condition met.",
					zap.Stringer("selector", sel),
					zap.Stringer("condition", cond),
					zap.Int("index", idx),
					zap.Int("probes", probes),
					zap.Duration("elapsed", time.Since(start)))
				return ElementRef{Selector: sel, Index: idx}, nil
			}
		}

		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return ElementRef{}, err
			}
			w.logger.Debug("Wait timed out.",
				zap.Stringer("selector", sel),
				zap.Stringer("condition", cond),
				zap.Int("probes", probes),
				zap.Error(lastErr))
			return ElementRef{}, &TimeoutError{
				Target:    sel.Target,
				Condition: cond,
				Timeout:   timeout,
				LastErr:   lastErr,
			}
		case <-ticker.C:
		}
	}
}

// Settle pauses for d unless ctx ends first.
func Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
