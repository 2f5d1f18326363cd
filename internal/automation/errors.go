// internal/automation/errors.go
package automation

import (
	"fmt"
	"time"

	"github.com/xkilldash9x/flightsearch-cli/internal/locator"
)

// Typed failures of the automation steps, meant to be classified with
// errors.As rather than by message.

// TimeoutError is returned when a wait condition is not met before its
// deadline.
type TimeoutError struct {
	Target    locator.Target
	Condition Condition
	Timeout   time.Duration
	// LastErr is the last probe error seen during the wait, if any.
	LastErr error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s to be %s", e.Timeout, e.Target, e.Condition)
	if e.LastErr != nil {
		msg += ": last probe error: " + e.LastErr.Error()
	}
	return msg
}

func (e *TimeoutError) Unwrap() error { return e.LastErr }

// ElementNotFoundError is returned when a locator yields no element at the
// moment an action needs one.
type ElementNotFoundError struct {
	Target locator.Target
	Reason string
}

func (e *ElementNotFoundError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("element not found for %s", e.Target)
	}
	return fmt.Sprintf("element not found for %s: %s", e.Target, e.Reason)
}

// DateStage tells which part of a calendar lookup failed.
type DateStage string

const (
	StageMonth DateStage = "month"
	StageDay   DateStage = "day"
)

// DateNotFoundError is returned when no rendered month carries the label or
// the matching month has no such day.
type DateNotFoundError struct {
	Label string
	Day   string
	Stage DateStage
}

func (e *DateNotFoundError) Error() string {
	if e.Stage == StageMonth {
		return fmt.Sprintf("no rendered month labelled %q", e.Label)
	}
	return fmt.Sprintf("day %q not found in month %q", e.Day, e.Label)
}

// LaunchError is returned when the browser cannot be started or attached.
type LaunchError struct {
	Driver string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %s browser: %v", e.Driver, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }
