// internal/automation/actions.go
package automation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/flightsearch-cli/internal/locator"
)

// Actions carries what every automation step needs: the page, the locator
// table, the waiter and the step timing.
type Actions struct {
	page   Page
	table  *locator.Table
	waiter *Waiter
	timing Timing
	logger *zap.Logger
}

// NewActions wires the step helpers for one page.
func NewActions(page Page, table *locator.Table, timing Timing, logger *zap.Logger) *Actions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Actions{
		page:   page,
		table:  table,
		waiter: NewWaiter(page, timing.PollInterval, logger),
		timing: timing,
		logger: logger,
	}
}

// Timing returns the step timing in use.
func (a *Actions) Timing() Timing { return a.timing }

// Await compiles target and waits for cond.
func (a *Actions) Await(ctx context.Context, target locator.Target, scope *ElementRef, cond Condition, timeout time.Duration) (ElementRef, error) {
	sel, err := Compile(a.table, target, scope)
	if err != nil {
		return ElementRef{}, err
	}
	return a.waiter.Wait(ctx, sel, cond, timeout)
}

// Click waits for target to be clickable, activates it and pauses for settle.
func (a *Actions) Click(ctx context.Context, target locator.Target, settle time.Duration) error {
	ref, err := a.Await(ctx, target, nil, Clickable, a.timing.WaitTimeout)
	if err != nil {
		return fmt.Errorf("wait for %s: %w", target, err)
	}
	if err := a.page.Activate(ctx, ref); err != nil {
		return fmt.Errorf("activate %s: %w", target, err)
	}
	a.logger.Debug("Activated element.", zap.String("target", string(target)), zap.Int("index", ref.Index))
	return Settle(ctx, settle)
}

// Submit activates the search trigger.
func (a *Actions) Submit(ctx context.Context) error {
	return a.Click(ctx, locator.SearchButton, a.timing.SettleDelay)
}
