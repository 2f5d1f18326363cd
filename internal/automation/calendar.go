// internal/automation/calendar.go
package automation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/flightsearch-cli/internal/locator"
)

// CalendarNavigator picks a date in a multi-month calendar widget.
type CalendarNavigator struct {
	*Actions
}

// NewCalendarNavigator returns a navigator sharing a's page and timing.
func NewCalendarNavigator(a *Actions) *CalendarNavigator {
	return &CalendarNavigator{Actions: a}
}

// SelectDate opens the calendar behind trigger, finds the first rendered
// month whose label equals label and clicks the first day cell whose text
// equals day. Cells of other months are never considered.
func (n *CalendarNavigator) SelectDate(ctx context.Context, trigger locator.Target, label, day string) error {
	log := n.logger.With(zap.String("field", string(trigger)), zap.String("label", label), zap.String("day", day))

	if err := n.Click(ctx, trigger, n.timing.CalendarSettle); err != nil {
		return err
	}

	first, err := n.Await(ctx, locator.CalendarMonthGroup, nil, Visible, n.timing.CalendarTimeout)
	if err != nil {
		return fmt.Errorf("wait for %s: %w", locator.CalendarMonthGroup, err)
	}
	groups := first.Selector

	state, err := n.page.Probe(ctx, groups)
	if err != nil {
		return fmt.Errorf("count %s: %w", locator.CalendarMonthGroup, err)
	}

	month, err := n.findMonth(ctx, groups, state.Count, label)
	if err != nil {
		return err
	}
	if month == nil {
		return &DateNotFoundError{Label: label, Day: day, Stage: StageMonth}
	}

	cells, err := Compile(n.table, locator.CalendarDayCell, month)
	if err != nil {
		return err
	}
	texts, err := n.page.Texts(ctx, cells)
	if err != nil {
		return fmt.Errorf("read %s: %w", cells, err)
	}
	idx := indexOfExact(texts, day)
	if idx < 0 {
		return &DateNotFoundError{Label: label, Day: day, Stage: StageDay}
	}

	if err := n.page.Activate(ctx, ElementRef{Selector: cells, Index: idx}); err != nil {
		return fmt.Errorf("activate %s: %w", cells, err)
	}
	log.Debug("Selected date.", zap.Int("month_index", month.Index), zap.Int("day_index", idx))
	return Settle(ctx, n.timing.SettleDelay)
}

// findMonth returns the first of count month groups carrying label, or nil.
func (n *CalendarNavigator) findMonth(ctx context.Context, groups Selector, count int, label string) (*ElementRef, error) {
	for i := 0; i < count; i++ {
		group := &ElementRef{Selector: groups, Index: i}
		labels, err := Compile(n.table, locator.CalendarMonthLabel, group)
		if err != nil {
			return nil, err
		}
		texts, err := n.page.Texts(ctx, labels)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", labels, err)
		}
		if indexOfExact(texts, label) >= 0 {
			return group, nil
		}
	}
	return nil, nil
}

// indexOfExact returns the first text equal to want. Surrounding whitespace
// is trimmed first, as a rendered element's visible text would be; nothing
// else is normalized, so case and inner spacing must match exactly.
func indexOfExact(texts []string, want string) int {
	for i, t := range texts {
		if strings.TrimSpace(t) == want {
			return i
		}
	}
	return -1
}
