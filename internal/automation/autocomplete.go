// internal/automation/autocomplete.go
package automation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/flightsearch-cli/internal/locator"
)

// MatchPolicy decides which autocomplete suggestion gets selected.
type MatchPolicy string

const (
	// MatchFirst takes the first visible suggestion.
	MatchFirst MatchPolicy = "first"
	// MatchContains takes the first suggestion whose text contains the query,
	// ignoring case.
	MatchContains MatchPolicy = "contains"
)

// Valid reports whether p is a known policy.
func (p MatchPolicy) Valid() bool {
	return p == MatchFirst || p == MatchContains
}

// AutocompleteFiller drives a text field whose value must be picked from a
// suggestion list.
type AutocompleteFiller struct {
	*Actions
	match MatchPolicy
}

// NewAutocompleteFiller returns a filler using the given suggestion policy.
// An empty policy means MatchFirst.
func NewAutocompleteFiller(a *Actions, match MatchPolicy) *AutocompleteFiller {
	if match == "" {
		match = MatchFirst
	}
	return &AutocompleteFiller{Actions: a, match: match}
}

// Fill opens the field behind trigger, types query and selects a suggestion.
func (f *AutocompleteFiller) Fill(ctx context.Context, trigger locator.Target, query string) error {
	log := f.logger.With(zap.String("field", string(trigger)), zap.String("query", query))

	if err := f.Click(ctx, trigger, f.timing.SettleDelay); err != nil {
		return err
	}

	input, err := f.Await(ctx, locator.AutocompleteInput, nil, Visible, f.timing.WaitTimeout)
	if err != nil {
		return fmt.Errorf("wait for %s: %w", locator.AutocompleteInput, err)
	}
	if err := f.page.TypeText(ctx, input, query); err != nil {
		return fmt.Errorf("type into %s: %w", locator.AutocompleteInput, err)
	}
	if err := Settle(ctx, f.timing.SettleDelay); err != nil {
		return err
	}

	first, err := f.Await(ctx, locator.AutocompleteSuggestion, nil, Visible, f.timing.WaitTimeout)
	if err != nil {
		return fmt.Errorf("wait for %s: %w", locator.AutocompleteSuggestion, err)
	}

	choice := first
	if f.match == MatchContains {
		choice, err = f.pickContaining(ctx, first.Selector, query)
		if err != nil {
			return err
		}
	}

	if err := f.page.Activate(ctx, choice); err != nil {
		return fmt.Errorf("activate %s: %w", locator.AutocompleteSuggestion, err)
	}
	log.Debug("Selected suggestion.", zap.Int("index", choice.Index), zap.String("policy", string(f.match)))
	return Settle(ctx, f.timing.SettleDelay)
}

func (f *AutocompleteFiller) pickContaining(ctx context.Context, sel Selector, query string) (ElementRef, error) {
	texts, err := f.page.Texts(ctx, sel)
	if err != nil {
		return ElementRef{}, fmt.Errorf("read %s: %w", sel.Target, err)
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	for i, text := range texts {
		if strings.Contains(strings.ToLower(text), needle) {
			return ElementRef{Selector: sel, Index: i}, nil
		}
	}
	return ElementRef{}, &ElementNotFoundError{
		Target: sel.Target,
		Reason: fmt.Sprintf("none of %d suggestions contains %q", len(texts), query),
	}
}
