// Package automationtest provides an in-memory automation.Page for tests.
package automationtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/xkilldash9x/flightsearch-cli/internal/automation"
	"github.com/xkilldash9x/flightsearch-cli/internal/locator"
)

// Element is one fake DOM node.
type Element struct {
	Text     string
	Hidden   bool
	Disabled bool
}

// El is shorthand for a visible, enabled element with text.
func El(text string) Element { return Element{Text: text} }

// Key identifies a selector in the fake page. Scoped selectors are keyed by
// target and scope index ("calendar-day-cell@1").
func Key(target locator.Target, scopeIndex int) string {
	if scopeIndex < 0 {
		return string(target)
	}
	return fmt.Sprintf("%s@%d", target, scopeIndex)
}

func keyOf(sel automation.Selector) string {
	if sel.Scope == nil {
		return Key(sel.Target, -1)
	}
	return Key(sel.Target, sel.Scope.Index)
}

// Page is a scripted automation.Page. Elements are keyed with Key and can be
// made to appear only after a number of probes. Every action is recorded.
type Page struct {
	mu sync.Mutex

	elements    map[string][]Element
	appearAfter map[string]int
	probeErrs   map[string]error
	probes      map[string]int

	activated []string
	typed     []string
}

// NewPage returns an empty fake page.
func NewPage() *Page {
	return &Page{
		elements:    make(map[string][]Element),
		appearAfter: make(map[string]int),
		probeErrs:   make(map[string]error),
		probes:      make(map[string]int),
	}
}

// Set places elements under key.
func (p *Page) Set(key string, els ...Element) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[key] = els
	return p
}

// AppearAfter hides key's elements until it has been probed n times.
func (p *Page) AppearAfter(key string, n int) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.appearAfter[key] = n
	return p
}

// FailProbes makes every probe of key return err.
func (p *Page) FailProbes(key string, err error) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probeErrs[key] = err
	return p
}

// Activated lists activations as "key#index" in call order.
func (p *Page) Activated() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.activated...)
}

// Typed lists typed text as "key#index=text" in call order.
func (p *Page) Typed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.typed...)
}

// Probes returns how often key was probed.
func (p *Page) Probes(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.probes[key]
}

func (p *Page) visibleLocked(key string) []Element {
	if p.probes[key] < p.appearAfter[key] {
		return nil
	}
	return p.elements[key]
}

func (p *Page) Probe(ctx context.Context, sel automation.Selector) (automation.ElementState, error) {
	if err := ctx.Err(); err != nil {
		return automation.NoMatch, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	key := keyOf(sel)
	p.probes[key]++
	if err := p.probeErrs[key]; err != nil {
		return automation.NoMatch, err
	}

	state := automation.NoMatch
	els := p.visibleLocked(key)
	state.Count = len(els)
	for i, el := range els {
		if el.Hidden {
			continue
		}
		if state.FirstVisible < 0 {
			state.FirstVisible = i
		}
		if state.FirstClickable < 0 && !el.Disabled {
			state.FirstClickable = i
		}
	}
	return state, nil
}

func (p *Page) Texts(ctx context.Context, sel automation.Selector) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	els := p.visibleLocked(keyOf(sel))
	out := make([]string, 0, len(els))
	for _, el := range els {
		out = append(out, el.Text)
	}
	return out, nil
}

func (p *Page) Activate(ctx context.Context, ref automation.ElementRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	key := keyOf(ref.Selector)
	if ref.Index < 0 || ref.Index >= len(p.visibleLocked(key)) {
		return &automation.ElementNotFoundError{Target: ref.Target, Reason: fmt.Sprintf("no element at index %d", ref.Index)}
	}
	p.activated = append(p.activated, fmt.Sprintf("%s#%d", key, ref.Index))
	return nil
}

func (p *Page) TypeText(ctx context.Context, ref automation.ElementRef, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	key := keyOf(ref.Selector)
	if ref.Index < 0 || ref.Index >= len(p.visibleLocked(key)) {
		return &automation.ElementNotFoundError{Target: ref.Target, Reason: fmt.Sprintf("no element at index %d", ref.Index)}
	}
	p.typed = append(p.typed, fmt.Sprintf("%s#%d=%s", key, ref.Index, text))
	return nil
}

// NaverSearchForm populates the page with a search form showing two months:
// firstLabel and secondLabel, each with days 1..31.
func (p *Page) NaverSearchForm(firstLabel, secondLabel string, suggestions ...string) *Page {
	for _, t := range []locator.Target{
		locator.DepartureButton, locator.ArrivalButton,
		locator.StartDateButton, locator.EndDateButton,
		locator.SearchButton, locator.AutocompleteInput,
	} {
		p.Set(Key(t, -1), El(string(t)))
	}
	sugg := make([]Element, 0, len(suggestions))
	for _, s := range suggestions {
		sugg = append(sugg, El(s))
	}
	p.Set(Key(locator.AutocompleteSuggestion, -1), sugg...)

	p.Set(Key(locator.CalendarMonthGroup, -1), El(firstLabel), El(secondLabel))
	days := make([]Element, 0, 31)
	for d := 1; d <= 31; d++ {
		days = append(days, El(fmt.Sprint(d)))
	}
	for i, label := range []string{firstLabel, secondLabel} {
		p.Set(Key(locator.CalendarMonthLabel, i), El(label))
		p.Set(Key(locator.CalendarDayCell, i), days...)
	}
	return p
}
