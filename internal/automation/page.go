// internal/automation/page.go
package automation

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/flightsearch-cli/internal/locator"
)

// Page is the live document the automation steps operate on. Implementations
// evaluate selectors against the current render on every call; nothing is
// cached between calls.
type Page interface {
	// Probe reports how many elements the selector matches right now.
	Probe(ctx context.Context, sel Selector) (ElementState, error)
	// Texts returns the rendered text of every match in document order.
	Texts(ctx context.Context, sel Selector) ([]string, error)
	// Activate fires a direct click on the referenced element.
	Activate(ctx context.Context, ref ElementRef) error
	// TypeText focuses the referenced element and types text into it.
	TypeText(ctx context.Context, ref ElementRef, text string) error
}

// Selector is a compiled locator rule, optionally evaluated inside a scope
// element.
type Selector struct {
	Target locator.Target
	XPath  string
	Scope  *ElementRef
}

func (s Selector) String() string {
	if s.Scope != nil {
		return fmt.Sprintf("%s in %s[%d]", s.Target, s.Scope.Target, s.Scope.Index)
	}
	return string(s.Target)
}

// ElementRef points at the n-th match of a selector. It is only meaningful
// for the render it was produced from; every step resolves a fresh one.
type ElementRef struct {
	Selector
	Index int
}

// ElementState is a snapshot of a selector's matches. The index fields are
// -1 when no match qualifies.
type ElementState struct {
	Count          int `json:"count"`
	FirstVisible   int `json:"firstVisible"`
	FirstClickable int `json:"firstClickable"`
}

// NoMatch is the state of a selector with no matches.
var NoMatch = ElementState{Count: 0, FirstVisible: -1, FirstClickable: -1}

// Compile resolves target in table and compiles it to a Selector. Scoped
// rules require a scope and unscoped rules reject one.
func Compile(table *locator.Table, target locator.Target, scope *ElementRef) (Selector, error) {
	rule, err := table.Resolve(target)
	if err != nil {
		return Selector{}, err
	}
	switch {
	case rule.Scoped() && scope == nil:
		return Selector{}, fmt.Errorf("locator %s is scoped within %s but no scope element was given", target, rule.Within)
	case !rule.Scoped() && scope != nil:
		return Selector{}, fmt.Errorf("locator %s is not scoped but was given scope %s", target, scope.Target)
	case rule.Scoped() && scope.Target != rule.Within:
		return Selector{}, fmt.Errorf("locator %s is scoped within %s, got %s", target, rule.Within, scope.Target)
	}
	xp, err := rule.XPath()
	if err != nil {
		return Selector{}, fmt.Errorf("compile locator %s: %w", target, err)
	}
	return Selector{Target: target, XPath: xp, Scope: scope}, nil
}
