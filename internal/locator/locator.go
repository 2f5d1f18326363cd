// internal/locator/locator.go
package locator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Target names one logical element of the flight search page.
type Target string

const (
	DepartureButton        Target = "departure-button"
	ArrivalButton          Target = "arrival-button"
	StartDateButton        Target = "start-date-button"
	EndDateButton          Target = "end-date-button"
	SearchButton           Target = "search-button"
	AutocompleteInput      Target = "autocomplete-input"
	AutocompleteSuggestion Target = "autocomplete-suggestion"
	CalendarMonthGroup     Target = "calendar-month-group"
	CalendarMonthLabel     Target = "calendar-month-label"
	CalendarDayCell        Target = "calendar-day-cell"
)

// Targets lists every logical target in the order the automation uses them.
var Targets = []Target{
	DepartureButton,
	ArrivalButton,
	StartDateButton,
	EndDateButton,
	SearchButton,
	AutocompleteInput,
	AutocompleteSuggestion,
	CalendarMonthGroup,
	CalendarMonthLabel,
	CalendarDayCell,
}

// Kind is the lookup strategy of a Rule.
type Kind string

const (
	// KindXPath uses Value verbatim. Scoped rules must use a relative path.
	KindXPath Kind = "xpath"
	// KindClass matches elements carrying every class token in Value.
	// Tokens may be separated by dots or whitespace ("a.b" or "a b").
	KindClass Kind = "class"
	// KindText matches elements whose string value equals Value exactly.
	KindText Kind = "text"
	// KindRole matches an ARIA role or a native element of the same name.
	KindRole Kind = "role"
)

var (
	// ErrUnknownTarget is returned when a table has no rule for a target.
	ErrUnknownTarget = errors.New("unknown locator target")
	// ErrInvalidRule is returned for rules that cannot be compiled.
	ErrInvalidRule = errors.New("invalid locator rule")
)

// Rule is a page-specific instruction for finding one element.
type Rule struct {
	Kind  Kind   `mapstructure:"kind" yaml:"kind"`
	Value string `mapstructure:"value" yaml:"value"`
	// Tag restricts class, text and role matches to one element name.
	Tag string `mapstructure:"tag" yaml:"tag,omitempty"`
	// Position selects the n-th (1-based) match in document order.
	Position int `mapstructure:"position" yaml:"position,omitempty"`
	// Within scopes the rule to an element located by another target.
	Within Target `mapstructure:"within" yaml:"within,omitempty"`
}

// Scoped reports whether the rule is evaluated inside another element.
func (r Rule) Scoped() bool { return r.Within != "" }

// Validate checks the rule without resolving its scope.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Value) == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidRule)
	}
	if r.Position < 0 {
		return fmt.Errorf("%w: negative position %d", ErrInvalidRule, r.Position)
	}
	switch r.Kind {
	case KindXPath:
		if r.Scoped() && !strings.HasPrefix(r.Value, ".") {
			return fmt.Errorf("%w: xpath scoped within %q must be relative, got %q", ErrInvalidRule, r.Within, r.Value)
		}
	case KindClass:
		if len(classTokens(r.Value)) == 0 {
			return fmt.Errorf("%w: no class tokens in %q", ErrInvalidRule, r.Value)
		}
	case KindText, KindRole:
	default:
		return fmt.Errorf("%w: unsupported kind %q", ErrInvalidRule, r.Kind)
	}
	return nil
}

// XPath compiles the rule into one XPath 1.0 expression. Scoped rules
// compile to a path relative to the scope element.
func (r Rule) XPath() (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}

	prefix := "//"
	if r.Scoped() {
		prefix = ".//"
	}
	tag := r.Tag
	if tag == "" {
		tag = "*"
	}

	var expr string
	switch r.Kind {
	case KindXPath:
		expr = r.Value
	case KindClass:
		conds := make([]string, 0, 4)
		for _, tok := range classTokens(r.Value) {
			conds = append(conds, fmt.Sprintf("contains(concat(' ', normalize-space(@class), ' '), ' %s ')", tok))
		}
		expr = prefix + tag + "[" + strings.Join(conds, " and ") + "]"
	case KindText:
		expr = prefix + tag + "[.=" + Literal(r.Value) + "]"
	case KindRole:
		lit := Literal(r.Value)
		expr = prefix + tag + "[@role=" + lit + " or local-name()=" + lit + "]"
	}

	if r.Position > 0 {
		expr = fmt.Sprintf("(%s)[%d]", expr, r.Position)
	}
	return expr, nil
}

// String renders the rule for logs.
func (r Rule) String() string {
	var b strings.Builder
	b.WriteString(string(r.Kind))
	b.WriteString(":")
	b.WriteString(r.Value)
	if r.Tag != "" {
		b.WriteString(" tag=" + r.Tag)
	}
	if r.Position > 0 {
		fmt.Fprintf(&b, " position=%d", r.Position)
	}
	if r.Within != "" {
		b.WriteString(" within=" + string(r.Within))
	}
	return b.String()
}

// Literal quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so strings holding both quote kinds are built with concat().
func Literal(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	out := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			out = append(out, `"'"`)
		}
		if p != "" {
			out = append(out, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(out, ", ") + ")"
}

func classTokens(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == '.' || r == ' ' || r == '\t' || r == '\n'
	})
}

// requiredScopes pins the targets that are only meaningful inside one
// calendar month.
var requiredScopes = map[Target]Target{
	CalendarMonthLabel: CalendarMonthGroup,
	CalendarDayCell:    CalendarMonthGroup,
}

// Table maps every logical target to exactly one rule.
type Table struct {
	rules map[Target]Rule
}

// New builds a table and validates it. Every known target must be present
// and scopes may only reference unscoped targets.
func New(rules map[Target]Rule) (*Table, error) {
	t := &Table{rules: make(map[Target]Rule, len(rules))}
	for target, rule := range rules {
		t.rules[target] = rule
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks every rule and scope reference in the table.
func (t *Table) Validate() error {
	var problems []string
	for _, target := range Targets {
		if _, ok := t.rules[target]; !ok {
			problems = append(problems, fmt.Sprintf("%s: missing rule", target))
		}
	}
	for target, scope := range requiredScopes {
		if rule, ok := t.rules[target]; ok && rule.Within != scope {
			problems = append(problems, fmt.Sprintf("%s: must be scoped within %q", target, scope))
		}
	}
	for target, rule := range t.rules {
		if err := rule.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", target, err))
			continue
		}
		if !rule.Scoped() {
			continue
		}
		parent, ok := t.rules[rule.Within]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("%s: scope %q has no rule", target, rule.Within))
		case parent.Scoped():
			problems = append(problems, fmt.Sprintf("%s: scope %q is itself scoped", target, rule.Within))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("locator table invalid: %s", strings.Join(problems, "; "))
}

// Resolve returns the rule for target.
func (t *Table) Resolve(target Target) (Rule, error) {
	rule, ok := t.rules[target]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	return rule, nil
}

// With returns a copy of the table with overrides applied. Override fields
// left empty keep the value of the rule they replace. Changing Kind also
// clears the replaced rule's Tag and Position; Within is kept unless the
// override names a new scope.
func (t *Table) With(overrides map[Target]Rule) (*Table, error) {
	merged := t.Rules()
	for target, o := range overrides {
		rule, ok := merged[target]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
		}
		if o.Kind != "" && o.Kind != rule.Kind {
			rule.Kind, rule.Tag, rule.Position = o.Kind, "", 0
		}
		if o.Value != "" {
			rule.Value = o.Value
		}
		if o.Tag != "" {
			rule.Tag = o.Tag
		}
		if o.Position != 0 {
			rule.Position = o.Position
		}
		if o.Within != "" {
			rule.Within = o.Within
		}
		merged[target] = rule
	}
	return New(merged)
}

// Rules returns a copy of the table's rules.
func (t *Table) Rules() map[Target]Rule {
	out := make(map[Target]Rule, len(t.rules))
	for k, v := range t.rules {
		out[k] = v
	}
	return out
}
