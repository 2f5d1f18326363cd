package locator_test

import (
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/flightsearch-cli/internal/locator"
)

// Trimmed copy of the search page structure the default table targets.
const searchPageHTML = `
<html><body>
<div id="__next">
 <div>
  <main>
   <div></div>
   <div>
    <div>
     <div>
      <div></div>
      <div>
       <div><button id="dep">From</button><button id="arr">To</button></div>
       <div><button id="start">Depart</button><button id="end">Return</button></div>
      </div>
     </div>
    </div>
   </div>
  </main>
 </div>
</div>
<div class="searchBox_search__dgK4Z">not a button</div>
<button id="search" class="searchBox_search__dgK4Z primary">Search</button>
<input id="query" class="autocomplete_input__qbYlb" />
<ul>
 <li><a id="s1" class="autocomplete_inner__xHAxv">Seoul (ICN)</a></li>
 <li><a id="s2" class="autocomplete_inner__xHAxv">Seoul (GMP)</a></li>
</ul>
<div id="m1" class="sc-kpDqfm ljuuWQ month">
 <span class="sc-dAlyuH cKxEnD">02.05.</span>
 <div class="week"><span class="day"><b>4</b></span><span class="day selected"><b>5</b></span></div>
</div>
<div id="m2" class="sc-kpDqfm ljuuWQ month">
 <span class="sc-dAlyuH cKxEnD">03.05.</span>
 <div class="week"><span class="weekday"><b>X</b></span><span class="day"><b>5</b></span><span class="day"><b>9</b></span></div>
</div>
<div class="sc-kpDqfm month">
 <span class="sc-dAlyuH cKxEnD">ignored</span>
</div>
</body></html>
`

func parseFixture(t *testing.T) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(searchPageHTML))
	require.NoError(t, err)
	return doc
}

func compile(t *testing.T, table *locator.Table, target locator.Target) string {
	t.Helper()
	rule, err := table.Resolve(target)
	require.NoError(t, err)
	xp, err := rule.XPath()
	require.NoError(t, err)
	return xp
}

func ids(nodes []*html.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, htmlquery.SelectAttr(n, "id"))
	}
	return out
}

func texts(nodes []*html.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, htmlquery.InnerText(n))
	}
	return out
}

func TestDefaultTable_UnscopedTargets(t *testing.T) {
	doc := parseFixture(t)
	table := locator.Default()

	tests := []struct {
		target locator.Target
		want   []string
	}{
		{locator.DepartureButton, []string{"dep"}},
		{locator.ArrivalButton, []string{"arr"}},
		{locator.StartDateButton, []string{"start"}},
		{locator.EndDateButton, []string{"end"}},
		{locator.SearchButton, []string{"search"}},
		{locator.AutocompleteInput, []string{"query"}},
		{locator.AutocompleteSuggestion, []string{"s1", "s2"}},
		{locator.CalendarMonthGroup, []string{"m1", "m2"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.target), func(t *testing.T) {
			nodes, err := htmlquery.QueryAll(doc, compile(t, table, tt.target))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(nodes))
		})
	}
}

func TestDefaultTable_ScopedTargets(t *testing.T) {
	doc := parseFixture(t)
	table := locator.Default()

	groups, err := htmlquery.QueryAll(doc, compile(t, table, locator.CalendarMonthGroup))
	require.NoError(t, err)
	require.Len(t, groups, 2)

	labelXPath := compile(t, table, locator.CalendarMonthLabel)
	dayXPath := compile(t, table, locator.CalendarDayCell)
	assert.True(t, strings.HasPrefix(labelXPath, ".//"))
	assert.True(t, strings.HasPrefix(dayXPath, ".//"))

	wantLabels := [][]string{{"02.05."}, {"03.05."}}
	wantDays := [][]string{{"4", "5"}, {"5", "9"}}

	for i, group := range groups {
		labels, err := htmlquery.QueryAll(group, labelXPath)
		require.NoError(t, err)
		assert.Equal(t, wantLabels[i], texts(labels), "labels of group %d", i)

		days, err := htmlquery.QueryAll(group, dayXPath)
		require.NoError(t, err)
		assert.Equal(t, wantDays[i], texts(days), "days of group %d", i)
	}
}

func TestRule_XPath(t *testing.T) {
	tests := []struct {
		name string
		rule locator.Rule
		want string
	}{
		{
			name: "xpath verbatim",
			rule: locator.Rule{Kind: locator.KindXPath, Value: "//main/button"},
			want: "//main/button",
		},
		{
			name: "compound class",
			rule: locator.Rule{Kind: locator.KindClass, Value: "a.b", Tag: "div"},
			want: "//div[contains(concat(' ', normalize-space(@class), ' '), ' a ') and contains(concat(' ', normalize-space(@class), ' '), ' b ')]",
		},
		{
			name: "scoped text",
			rule: locator.Rule{Kind: locator.KindText, Value: "5", Tag: "b", Within: locator.CalendarMonthGroup},
			want: ".//b[.='5']",
		},
		{
			name: "role with position",
			rule: locator.Rule{Kind: locator.KindRole, Value: "button", Position: 2},
			want: "(//*[@role='button' or local-name()='button'])[2]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rule.XPath()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRule_XPathMatchesFixture(t *testing.T) {
	doc := parseFixture(t)

	tests := []struct {
		name string
		rule locator.Rule
		want []string
	}{
		{"text exact", locator.Rule{Kind: locator.KindText, Value: "Return", Tag: "button"}, []string{"end"}},
		{"text is not substring", locator.Rule{Kind: locator.KindText, Value: "Ret"}, []string{}},
		{"role nth", locator.Rule{Kind: locator.KindRole, Value: "button", Position: 3}, []string{"start"}},
		{"class tag filter", locator.Rule{Kind: locator.KindClass, Value: "searchBox_search__dgK4Z", Tag: "button"}, []string{"search"}},
		{"class all tokens", locator.Rule{Kind: locator.KindClass, Value: "ljuuWQ month"}, []string{"m1", "m2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xp, err := tt.rule.XPath()
			require.NoError(t, err)
			nodes, err := htmlquery.QueryAll(doc, xp)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(nodes))
		})
	}
}

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name string
		rule locator.Rule
	}{
		{"empty value", locator.Rule{Kind: locator.KindClass, Value: "  "}},
		{"unknown kind", locator.Rule{Kind: "css", Value: "a"}},
		{"negative position", locator.Rule{Kind: locator.KindRole, Value: "button", Position: -1}},
		{"dots only", locator.Rule{Kind: locator.KindClass, Value: ".."}},
		{"absolute scoped xpath", locator.Rule{Kind: locator.KindXPath, Value: "//b", Within: locator.CalendarMonthGroup}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			assert.ErrorIs(t, err, locator.ErrInvalidRule)
			_, err = tt.rule.XPath()
			assert.ErrorIs(t, err, locator.ErrInvalidRule)
		})
	}
}

func TestLiteral(t *testing.T) {
	assert.Equal(t, "'Seoul'", locator.Literal("Seoul"))
	assert.Equal(t, `"O'Hare"`, locator.Literal("O'Hare"))
	assert.Equal(t, `concat('a"b', "'", 'c')`, locator.Literal(`a"b'c`))
	assert.Equal(t, `concat("'", 'x"')`, locator.Literal(`'x"`))
}

func TestLiteral_RoundTripsThroughXPath(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<html><body><p id="q">say "it's"</p></body></html>`))
	require.NoError(t, err)

	rule := locator.Rule{Kind: locator.KindText, Value: `say "it's"`, Tag: "p"}
	xp, err := rule.XPath()
	require.NoError(t, err)

	node, err := htmlquery.Query(doc, xp)
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, "q", htmlquery.SelectAttr(node, "id"))
}

func TestTable_Resolve(t *testing.T) {
	table := locator.Default()

	for _, target := range locator.Targets {
		_, err := table.Resolve(target)
		assert.NoError(t, err, "target %s", target)
	}

	_, err := table.Resolve("hotel-button")
	assert.ErrorIs(t, err, locator.ErrUnknownTarget)
}

func TestNew_RejectsIncompleteTables(t *testing.T) {
	rules := locator.Default().Rules()
	delete(rules, locator.SearchButton)
	_, err := locator.New(rules)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search-button: missing rule")

	rules = locator.Default().Rules()
	rules[locator.CalendarDayCell] = locator.Rule{Kind: locator.KindText, Value: "1", Within: locator.CalendarMonthLabel}
	_, err = locator.New(rules)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is itself scoped")

	rules = locator.Default().Rules()
	rules[locator.CalendarDayCell] = locator.Rule{Kind: locator.KindText, Value: "1", Within: "nowhere"}
	_, err = locator.New(rules)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scope "nowhere" has no rule`)
}

func TestTable_With(t *testing.T) {
	base := locator.Default()

	updated, err := base.With(map[locator.Target]locator.Rule{
		locator.SearchButton:    {Kind: locator.KindText, Value: "Search", Tag: "button"},
		locator.CalendarDayCell: {Tag: "b"},
	})
	require.NoError(t, err)

	want := base.Rules()
	want[locator.SearchButton] = locator.Rule{Kind: locator.KindText, Value: "Search", Tag: "button"}
	day := want[locator.CalendarDayCell]
	day.Tag = "b"
	want[locator.CalendarDayCell] = day

	if diff := cmp.Diff(want, updated.Rules()); diff != "" {
		t.Errorf("merged table mismatch (-want +got):\n%s", diff)
	}

	// The base table is not modified.
	orig, err := base.Resolve(locator.SearchButton)
	require.NoError(t, err)
	assert.Equal(t, locator.KindClass, orig.Kind)

	_, err = base.With(map[locator.Target]locator.Rule{"hotel-button": {Kind: locator.KindText, Value: "x"}})
	assert.ErrorIs(t, err, locator.ErrUnknownTarget)

	_, err = base.With(map[locator.Target]locator.Rule{locator.SearchButton: {Kind: "css"}})
	assert.Error(t, err)
}

func TestTable_WithKeepsScope(t *testing.T) {
	updated, err := locator.Default().With(map[locator.Target]locator.Rule{
		locator.CalendarMonthLabel: {Value: "sc-new.label"},
		locator.CalendarDayCell:    {Kind: locator.KindText, Value: "1"},
	})
	require.NoError(t, err)

	label, err := updated.Resolve(locator.CalendarMonthLabel)
	require.NoError(t, err)
	assert.Equal(t, locator.CalendarMonthGroup, label.Within)
	xp, err := label.XPath()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(xp, ".//"), "scoped rules compile to a relative path, got %s", xp)

	day, err := updated.Resolve(locator.CalendarDayCell)
	require.NoError(t, err)
	assert.Equal(t, locator.Rule{Kind: locator.KindText, Value: "1", Within: locator.CalendarMonthGroup}, day)
}

func TestNew_RequiresCalendarScopes(t *testing.T) {
	rules := locator.Default().Rules()
	label := rules[locator.CalendarMonthLabel]
	label.Within = ""
	rules[locator.CalendarMonthLabel] = label

	_, err := locator.New(rules)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `calendar-month-label: must be scoped within "calendar-month-group"`)
}
