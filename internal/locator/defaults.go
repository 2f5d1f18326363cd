package locator

// Rules for https://flight.naver.com/. The site ships hashed class names and
// deep positional paths, so these are the entries most likely to drift; each
// one can be overridden from configuration without a rebuild.
const (
	searchFormXPath = `//*[@id="__next"]/div/main/div[2]/div/div/div[2]`

	departureXPath = searchFormXPath + `/div[1]/button[1]`
	arrivalXPath   = searchFormXPath + `/div[1]/button[2]`
	startDateXPath = searchFormXPath + `/div[2]/button[1]`
	endDateXPath   = searchFormXPath + `/div[2]/button[2]`

	searchButtonClass = "searchBox_search__dgK4Z"
	autocompleteInput = "autocomplete_input__qbYlb"
	autocompleteItem  = "autocomplete_inner__xHAxv"
	monthGroupClass   = "sc-kpDqfm.ljuuWQ.month"
	monthLabelClass   = "sc-dAlyuH.cKxEnD"

	dayCellXPath = `.//*[contains(concat(' ', normalize-space(@class), ' '), ' day ')]//b`
)

// Default returns the rule table for the Naver flight search page.
func Default() *Table {
	t, err := New(map[Target]Rule{
		DepartureButton:        {Kind: KindXPath, Value: departureXPath},
		ArrivalButton:          {Kind: KindXPath, Value: arrivalXPath},
		StartDateButton:        {Kind: KindXPath, Value: startDateXPath},
		EndDateButton:          {Kind: KindXPath, Value: endDateXPath},
		SearchButton:           {Kind: KindClass, Value: searchButtonClass, Tag: "button"},
		AutocompleteInput:      {Kind: KindClass, Value: autocompleteInput},
		AutocompleteSuggestion: {Kind: KindClass, Value: autocompleteItem},
		CalendarMonthGroup:     {Kind: KindClass, Value: monthGroupClass},
		CalendarMonthLabel:     {Kind: KindClass, Value: monthLabelClass, Within: CalendarMonthGroup},
		CalendarDayCell:        {Kind: KindXPath, Value: dayCellXPath, Within: CalendarMonthGroup},
	})
	if err != nil {
		// The built-in table is static; failing here is a programming error.
		panic(err)
	}
	return t
}
