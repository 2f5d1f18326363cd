package automation

import (
	"strconv"
	"time"
)

// DefaultMonthLabelLayout renders the month label as "MM.DD.".
const DefaultMonthLabelLayout = "01.02."

// MonthLabel returns the calendar header text for d in the default layout.
func MonthLabel(d time.Time) string {
	return FormatMonthLabel(d, DefaultMonthLabelLayout)
}

// FormatMonthLabel renders d with a time layout, falling back to the default
// layout when layout is empty.
func FormatMonthLabel(d time.Time, layout string) string {
	if layout == "" {
		layout = DefaultMonthLabelLayout
	}
	return d.Format(layout)
}

// DayToken is the day-of-month as shown in a day cell, without padding.
func DayToken(d time.Time) string {
	return strconv.Itoa(d.Day())
}
