// internal/flightsearch/query.go
package flightsearch

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the date format accepted from operators.
const DateLayout = "2006-01-02"

// ErrInvalidQuery is returned before any browser is launched when a
// TripQuery cannot be searched.
var ErrInvalidQuery = errors.New("invalid trip query")

// TripQuery is the input of one run.
type TripQuery struct {
	DepartureCity string    `json:"departure" yaml:"departure"`
	ArrivalCity   string    `json:"arrival" yaml:"arrival"`
	StartDate     time.Time `json:"start" yaml:"start"`
	EndDate       time.Time `json:"end" yaml:"end"`
}

// ParseTripQuery builds a query from operator input with dates in
// DateLayout.
func ParseTripQuery(from, to, start, end string) (TripQuery, error) {
	q := TripQuery{DepartureCity: from, ArrivalCity: to}
	var err error
	if q.StartDate, err = time.Parse(DateLayout, strings.TrimSpace(start)); err != nil {
		return q, fmt.Errorf("%w: start date %q: %v", ErrInvalidQuery, start, err)
	}
	if q.EndDate, err = time.Parse(DateLayout, strings.TrimSpace(end)); err != nil {
		return q, fmt.Errorf("%w: end date %q: %v", ErrInvalidQuery, end, err)
	}
	return q, q.Validate()
}

// Validate reports every problem with the query at once.
func (q TripQuery) Validate() error {
	var problems []string
	if strings.TrimSpace(q.DepartureCity) == "" {
		problems = append(problems, "departure city is empty")
	}
	if strings.TrimSpace(q.ArrivalCity) == "" {
		problems = append(problems, "arrival city is empty")
	}
	if q.StartDate.IsZero() {
		problems = append(problems, "start date is not set")
	}
	if q.EndDate.IsZero() {
		problems = append(problems, "end date is not set")
	}
	if !q.StartDate.IsZero() && !q.EndDate.IsZero() && q.EndDate.Before(q.StartDate) {
		problems = append(problems, "end date is before start date")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidQuery, strings.Join(problems, "; "))
	}
	return nil
}

func (q TripQuery) String() string {
	return fmt.Sprintf("%s -> %s, %s..%s", q.DepartureCity, q.ArrivalCity,
		q.StartDate.Format(DateLayout), q.EndDate.Format(DateLayout))
}
