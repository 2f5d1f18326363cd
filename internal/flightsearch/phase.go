// internal/flightsearch/phase.go
package flightsearch

import "time"

// Phase is a state of the search state machine.
type Phase int

const (
	Idle Phase = iota
	FillingOrigin
	FillingDestination
	SelectingStartDate
	SelectingEndDate
	Submitting
	AwaitingUserConfirmation
	Closed
	Failed
)

var phaseNames = [...]string{
	Idle:                     "idle",
	FillingOrigin:            "filling_origin",
	FillingDestination:       "filling_destination",
	SelectingStartDate:       "selecting_start_date",
	SelectingEndDate:         "selecting_end_date",
	Submitting:               "submitting",
	AwaitingUserConfirmation: "awaiting_user_confirmation",
	Closed:                   "closed",
	Failed:                   "failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Terminal reports whether no further transition can leave p.
func (p Phase) Terminal() bool {
	return p == Closed || p == Failed
}

// MarshalText lets phases appear by name in logs and reports.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Transition records one phase change of a run.
type Transition struct {
	From Phase     `json:"from"`
	To   Phase     `json:"to"`
	At   time.Time `json:"at"`
}
