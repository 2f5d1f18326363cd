// internal/flightsearch/controller.go
package flightsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flightsearch-cli/internal/automation"
	"github.com/xkilldash9x/flightsearch-cli/internal/browser"
	"github.com/xkilldash9x/flightsearch-cli/internal/config"
	"github.com/xkilldash9x/flightsearch-cli/internal/locator"
)

// Opener starts the browser session of one run.
type Opener func(ctx context.Context) (browser.Session, error)

// BrowserOpener opens sessions with the configured driver.
func BrowserOpener(cfg config.BrowserConfig, logger *zap.Logger) Opener {
	return func(ctx context.Context) (browser.Session, error) {
		return browser.Open(ctx, cfg, logger)
	}
}

// Options are the page-facing settings of a run.
type Options struct {
	URL               string
	NavigationTimeout time.Duration
	Timing            automation.Timing
	Table             *locator.Table
	Match             automation.MatchPolicy
	MonthLabelLayout  string
	// OnTransition, if set, is called synchronously after every phase change.
	OnTransition func(runID string, t Transition)
}

// OptionsFromConfig derives run options from a validated configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	table, err := cfg.LocatorTable()
	if err != nil {
		return Options{}, err
	}
	return Options{
		URL:               cfg.Target.URL,
		NavigationTimeout: cfg.Target.NavigationTimeout,
		Timing:            cfg.Timing.Automation(),
		Table:             table,
		Match:             automation.MatchPolicy(cfg.Autocomplete.Match),
		MonthLabelLayout:  cfg.Calendar.MonthLabelLayout,
	}, nil
}

// Result is the outcome of one run.
type Result struct {
	RunID       string        `json:"run_id"`
	Query       TripQuery     `json:"query"`
	Phase       Phase         `json:"phase"`
	Err         error         `json:"-"`
	Transitions []Transition  `json:"transitions"`
	Duration    time.Duration `json:"duration"`
}

// FailedIn returns the phase that was active when the run failed, or the
// current phase for runs that did not fail.
func (r *Result) FailedIn() Phase {
	if r.Phase != Failed || len(r.Transitions) == 0 {
		return r.Phase
	}
	return r.Transitions[len(r.Transitions)-1].From
}

// Controller runs the search form sequence over a session it owns.
type Controller struct {
	open      Opener
	confirmer Confirmer
	opts      Options
	logger    *zap.Logger
}

// NewController validates its dependencies. A nil confirmer releases the
// barrier immediately.
func NewController(open Opener, confirmer Confirmer, opts Options, logger *zap.Logger) (*Controller, error) {
	if open == nil {
		return nil, fmt.Errorf("cannot initialize controller without a session opener")
	}
	if opts.Table == nil {
		return nil, fmt.Errorf("cannot initialize controller without a locator table")
	}
	if opts.URL == "" {
		return nil, fmt.Errorf("cannot initialize controller without a target url")
	}
	if opts.Match != "" && !opts.Match.Valid() {
		return nil, fmt.Errorf("unknown autocomplete match policy %q", opts.Match)
	}
	if confirmer == nil {
		confirmer = AutoConfirm{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		open:      open,
		confirmer: confirmer,
		opts:      opts,
		logger:    logger.Named("controller"),
	}, nil
}

// searchRun is the state of one Run call.
type searchRun struct {
	c       *Controller
	result  *Result
	session browser.Session
	logger  *zap.Logger
	started time.Time
}

func (r *searchRun) enter(p Phase) {
	t := Transition{From: r.result.Phase, To: p, At: time.Now()}
	r.result.Phase = p
	r.result.Transitions = append(r.result.Transitions, t)
	r.logger.Info("Phase changed.", zap.Stringer("from", t.From), zap.Stringer("to", t.To))
	if r.c.opts.OnTransition != nil {
		r.c.opts.OnTransition(r.result.RunID, t)
	}
}

// teardown releases the session. Calls after the first are no-ops, so the
// deferred call in Run only acts on paths that skipped the explicit one.
func (r *searchRun) teardown() {
	if r.session == nil {
		return
	}
	if err := r.session.Close(); err != nil {
		r.logger.Warn("Failed to close browser session.", zap.Error(err))
	}
	r.session = nil
}

func (r *searchRun) fail(err error) (*Result, error) {
	r.result.Err = err
	r.logger.Error("Search run failed.", zap.Stringer("phase", r.result.Phase), zap.Error(err))
	r.enter(Failed)
	r.teardown()
	r.result.Duration = time.Since(r.started)
	return r.result, err
}

// Run fills and submits the search form for q, waits at the confirmation
// barrier and closes the browser. The returned Result is never nil when the
// query is valid; its Phase is Closed or Failed.
func (c *Controller) Run(ctx context.Context, q TripQuery) (*Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	r := &searchRun{
		c:       c,
		result:  &Result{RunID: runID, Query: q, Phase: Idle},
		logger:  c.logger.With(zap.String("run_id", runID)),
		started: time.Now(),
	}
	r.logger.Info("Starting flight search.", zap.Stringer("query", q), zap.String("url", c.opts.URL))

	session, err := c.open(ctx)
	if err != nil {
		return r.fail(err)
	}
	r.session = session
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Search run panicked, closing browser.", zap.Stringer("phase", r.result.Phase), zap.Any("panic", p))
			r.teardown()
			panic(p)
		}
		r.teardown()
	}()

	navCtx := ctx
	if c.opts.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, c.opts.NavigationTimeout)
		defer cancel()
	}
	if err := session.Navigate(navCtx, c.opts.URL); err != nil {
		return r.fail(err)
	}

	actions := automation.NewActions(session, c.opts.Table, c.opts.Timing, r.logger)
	filler := automation.NewAutocompleteFiller(actions, c.opts.Match)
	calendar := automation.NewCalendarNavigator(actions)

	layout := c.opts.MonthLabelLayout
	steps := []struct {
		phase Phase
		do    func(context.Context) error
	}{
		{FillingOrigin, func(ctx context.Context) error {
			return filler.Fill(ctx, locator.DepartureButton, q.DepartureCity)
		}},
		{FillingDestination, func(ctx context.Context) error {
			return filler.Fill(ctx, locator.ArrivalButton, q.ArrivalCity)
		}},
		{SelectingStartDate, func(ctx context.Context) error {
			return calendar.SelectDate(ctx, locator.StartDateButton,
				automation.FormatMonthLabel(q.StartDate, layout), automation.DayToken(q.StartDate))
		}},
		{SelectingEndDate, func(ctx context.Context) error {
			return calendar.SelectDate(ctx, locator.EndDateButton,
				automation.FormatMonthLabel(q.EndDate, layout), automation.DayToken(q.EndDate))
		}},
		{Submitting, actions.Submit},
	}

	for _, step := range steps {
		r.enter(step.phase)
		if err := step.do(ctx); err != nil {
			return r.fail(fmt.Errorf("%s: %w", step.phase, err))
		}
	}

	r.enter(AwaitingUserConfirmation)
	err = c.confirmer.Confirm(ctx, Confirmation{RunID: runID, Query: q})
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		// An interrupt at the barrier is the operator's way of confirming.
		// A deadline is not, and fails the run below.
		r.logger.Info("Confirmation interrupted, closing browser.", zap.Error(err))
	default:
		return r.fail(fmt.Errorf("%s: %w", AwaitingUserConfirmation, err))
	}

	r.teardown()
	r.enter(Closed)
	r.result.Duration = time.Since(r.started)
	r.logger.Info("Flight search finished.", zap.Duration("took", r.result.Duration))
	return r.result, nil
}
