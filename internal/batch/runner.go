// internal/batch/runner.go
package batch

import (
	"context"
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/flightsearch-cli/internal/flightsearch"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Searcher runs one search. *flightsearch.Controller satisfies it.
type Searcher interface {
	Run(ctx context.Context, q flightsearch.TripQuery) (*flightsearch.Result, error)
}

// Options bound a batch.
type Options struct {
	// Concurrency is the number of browsers open at once.
	Concurrency int
	// LaunchInterval is the minimum gap between two run starts.
	LaunchInterval time.Duration
}

// Outcome is the result of one query, in input order.
type Outcome struct {
	Index    int                       `json:"index"`
	Query    flightsearch.TripQuery    `json:"query"`
	RunID    string                    `json:"run_id,omitempty"`
	Phase    flightsearch.Phase        `json:"phase"`
	Error    string                    `json:"error,omitempty"`
	Duration time.Duration             `json:"duration_ns"`
	Steps    []flightsearch.Transition `json:"transitions,omitempty"`
}

// Succeeded reports whether the run reached Closed without error.
func (o Outcome) Succeeded() bool {
	return o.Error == "" && o.Phase == flightsearch.Closed
}

// Run executes every query with its own session. A failed run does not stop
// the others; cancelling ctx stops runs that have not started and marks
// them Failed.
func Run(ctx context.Context, s Searcher, queries []flightsearch.TripQuery, opts Options, logger *zap.Logger) []Outcome {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("batch")

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	limit := rate.Inf
	if opts.LaunchInterval > 0 {
		limit = rate.Every(opts.LaunchInterval)
	}
	limiter := rate.NewLimiter(limit, 1)

	outcomes := make([]Outcome, len(queries))
	var g errgroup.Group
	g.SetLimit(concurrency)

	logger.Info("Starting batch.", zap.Int("searches", len(queries)), zap.Int("concurrency", concurrency))
	for i, q := range queries {
		i, q := i, q
		outcomes[i] = Outcome{Index: i, Query: q, Phase: flightsearch.Idle}
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				outcomes[i].Phase = flightsearch.Failed
				outcomes[i].Error = err.Error()
				return nil
			}
			res, err := s.Run(ctx, q)
			outcomes[i] = outcomeOf(i, q, res, err)
			if err != nil {
				logger.Warn("Search failed.", zap.Int("index", i), zap.Stringer("query", q), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if !o.Succeeded() {
			failed++
		}
	}
	logger.Info("Batch finished.", zap.Int("succeeded", len(outcomes)-failed), zap.Int("failed", failed))
	return outcomes
}

func outcomeOf(i int, q flightsearch.TripQuery, res *flightsearch.Result, err error) Outcome {
	o := Outcome{Index: i, Query: q, Phase: flightsearch.Failed}
	if res != nil {
		o.RunID = res.RunID
		o.Phase = res.Phase
		o.Duration = res.Duration
		o.Steps = res.Transitions
	}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

// Report is the JSON document written for a batch.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Total       int       `json:"total"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	Outcomes    []Outcome `json:"outcomes"`
}

// NewReport summarizes outcomes.
func NewReport(outcomes []Outcome, now time.Time) Report {
	r := Report{GeneratedAt: now, Total: len(outcomes), Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Succeeded() {
			r.Succeeded++
		} else {
			r.Failed++
		}
	}
	return r
}

// WriteReport encodes r as indented JSON.
func WriteReport(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
