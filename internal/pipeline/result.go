package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/FranksOps/rankr/internal/serp"
)

// Status is the final state of one query.
type Status string

const (
	StatusOK        Status = "ok"
	StatusSkipped   Status = "skipped"
	StatusThrottled Status = "throttled"
	StatusFailed    Status = "failed"
)

// QueryOutcome records how one query went.
type QueryOutcome struct {
	Query        string
	URL          string
	Status       Status
	Attempts     int
	Throttles    int
	Rows         int
	SnapshotPath string
	Challenge    string // block page source seen on any attempt
	Duration     time.Duration
	Err          error
}

// RunResult is everything a run produced, including the rows of queries
// that finished before a failure or cancellation.
type RunResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Request    serp.Request
	Results    serp.ResultSet
	Queries    []QueryOutcome
}

// Empty reports a run that emitted no rows. It is a warning, not an error.
func (r *RunResult) Empty() bool {
	return r == nil || r.Results.Empty()
}

// Duration is the wall time of the run.
func (r *RunResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failed returns the outcomes of queries that produced an error.
func (r *RunResult) Failed() []QueryOutcome {
	var out []QueryOutcome
	for _, q := range r.Queries {
		if q.Err != nil {
			out = append(out, q)
		}
	}
	return out
}

// PartialError reports queries that failed while the rest of the run went on.
type PartialError struct {
	Failed []QueryOutcome
}

func (e *PartialError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		parts = append(parts, fmt.Sprintf("%q: %v", f.Query, f.Err))
	}
	return fmt.Sprintf("pipeline: %d queries failed: %s", len(e.Failed), strings.Join(parts, "; "))
}

// Unwrap exposes the per-query errors to errors.Is and errors.As.
func (e *PartialError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		errs = append(errs, f.Err)
	}
	return errs
}

// EventKind identifies a progress event.
type EventKind int

const (
	EventSearching EventKind = iota
	EventThrottled
	EventSaved
	EventParsed
	EventFailed
	EventCompleted
	EventNoResults
)

// Event is a progress notification for operator-facing output.
type Event struct {
	Kind    EventKind
	Query   string
	URL     string
	Path    string
	Attempt int
	Delay   time.Duration
	Rows    int
	Err     error
}
