// Package pipeline runs a list of search queries against the results host
// and collects ranked rows.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/rankr/internal/metrics"
	"github.com/FranksOps/rankr/internal/serp"
	"github.com/FranksOps/rankr/internal/snapshot"
	"github.com/FranksOps/rankr/pkg/ratelimit"
	"github.com/google/uuid"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 5 * time.Second
	DefaultPacing      = 18 * time.Second
)

// ErrAttemptsExhausted is wrapped into a query error when every attempt was throttled.
var ErrAttemptsExhausted = errors.New("pipeline: attempts exhausted")

// Fetcher performs one GET of a results page. Transport failures belong in
// FetchResult.Error; a returned error means the run must stop.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*serp.FetchResult, error)
}

// Config wires a Runner. Only Fetcher is required.
type Config struct {
	Request serp.Request
	Fetcher Fetcher
	Parser  serp.Parser

	// Snapshots receives raw markup when Request.SaveHTML is set.
	Snapshots *snapshot.Dir

	Sleeper ratelimit.Sleeper
	Backoff ratelimit.Backoff
	// Pacing is the pause after each parsed query. Zero selects
	// DefaultPacing; a negative value disables it.
	Pacing      time.Duration
	MaxAttempts int

	Logger *slog.Logger
	// OnEvent, when set, receives progress events in order.
	OnEvent func(Event)
}

// Runner processes queries one at a time.
type Runner struct {
	req       serp.Request
	fetcher   Fetcher
	parser    serp.Parser
	snapshots *snapshot.Dir

	sleeper     ratelimit.Sleeper
	backoff     ratelimit.Backoff
	pacing      time.Duration
	maxAttempts int

	logger  *slog.Logger
	onEvent func(Event)
}

// NewRunner applies defaults to cfg and returns a Runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("pipeline: fetcher is required")
	}
	if cfg.Parser == nil {
		cfg.Parser = serp.GoogleParser{}
	}
	if cfg.Sleeper == nil {
		cfg.Sleeper = ratelimit.Clock{}
	}
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = ratelimit.NewBackoff(DefaultBackoff)
	}
	if cfg.Pacing == 0 {
		cfg.Pacing = DefaultPacing
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Request.SaveHTML && cfg.Snapshots == nil {
		cfg.Snapshots = snapshot.New(snapshot.DefaultDir)
	}

	return &Runner{
		req:         cfg.Request,
		fetcher:     cfg.Fetcher,
		parser:      cfg.Parser,
		snapshots:   cfg.Snapshots,
		sleeper:     cfg.Sleeper,
		backoff:     cfg.Backoff,
		pacing:      cfg.Pacing,
		maxAttempts: cfg.MaxAttempts,
		logger:      cfg.Logger,
		onEvent:     cfg.OnEvent,
	}, nil
}

// Run processes queries in order and returns every row gathered.
//
// Per-query failures never stop the run; they are collected into a
// *PartialError returned alongside the result. A canceled context stops the
// run and returns the rows gathered so far with the context error.
func (r *Runner) Run(ctx context.Context, queries []string) (*RunResult, error) {
	res := &RunResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Request:   r.req,
	}
	log := r.logger.With("run_id", res.RunID)

	for _, raw := range queries {
		if err := ctx.Err(); err != nil {
			res.FinishedAt = time.Now()
			return res, err
		}

		q := strings.TrimSpace(raw)
		if q == "" {
			res.Queries = append(res.Queries, QueryOutcome{Query: raw, Status: StatusSkipped})
			metrics.RecordQuery(string(StatusSkipped), nil)
			log.Debug("skipping blank query")
			continue
		}

		outcome, rows, err := r.runQuery(ctx, log, q)
		res.Results.Append(rows...)
		res.Queries = append(res.Queries, outcome)
		metrics.RecordQuery(string(outcome.Status), rows)
		if err != nil {
			res.FinishedAt = time.Now()
			return res, err
		}
	}
	res.FinishedAt = time.Now()

	if res.Empty() {
		log.Warn("no results were fetched", "queries", len(queries))
		r.emit(Event{Kind: EventNoResults})
	} else {
		log.Info("search completed", "rows", res.Results.Len(), "duration", res.Duration())
		r.emit(Event{Kind: EventCompleted, Rows: res.Results.Len()})
	}

	if failed := res.Failed(); len(failed) > 0 {
		return res, &PartialError{Failed: failed}
	}
	return res, nil
}

// runQuery fetches, persists and extracts one trimmed query. The returned
// error is non-nil only when the context ended.
func (r *Runner) runQuery(ctx context.Context, log *slog.Logger, q string) (QueryOutcome, []serp.ResultRow, error) {
	started := time.Now()
	target := serp.BuildURL(r.req, q)
	out := QueryOutcome{Query: q, URL: target}
	log = log.With("query", q)
	host := hostOf(target)

	log.Info("searching", "url", target)
	r.emit(Event{Kind: EventSearching, Query: q, URL: target})

	finish := func(status Status, err error) QueryOutcome {
		out.Status = status
		out.Err = err
		out.Duration = time.Since(started)
		return out
	}

	var fr *serp.FetchResult
	for attempt := 1; ; attempt++ {
		out.Attempts = attempt

		var err error
		fr, err = r.fetcher.Fetch(ctx, target)
		if err != nil {
			return finish(StatusFailed, err), nil, err
		}
		metrics.RecordFetch(host, fr)

		if fr.Challenged {
			out.Challenge = fr.ChallengeSrc
			log.Warn("block page detected", "source", fr.ChallengeSrc, "status", fr.StatusCode, "attempt", attempt)
		}

		if fr.Throttled() {
			out.Throttles++
			if attempt >= r.maxAttempts {
				err := fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempt, serp.ErrThrottled)
				log.Warn("giving up on query", "attempts", attempt, "err", err)
				r.emit(Event{Kind: EventFailed, Query: q, URL: target, Attempt: attempt, Err: err})
				return finish(StatusThrottled, err), nil, nil
			}

			delay := r.backoff.Delay(out.Throttles - 1)
			log.Warn("too many requests, backing off", "attempt", attempt, "delay", delay)
			r.emit(Event{Kind: EventThrottled, Query: q, URL: target, Attempt: attempt, Delay: delay})
			if err := r.sleeper.Sleep(ctx, delay); err != nil {
				return finish(StatusFailed, err), nil, err
			}
			continue
		}

		if !fr.OK() {
			err := fetchError(fr)
			log.Error("request error", "status", fr.StatusCode, "attempt", attempt, "err", err)
			r.emit(Event{Kind: EventFailed, Query: q, URL: target, Attempt: attempt, Err: err})
			return finish(StatusFailed, err), nil, nil
		}
		break
	}

	var saved string
	if r.req.SaveHTML && r.snapshots != nil {
		p, err := r.snapshots.Save(q, fr.Body)
		if err != nil {
			// The page is still usable; record it as unsaved.
			log.Error("failed to save markup", "err", err)
		} else {
			saved = p
			out.SnapshotPath = p
			log.Info("markup saved", "path", p)
			r.emit(Event{Kind: EventSaved, Query: q, Path: p})
		}
	}

	doc, err := serp.ParseDocument(fr.Body, fr.ContentType())
	if err != nil {
		err = fmt.Errorf("pipeline: parse %q: %w", q, err)
		log.Error("parse failed", "err", err)
		r.emit(Event{Kind: EventFailed, Query: q, URL: target, Err: err})
		return finish(StatusFailed, err), nil, nil
	}

	rows := serp.Extract(doc, r.parser, r.req, serp.Page{Query: q, SavedPath: saved})
	out.Rows = len(rows)
	log.Info("query parsed", "rows", len(rows), "attempts", out.Attempts)
	r.emit(Event{Kind: EventParsed, Query: q, URL: target, Rows: len(rows)})

	if r.pacing > 0 {
		if err := r.sleeper.Sleep(ctx, r.pacing); err != nil {
			return finish(StatusOK, nil), rows, err
		}
	}
	return finish(StatusOK, nil), rows, nil
}

func (r *Runner) emit(ev Event) {
	if r.onEvent != nil {
		r.onEvent(ev)
	}
}

func fetchError(fr *serp.FetchResult) error {
	if fr.Error != "" {
		return fmt.Errorf("pipeline: %s", fr.Error)
	}
	return fmt.Errorf("pipeline: unexpected status %d", fr.StatusCode)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
