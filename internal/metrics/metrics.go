package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/FranksOps/rankr/internal/serp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankr_fetch_requests_total",
			Help: "Results-page fetch attempts by host and outcome status",
		},
		[]string{"host", "status", "challenged", "challenge_src"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rankr_fetch_duration_seconds",
			Help:    "Duration of results-page fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"host"},
	)

	FetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankr_fetch_bytes_total",
			Help: "Total markup bytes downloaded",
		},
		[]string{"host"},
	)

	ThrottledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankr_throttled_total",
			Help: "HTTP 429 responses that triggered a backoff",
		},
		[]string{"host"},
	)

	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankr_queries_total",
			Help: "Queries processed by final outcome",
		},
		[]string{"outcome"},
	)

	RowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rankr_rows_total",
			Help: "Result rows emitted",
		},
	)

	DomainMatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rankr_domain_matches_total",
			Help: "Rows whose link contained the tracked domain",
		},
	)
)

// RecordFetch updates the fetch metrics for one attempt against host.
func RecordFetch(host string, res *serp.FetchResult) {
	if res == nil {
		return
	}

	statusStr := strconv.Itoa(res.StatusCode)
	if res.Error != "" {
		statusStr = "error"
	}

	FetchRequestsTotal.WithLabelValues(host, statusStr, strconv.FormatBool(res.Challenged), res.ChallengeSrc).Inc()
	FetchDuration.WithLabelValues(host).Observe(res.Duration.Seconds())
	FetchBytesTotal.WithLabelValues(host).Add(float64(len(res.Body)))
	if res.Throttled() {
		ThrottledTotal.WithLabelValues(host).Inc()
	}
}

// RecordQuery counts a finished query and the rows it produced.
func RecordQuery(outcome string, rows []serp.ResultRow) {
	QueriesTotal.WithLabelValues(outcome).Inc()
	RowsTotal.Add(float64(len(rows)))
	for _, r := range rows {
		if r.DomainFound {
			DomainMatchesTotal.Inc()
		}
	}
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on port and exposes /metrics.
func Start(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "port", port, "err", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
