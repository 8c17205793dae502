package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_fetch_requests_total",
			Help: "Total number of HTTP fetches executed by the research sources",
		},
		[]string{"host", "status", "detected", "detection_src"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "research_fetch_duration_seconds",
			Help:    "Duration of source fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"host"},
	)

	SourceRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_source_retries_total",
			Help: "Retry attempts per research source",
		},
		[]string{"source"},
	)

	ResearchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_runs_total",
			Help: "Completed brand research runs by outcome",
		},
		[]string{"outcome"},
	)

	ResearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "research_run_duration_seconds",
			Help:    "End-to-end duration of a brand research run",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)
)

// RecordFetch updates the fetch metrics for a single HTTP request.
func RecordFetch(host string, statusCode int, fetchErr string, detected bool, detectionSrc string, duration time.Duration, bodyBytes int) {
	detectedStr := "false"
	if detected {
		detectedStr = "true"
	}

	statusStr := strconv.Itoa(statusCode)
	if fetchErr != "" {
		statusStr = "error"
	}

	FetchRequestsTotal.WithLabelValues(host, statusStr, detectedStr, detectionSrc).Inc()
	FetchDuration.WithLabelValues(host).Observe(duration.Seconds())
}

// RecordRetry counts a retry attempt for the named source.
func RecordRetry(source string) {
	SourceRetriesTotal.WithLabelValues(source).Inc()
}

// RecordResearch records the outcome and duration of one research run.
func RecordResearch(success bool, partialFailures int, duration time.Duration) {
	outcome := "success"
	switch {
	case !success:
		outcome = "failure"
	case partialFailures > 0:
		outcome = "partial"
	}
	ResearchRunsTotal.WithLabelValues(outcome).Inc()
	ResearchDuration.Observe(duration.Seconds())
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
