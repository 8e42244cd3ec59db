package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/FranksOps/scholar/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PageRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholar_page_requests_total",
			Help: "Results-page fetches by outcome",
		},
		[]string{"status", "detected", "detection_src"},
	)

	PageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scholar_page_duration_seconds",
			Help:    "Wall time of a results-page fetch, excluding the politeness pause",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	PageBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scholar_page_bytes_total",
			Help: "Decoded bytes received across all results pages",
		},
	)

	RecordsExtractedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scholar_records_extracted_total",
			Help: "Records accepted into a run's accumulator",
		},
	)

	BlockErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scholar_block_errors_total",
			Help: "Result blocks that failed extraction",
		},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholar_runs_total",
			Help: "Completed search runs by stop reason",
		},
		[]string{"stop_reason"},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholar_proxy_failures_total",
			Help: "Transport failures attributed to a proxy",
		},
		[]string{"proxy_url"},
	)
)

// RecordPage updates page counters from a fetch result.
func RecordPage(page *storage.PageResult) {
	if page == nil {
		return
	}

	status := strconv.Itoa(page.StatusCode)
	if page.Error != "" {
		status = "error"
	}

	PageRequestsTotal.WithLabelValues(status, strconv.FormatBool(page.DetectedBot), page.DetectionSrc).Inc()
	PageDuration.Observe(page.Duration.Seconds())
	PageBytesTotal.Add(float64(len(page.Body)))
}

// Server exposes /metrics over HTTP.
type Server struct {
	srv *http.Server
	log *slog.Logger
}

// NewServer prepares a metrics server on port. Call Serve to start it.
func NewServer(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logger,
	}
}

// Serve blocks until ctx is canceled, then shuts the server down.
func (s *Server) Serve(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info("metrics server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
