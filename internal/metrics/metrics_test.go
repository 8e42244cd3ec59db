package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/scholar/internal/storage"
)

func TestMetricsServer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(8889, nil)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("unexpected shutdown error: %v", err)
		}
	}()

	RecordPage(&storage.PageResult{
		StatusCode: 200,
		Body:       []byte("hello world"),
		Duration:   time.Second,
	})
	RecordPage(&storage.PageResult{Error: "request failed"})
	RecordPage(nil)
	RecordsExtractedTotal.Add(3)
	RunsTotal.WithLabelValues("max_results").Inc()

	var resp *http.Response
	var err error
	for i := 0; i < 20; i++ {
		resp, err = http.Get("http://localhost:8889/metrics")
		if err == nil {
			break
		}
		time.Sleep(25 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	output := string(body)

	for _, want := range []string{
		`scholar_page_requests_total{detected="false",detection_src="",status="200"}`,
		`scholar_page_requests_total{detected="false",detection_src="",status="error"}`,
		"scholar_page_duration_seconds_bucket",
		"scholar_page_bytes_total",
		"scholar_records_extracted_total",
		`scholar_runs_total{stop_reason="max_results"}`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in metrics output", want)
		}
	}
}
