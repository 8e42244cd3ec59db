package storage

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestPaperRecord_ValuesFollowFields(t *testing.T) {
	r := PaperRecord{
		Title:     "t",
		Authors:   "a",
		Year:      "2020",
		Citations: "4",
		DOI:       "10.1/x",
		URL:       "http://u",
		Abstract:  "abs",
	}

	vals := r.Values()
	if len(vals) != len(Fields) {
		t.Fatalf("expected %d values, got %d", len(Fields), len(vals))
	}
	want := []string{"t", "a", "2020", "4", "10.1/x", "http://u", "abs"}
	for i := range want {
		if vals[i] != want[i] {
			t.Errorf("field %s: expected %q, got %q", Fields[i], want[i], vals[i])
		}
	}
}

func TestPageResult_OK(t *testing.T) {
	var nilPage *PageResult
	if nilPage.OK() {
		t.Errorf("nil page must not be OK")
	}
	if (&PageResult{StatusCode: http.StatusOK, Error: "boom"}).OK() {
		t.Errorf("page with transport error must not be OK")
	}
	if (&PageResult{StatusCode: http.StatusTooManyRequests}).OK() {
		t.Errorf("non-200 page must not be OK")
	}
	if !(&PageResult{StatusCode: http.StatusOK}).OK() {
		t.Errorf("200 page must be OK")
	}
}

func TestFilter_Match(t *testing.T) {
	now := time.Now()
	run := &Run{ID: "r1", Query: `"a" AND "b"`, CreatedAt: now}

	if !(Filter{}).Match(run) {
		t.Errorf("empty filter should match")
	}
	if (Filter{RunID: "r2"}).Match(run) {
		t.Errorf("different run id should not match")
	}
	if (Filter{Query: "other"}).Match(run) {
		t.Errorf("different query should not match")
	}
	later := now.Add(time.Minute)
	if (Filter{Since: &later}).Match(run) {
		t.Errorf("run older than Since should not match")
	}
}

type mockBackend struct {
	runs []*Run
}

func (m *mockBackend) Save(ctx context.Context, run *Run) error {
	m.runs = append(m.runs, run)
	return nil
}

func (m *mockBackend) Query(ctx context.Context, filter Filter) ([]*Run, error) {
	var out []*Run
	for i := len(m.runs) - 1; i >= 0; i-- {
		if filter.Match(m.runs[i]) {
			out = append(out, m.runs[i])
		}
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *mockBackend) Close() error { return nil }

func TestLatest(t *testing.T) {
	ctx := context.Background()
	var b Backend = &mockBackend{}

	if _, err := Latest(ctx, b, ""); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound on empty backend, got %v", err)
	}

	_ = b.Save(ctx, &Run{ID: "first"})
	_ = b.Save(ctx, &Run{ID: "second"})

	got, err := Latest(ctx, b, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "second" {
		t.Errorf("expected newest run, got %s", got.ID)
	}

	got, err = Latest(ctx, b, "first")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "first" {
		t.Errorf("expected run first, got %s", got.ID)
	}
}
