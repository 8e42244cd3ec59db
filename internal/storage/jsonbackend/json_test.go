package jsonbackend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/scholar/internal/storage"
)

func TestJSONBackend(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "runs.jsonl")

	b, err := New(filePath)
	if err != nil {
		t.Fatalf("Failed to create JSON backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond).UTC()

	run1 := &storage.Run{
		ID:        "json1",
		Query:     "plain query",
		Keywords:  []string{"plain", "query"},
		Mode:      "plain",
		CreatedAt: now.Add(-2 * time.Hour),
		Records:   []storage.PaperRecord{{Title: "Old paper"}},
	}
	run2 := &storage.Run{
		ID:        "json2",
		Query:     `"a" OR "b"`,
		Keywords:  []string{"a", "b"},
		Mode:      "OR",
		CreatedAt: now.Add(-1 * time.Hour),
		Records: []storage.PaperRecord{
			{Title: "New paper", Citations: "7", Abstract: "snippet text"},
			{Title: "New paper", Citations: "7", Abstract: "snippet text"},
		},
	}

	if err := b.Save(ctx, run1); err != nil {
		t.Fatalf("Failed to save run 1: %v", err)
	}
	if err := b.Save(ctx, run2); err != nil {
		t.Fatalf("Failed to save run 2: %v", err)
	}

	all, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(all))
	}
	if all[0].ID != "json2" {
		t.Errorf("Expected json2 first, got %s", all[0].ID)
	}
	if len(all[0].Records) != 2 {
		t.Errorf("Expected duplicate records to be kept, got %d", len(all[0].Records))
	}
	if all[0].Records[0].Abstract != "snippet text" {
		t.Errorf("Expected abstract to round trip, got %q", all[0].Records[0].Abstract)
	}

	past := now.Add(-90 * time.Minute)
	since, err := b.Query(ctx, storage.Filter{Since: &past})
	if err != nil {
		t.Fatalf("Failed to query by Since: %v", err)
	}
	if len(since) != 1 || since[0].ID != "json2" {
		t.Errorf("Expected only json2 since %v, got %+v", past, since)
	}

	byQuery, err := b.Query(ctx, storage.Filter{Query: "plain query"})
	if err != nil {
		t.Fatalf("Failed to query by query: %v", err)
	}
	if len(byQuery) != 1 || byQuery[0].ID != "json1" {
		t.Errorf("Expected json1 for query filter, got %+v", byQuery)
	}

	limited, err := b.Query(ctx, storage.Filter{Limit: 1})
	if err != nil {
		t.Fatalf("Failed to query limit: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(limited))
	}

	offset, err := b.Query(ctx, storage.Filter{Offset: 1})
	if err != nil {
		t.Fatalf("Failed to query offset: %v", err)
	}
	if len(offset) != 1 || offset[0].ID != "json1" {
		t.Errorf("Expected json1 for offset 1, got %+v", offset)
	}

	// Writing after a query still appends.
	if err := b.Save(ctx, &storage.Run{ID: "json3", CreatedAt: now}); err != nil {
		t.Fatalf("Failed to save run 3: %v", err)
	}
	all, err = b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query all: %v", err)
	}
	if len(all) != 3 || all[0].ID != "json3" {
		t.Errorf("Expected json3 appended last and returned first, got %d runs", len(all))
	}
}
