package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/scholar/internal/storage"
)

func TestSQLiteBackend(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "scholar.db")
	b, err := New(dsn)
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	older := &storage.Run{
		ID:        "run-old",
		Query:     `"graph" OR "tree"`,
		Keywords:  []string{"graph", "tree"},
		Mode:      "OR",
		YearFrom:  2010,
		YearTo:    2020,
		CreatedAt: now.Add(-time.Hour),
		Records: []storage.PaperRecord{
			{Title: "Graphs", Authors: "A Author - Journal, 2012", Year: "2012"},
		},
	}
	newer := &storage.Run{
		ID:        "run-new",
		Query:     `"neural networks" AND "efficiency"`,
		Keywords:  []string{"neural networks", "efficiency"},
		Mode:      "AND",
		YearFrom:  2015,
		YearTo:    2025,
		CreatedAt: now,
		Records: []storage.PaperRecord{
			{Title: "Second", Citations: "42", URL: "https://example.com/b"},
			{Title: "First", Abstract: "snippet"},
			{Title: "Second", Citations: "42", URL: "https://example.com/b"},
		},
	}

	if err := b.Save(ctx, older); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}
	if err := b.Save(ctx, newer); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	all, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query runs: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(all))
	}
	if all[0].ID != "run-new" {
		t.Errorf("Expected newest run first, got %s", all[0].ID)
	}

	got := all[0]
	if len(got.Records) != 3 {
		t.Fatalf("Expected 3 records (duplicates kept), got %d", len(got.Records))
	}
	if got.Records[0].Title != "Second" || got.Records[1].Title != "First" {
		t.Errorf("Expected stored order to be preserved, got %q, %q", got.Records[0].Title, got.Records[1].Title)
	}
	if got.Records[0].Citations != "42" {
		t.Errorf("Expected citations 42, got %q", got.Records[0].Citations)
	}
	if len(got.Keywords) != 2 || got.Keywords[0] != "neural networks" {
		t.Errorf("Expected keywords to round trip, got %v", got.Keywords)
	}
	if got.YearFrom != 2015 || got.YearTo != 2025 {
		t.Errorf("Expected year bounds 2015-2025, got %d-%d", got.YearFrom, got.YearTo)
	}

	byID, err := b.Query(ctx, storage.Filter{RunID: "run-old"})
	if err != nil {
		t.Fatalf("Failed to query by id: %v", err)
	}
	if len(byID) != 1 || byID[0].Records[0].Year != "2012" {
		t.Errorf("Expected run-old with its record, got %+v", byID)
	}

	offset, err := b.Query(ctx, storage.Filter{Offset: 1})
	if err != nil {
		t.Fatalf("Failed to query with offset: %v", err)
	}
	if len(offset) != 1 || offset[0].ID != "run-old" {
		t.Errorf("Expected run-old at offset 1, got %+v", offset)
	}

	latest, err := storage.Latest(ctx, b, "")
	if err != nil {
		t.Fatalf("Failed to load latest: %v", err)
	}
	if latest.ID != "run-new" {
		t.Errorf("Expected latest run-new, got %s", latest.ID)
	}
}
