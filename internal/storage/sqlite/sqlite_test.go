package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/rankr/internal/serp"
	"github.com/FranksOps/rankr/internal/storage"
)

func TestSQLiteBackend(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "rankr.db")
	b, err := New(dsn)
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	older := storage.NewRecords("run-1", now.Add(-48*time.Hour), []serp.ResultRow{
		{Query: "running shoes", Position: 1, Title: "A", Link: "https://a.example", SnippetType: serp.SnippetTable, SERPHTML: serp.NotSaved},
		{Query: "running shoes", Position: 2, Title: "Shop", Link: "https://shop.example.org/x", DomainFound: true, SERPHTML: serp.NotSaved},
	})
	newer := storage.NewRecords("run-2", now, []serp.ResultRow{
		{Query: "running shoes", Position: 1, Title: "Shop", Link: "https://shop.example.org/x", DomainFound: true, SERPHTML: "saved_serp_html/running_shoes_SERP.html"},
		{Query: "trail shoes", Position: 1, Title: serp.NoTitle, Link: "https://t.example", SERPHTML: serp.NotSaved},
	})
	if err := storage.SaveAll(ctx, b, older); err != nil {
		t.Fatalf("Failed to save run-1: %v", err)
	}
	if err := storage.SaveAll(ctx, b, newer); err != nil {
		t.Fatalf("Failed to save run-2: %v", err)
	}

	all, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query results: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(all))
	}
	if all[0].RunID != "run-1" || all[0].Seq != 0 || all[3].RunID != "run-2" || all[3].Seq != 1 {
		t.Errorf("Expected chronological order, got %s/%d first and %s/%d last", all[0].RunID, all[0].Seq, all[3].RunID, all[3].Seq)
	}

	got := all[0]
	if got.ResultRow != older[0].ResultRow {
		t.Errorf("Expected row %+v, got %+v", older[0].ResultRow, got.ResultRow)
	}
	if got.CreatedAt.Unix() != older[0].CreatedAt.Unix() {
		t.Errorf("Expected CreatedAt %v, got %v", older[0].CreatedAt, got.CreatedAt)
	}

	// Rank history for the tracked domain.
	found := true
	history, err := b.Query(ctx, storage.Filter{Query: "running shoes", DomainFound: &found})
	if err != nil {
		t.Fatalf("Failed to query history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 history rows, got %d", len(history))
	}
	if history[0].Position != 2 || history[1].Position != 1 {
		t.Errorf("Expected positions 2 then 1, got %d then %d", history[0].Position, history[1].Position)
	}

	past := now.Add(-time.Hour)
	recent, err := b.Query(ctx, storage.Filter{Since: &past})
	if err != nil {
		t.Fatalf("Failed to query with Since: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 recent results, got %d", len(recent))
	}

	byRun, _ := b.Query(ctx, storage.Filter{RunID: "run-1"})
	if len(byRun) != 2 {
		t.Errorf("Expected 2 rows for run-1, got %d", len(byRun))
	}

	offsetOnly, err := b.Query(ctx, storage.Filter{Offset: 3})
	if err != nil {
		t.Fatalf("Failed to query with offset: %v", err)
	}
	if len(offsetOnly) != 1 || offsetOnly[0].Query != "trail shoes" {
		t.Errorf("unexpected offset result %+v", offsetOnly)
	}

	limited, _ := b.Query(ctx, storage.Filter{Limit: 1, Offset: 1})
	if len(limited) != 1 || limited[0].Seq != 1 || limited[0].RunID != "run-1" {
		t.Errorf("unexpected page %+v", limited)
	}
}

func TestSQLiteBackend_DuplicateKey(t *testing.T) {
	b, err := New(filepath.Join(t.TempDir(), "dup.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	rec := &storage.Record{RunID: "r", Seq: 0, CreatedAt: time.Now().UTC(), ResultRow: serp.ResultRow{Query: "q", Position: 1}}
	if err := b.Save(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	if err := b.Save(context.Background(), rec); err == nil {
		t.Error("expected primary key violation on (run_id, seq)")
	}
}
