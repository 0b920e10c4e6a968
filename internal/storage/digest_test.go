package storage

import (
	"context"
	"testing"
)

func TestListByDateOrdersByRelevanceWithUnscoredLast(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	lowID := mustInsert(t, db, "blog-a", "https://x/low", "Low", "")
	highID := mustInsert(t, db, "blog-a", "https://x/high", "High", "")
	mustInsert(t, db, "blog-a", "https://x/unscored", "Unscored", "")

	if err := db.RecordSummary(ctx, lowID, SummaryInput{Summary: "low", RelevanceScore: int64Ptr(2)}); err != nil {
		t.Fatalf("record low: %v", err)
	}
	if err := db.RecordSummary(ctx, highID, SummaryInput{Summary: "high", RelevanceScore: int64Ptr(5)}); err != nil {
		t.Fatalf("record high: %v", err)
	}

	rows, err := db.ListByDate(ctx, today())
	if err != nil {
		t.Fatalf("list by date: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	if rows[0].URL != "https://x/high" {
		t.Errorf("expected highest score first, got %s", rows[0].URL)
	}
	if rows[1].URL != "https://x/low" {
		t.Errorf("expected low score second, got %s", rows[1].URL)
	}
	if rows[2].URL != "https://x/unscored" {
		t.Errorf("expected unscored item last, got %s", rows[2].URL)
	}
}

func TestListByDateRangeIncludesUnsummarizedItems(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	mustInsert(t, db, "blog-a", "https://x/1", "A", "")

	rows, err := db.ListByDateRange(ctx, today(), today())
	if err != nil {
		t.Fatalf("list by range: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.Summary != nil {
		t.Errorf("expected nil summary, got %v", *row.Summary)
	}
	if row.Keywords == nil || len(row.Keywords) != 0 {
		t.Errorf("expected empty keyword list, got %v", row.Keywords)
	}
}

func TestMalformedKeywordsDegradeToEmptyList(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id := mustInsert(t, db, "blog-a", "https://x/1", "A", "")
	if err := db.RecordSummary(ctx, id, SummaryInput{Summary: "s", Keywords: []string{"ai"}}); err != nil {
		t.Fatalf("record summary: %v", err)
	}

	// Corrupt the stored keywords behind the codec's back.
	if _, err := db.db.ExecContext(ctx, "UPDATE summaries SET keywords = 'not-json' WHERE item_id = ?", id); err != nil {
		t.Fatalf("corrupt keywords: %v", err)
	}

	rows, err := db.ListByDate(ctx, today())
	if err != nil {
		t.Fatalf("list by date should not fail on bad keywords: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if len(rows[0].Keywords) != 0 {
		t.Errorf("expected empty keywords fallback, got %v", rows[0].Keywords)
	}
}
