package storage

import (
	"context"
	"errors"
	"testing"
)

func int64Ptr(v int64) *int64 { return &v }

func TestRecordSummaryMarksItemSummarized(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id := mustInsert(t, db, "blog-a", "https://x/1", "A", "")

	in := SummaryInput{
		Summary:        "s",
		RelevanceScore: int64Ptr(5),
		Keywords:       []string{"ai", "llm"},
	}
	if err := db.RecordSummary(ctx, id, in); err != nil {
		t.Fatalf("record summary: %v", err)
	}

	rows, err := db.ListByDate(ctx, today())
	if err != nil {
		t.Fatalf("list by date: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	row := rows[0]
	if row.Status != StatusSummarized {
		t.Errorf("expected status %q, got %q", StatusSummarized, row.Status)
	}
	if row.RelevanceScore == nil || *row.RelevanceScore != 5 {
		t.Errorf("expected relevance score 5, got %v", row.RelevanceScore)
	}
	if len(row.Keywords) != 2 || row.Keywords[0] != "ai" || row.Keywords[1] != "llm" {
		t.Errorf("keywords did not round trip: %v", row.Keywords)
	}
}

func TestRecordSummaryReplacesPriorSummary(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id := mustInsert(t, db, "blog-a", "https://x/1", "A", "")

	first := SummaryInput{Summary: "first", RelevanceScore: int64Ptr(2), Keywords: []string{"old"}}
	if err := db.RecordSummary(ctx, id, first); err != nil {
		t.Fatalf("first record: %v", err)
	}

	// Second write fully replaces; the cleared score must come back nil,
	// not keep the old value.
	second := SummaryInput{Summary: "second", Keywords: []string{"new"}}
	if err := db.RecordSummary(ctx, id, second); err != nil {
		t.Fatalf("second record: %v", err)
	}

	rows, err := db.ListByDate(ctx, today())
	if err != nil {
		t.Fatalf("list by date: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.Summary == nil || *row.Summary != "second" {
		t.Errorf("expected replaced summary, got %v", row.Summary)
	}
	if row.RelevanceScore != nil {
		t.Errorf("expected cleared score, got %v", *row.RelevanceScore)
	}
	if len(row.Keywords) != 1 || row.Keywords[0] != "new" {
		t.Errorf("expected replaced keywords, got %v", row.Keywords)
	}
}

func TestRecordSummaryUnknownItem(t *testing.T) {
	db := openTestDB(t)

	err := db.RecordSummary(context.Background(), 999, SummaryInput{Summary: "s"})
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got: %v", err)
	}
}

func TestRecordSummaryScoreRange(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id := mustInsert(t, db, "blog-a", "https://x/1", "A", "")

	for _, score := range []int64{0, 6, -1} {
		err := db.RecordSummary(ctx, id, SummaryInput{Summary: "s", RelevanceScore: int64Ptr(score)})
		if !errors.Is(err, ErrInvalidScore) {
			t.Errorf("score %d: expected ErrInvalidScore, got: %v", score, err)
		}
	}

	for _, score := range []int64{1, 5} {
		if err := db.RecordSummary(ctx, id, SummaryInput{Summary: "s", RelevanceScore: int64Ptr(score)}); err != nil {
			t.Errorf("score %d: unexpected error: %v", score, err)
		}
	}
}
