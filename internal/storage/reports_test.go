package storage

import (
	"context"
	"errors"
	"testing"
)

func TestRecordReportOverwritesSameDate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	created, err := db.RecordReport(ctx, "2026-01-15", 10, 3, "r.md")
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	if !created {
		t.Error("first record should report created")
	}

	created, err = db.RecordReport(ctx, "2026-01-15", 12, 4, "r2.md")
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if created {
		t.Error("second record should report updated")
	}

	report, err := db.LastReport(ctx)
	if err != nil {
		t.Fatalf("last report: %v", err)
	}
	if report.Date != "2026-01-15" {
		t.Errorf("unexpected date %s", report.Date)
	}
	if report.ItemCount != 12 || report.HighRelevanceCount != 4 {
		t.Errorf("expected overwritten counts 12/4, got %d/%d", report.ItemCount, report.HighRelevanceCount)
	}
	if report.FilePath == nil || *report.FilePath != "r2.md" {
		t.Errorf("expected overwritten file path, got %v", report.FilePath)
	}

	var count int
	if err := db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports WHERE date = '2026-01-15'").Scan(&count); err != nil {
		t.Fatalf("count reports: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one report row, got %d", count)
	}
}

func TestLastReportPicksLatestDate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.RecordReport(ctx, "2026-01-14", 5, 1, "a.md"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := db.RecordReport(ctx, "2026-01-16", 8, 2, "b.md"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := db.RecordReport(ctx, "2026-01-15", 7, 2, "c.md"); err != nil {
		t.Fatalf("record: %v", err)
	}

	report, err := db.LastReport(ctx)
	if err != nil {
		t.Fatalf("last report: %v", err)
	}
	if report.Date != "2026-01-16" {
		t.Errorf("expected 2026-01-16, got %s", report.Date)
	}
}

func TestLastReportEmpty(t *testing.T) {
	db := openTestDB(t)

	_, err := db.LastReport(context.Background())
	if !errors.Is(err, ErrNoReport) {
		t.Fatalf("expected ErrNoReport, got: %v", err)
	}
}
