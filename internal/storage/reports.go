package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// RecordReport records a generated report for a calendar date. Re-recording
// the same date overwrites every field, so report re-runs stay idempotent.
// The returned flag is true when the date had no prior report.
func (d *DB) RecordReport(ctx context.Context, date string, itemCount, highCount int64, filePath string) (bool, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM reports WHERE date = ?", date).Scan(&existing)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return false, fmt.Errorf("check report: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reports (date, item_count, high_relevance_count, created_at, file_path)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(date) DO UPDATE SET
			item_count = excluded.item_count,
			high_relevance_count = excluded.high_relevance_count,
			created_at = excluded.created_at,
			file_path = excluded.file_path`,
		date, itemCount, highCount, nowISO(), filePath)
	if err != nil {
		return false, fmt.Errorf("upsert report: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

// LastReport returns the most recent report by date, or ErrNoReport when
// none has been recorded yet.
func (d *DB) LastReport(ctx context.Context) (*Report, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT date, item_count, high_relevance_count, created_at, file_path
		 FROM reports ORDER BY date DESC LIMIT 1`)

	report := &Report{}
	err := row.Scan(&report.Date, &report.ItemCount, &report.HighRelevanceCount,
		&report.CreatedAt, &report.FilePath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoReport
	}
	if err != nil {
		return nil, fmt.Errorf("scan report: %w", err)
	}
	return report, nil
}
