package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// RecordSummary upserts the summary for an item and marks the item
// summarized. Repeated writes fully replace the prior summary. Writing
// against an id with no item fails with ErrItemNotFound instead of leaving
// an orphaned row behind.
func (d *DB) RecordSummary(ctx context.Context, itemID int64, in SummaryInput) error {
	if in.RelevanceScore != nil && (*in.RelevanceScore < 1 || *in.RelevanceScore > 5) {
		return fmt.Errorf("record summary for item %d: %w", itemID, ErrInvalidScore)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM items WHERE id = ?", itemID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("record summary for item %d: %w", itemID, ErrItemNotFound)
	}
	if err != nil {
		return fmt.Errorf("check item: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO summaries (item_id, summary, relevance_score, relevance_reason, keywords, summarized_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(item_id) DO UPDATE SET
			summary = excluded.summary,
			relevance_score = excluded.relevance_score,
			relevance_reason = excluded.relevance_reason,
			keywords = excluded.keywords,
			summarized_at = excluded.summarized_at`,
		itemID, in.Summary, in.RelevanceScore, in.RelevanceReason,
		encodeKeywords(in.Keywords), nowISO())
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE items SET status = ? WHERE id = ?", StatusSummarized, itemID); err != nil {
		return fmt.Errorf("update item status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
