package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// AppendSyncLog records one ingestion run. Entries are append-only; nothing
// ever updates or deletes them.
func (d *DB) AppendSyncLog(ctx context.Context, entry SyncLogEntry) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO source_sync_log
		 (source_id, sync_date, items_fetched, items_new, items_duplicate,
		  latest_item_date, date_range_start, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SourceID, entry.SyncDate, entry.ItemsFetched, entry.ItemsNew,
		entry.ItemsDuplicate, entry.LatestItemDate, entry.DateRangeStart, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append sync log: %w", err)
	}
	return nil
}

// UpsertSourceStatus refreshes the single progress row for a source. The
// cumulative total is recomputed from the items table inside the same
// statement, so two concurrent runs cannot lose each other's update the way
// a separate read-then-write would.
func (d *DB) UpsertSourceStatus(ctx context.Context, sourceID, fetchedDate string, fetchedCount int64, updatedAt string) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO source_status (source_id, last_fetched_date, last_fetched_count, total_items_fetched, updated_at)
		 VALUES (?, ?, ?, (SELECT COUNT(*) FROM items WHERE source_id = ?), ?)
		 ON CONFLICT(source_id) DO UPDATE SET
			last_fetched_date = excluded.last_fetched_date,
			last_fetched_count = excluded.last_fetched_count,
			total_items_fetched = excluded.total_items_fetched,
			updated_at = excluded.updated_at`,
		sourceID, fetchedDate, fetchedCount, sourceID, updatedAt)
	if err != nil {
		return fmt.Errorf("upsert source status: %w", err)
	}
	return nil
}

// SourceStatusFor returns the progress row for one source, or nil if the
// source has never synced.
func (d *DB) SourceStatusFor(ctx context.Context, sourceID string) (*SourceStatus, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT source_id, last_fetched_date, last_fetched_count, total_items_fetched, updated_at
		 FROM source_status WHERE source_id = ?`, sourceID)

	status := &SourceStatus{}
	err := row.Scan(&status.SourceID, &status.LastFetchedDate, &status.LastFetchedCount,
		&status.TotalItemsFetched, &status.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan source status: %w", err)
	}
	return status, nil
}

// ListSourceStatus returns all progress rows, most recently updated first.
func (d *DB) ListSourceStatus(ctx context.Context) ([]*SourceStatus, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT source_id, last_fetched_date, last_fetched_count, total_items_fetched, updated_at
		 FROM source_status ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query source status: %w", err)
	}
	defer rows.Close()

	result := []*SourceStatus{}
	for rows.Next() {
		status := &SourceStatus{}
		if err := rows.Scan(&status.SourceID, &status.LastFetchedDate, &status.LastFetchedCount,
			&status.TotalItemsFetched, &status.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source status: %w", err)
		}
		result = append(result, status)
	}
	return result, rows.Err()
}

// ListSyncLog returns recent sync runs, newest first, optionally filtered by
// source.
func (d *DB) ListSyncLog(ctx context.Context, sourceID string, limit int) ([]*SyncLogEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	builder := sq.Select("id", "source_id", "sync_date", "items_fetched", "items_new",
		"items_duplicate", "latest_item_date", "date_range_start", "created_at").
		From("source_sync_log").
		OrderBy("sync_date DESC", "id DESC").
		Limit(uint64(limit))
	if sourceID != "" {
		builder = builder.Where(sq.Eq{"source_id": sourceID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sync log: %w", err)
	}
	defer rows.Close()

	result := []*SyncLogEntry{}
	for rows.Next() {
		entry := &SyncLogEntry{}
		if err := rows.Scan(&entry.ID, &entry.SourceID, &entry.SyncDate,
			&entry.ItemsFetched, &entry.ItemsNew, &entry.ItemsDuplicate,
			&entry.LatestItemDate, &entry.DateRangeStart, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sync log entry: %w", err)
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// ListSources returns a per-source rollup of stored items, most recently
// active sources first.
func (d *DB) ListSources(ctx context.Context) ([]*SourceAggregate, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT
			source_id,
			COUNT(*) AS total_items,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS pending_count,
			MAX(discovered_at) AS last_discovered
		 FROM items
		 GROUP BY source_id
		 ORDER BY last_discovered DESC`, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	result := []*SourceAggregate{}
	for rows.Next() {
		agg := &SourceAggregate{}
		if err := rows.Scan(&agg.SourceID, &agg.TotalItems, &agg.PendingCount, &agg.LastDiscovered); err != nil {
			return nil, fmt.Errorf("scan source aggregate: %w", err)
		}
		result = append(result, agg)
	}
	return result, rows.Err()
}
