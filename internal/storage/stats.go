package storage

import (
	"context"
	"fmt"
)

// Stats returns the global counters snapshot.
func (d *DB) Stats(ctx context.Context) (*StatsResult, error) {
	stats := &StatsResult{StatusCounts: map[string]int64{}}

	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&stats.TotalItems); err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM items GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.StatusCounts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM items WHERE date(discovered_at) = ?", today()).Scan(&stats.TodayCount); err != nil {
		return nil, fmt.Errorf("count today: %w", err)
	}

	if err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT source_id) FROM items").Scan(&stats.SourceCount); err != nil {
		return nil, fmt.Errorf("count sources: %w", err)
	}

	if err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM summaries WHERE relevance_score >= ?",
		HighRelevanceThreshold).Scan(&stats.HighRelevanceCount); err != nil {
		return nil, fmt.Errorf("count high relevance: %w", err)
	}

	return stats, nil
}
