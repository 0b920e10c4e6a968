package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// ListByDate returns items discovered on the given date, joined with their
// summaries where present.
func (d *DB) ListByDate(ctx context.Context, date string) ([]*DigestRow, error) {
	return d.ListByDateRange(ctx, date, date)
}

// ListByDateRange returns items discovered within [from, to], joined with
// their summaries where present. Ordered by relevance score descending with
// unscored items last, then discovered time descending.
func (d *DB) ListByDateRange(ctx context.Context, from, to string) ([]*DigestRow, error) {
	query, args, err := sq.Select(
		"i.id", "i.source_id", "i.url", "i.title", "i.published_at",
		"i.discovered_at", "i.status",
		"s.summary", "s.relevance_score", "s.relevance_reason", "s.keywords").
		From("items i").
		LeftJoin("summaries s ON i.id = s.item_id").
		Where(sq.Expr("date(i.discovered_at) BETWEEN ? AND ?", from, to)).
		OrderBy("(s.relevance_score IS NULL)", "s.relevance_score DESC", "i.discovered_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query digest: %w", err)
	}
	defer rows.Close()

	result := []*DigestRow{}
	for rows.Next() {
		row := &DigestRow{}
		var rawKeywords *string
		if err := rows.Scan(&row.ID, &row.SourceID, &row.URL, &row.Title,
			&row.PublishedAt, &row.DiscoveredAt, &row.Status,
			&row.Summary, &row.RelevanceScore, &row.RelevanceReason, &rawKeywords); err != nil {
			return nil, fmt.Errorf("scan digest row: %w", err)
		}
		if rawKeywords != nil {
			row.Keywords = decodeKeywords(*rawKeywords, d.logger)
		} else {
			row.Keywords = []string{}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
