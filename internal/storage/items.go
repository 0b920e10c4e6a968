package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// InsertItem stores a new item and returns its assigned id. A URL collision
// returns ErrDuplicateURL; callers decide whether that is an error or just a
// duplicate to count.
func (d *DB) InsertItem(ctx context.Context, sourceID, url, title, publishedAt, discoveredAt string) (int64, error) {
	var pub any
	if publishedAt != "" {
		pub = publishedAt
	}

	res, err := d.db.ExecContext(ctx,
		`INSERT INTO items (source_id, url, title, published_at, discovered_at, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sourceID, url, title, pub, discoveredAt, StatusPending)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert item %s: %w", url, ErrDuplicateURL)
		}
		return 0, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// CheckExisting returns which of the given URLs are already stored. An empty
// input returns an empty map without touching the database. This is a
// pre-check only: a concurrent writer may insert one of these URLs before
// the caller does, so absence here is not a guarantee.
func (d *DB) CheckExisting(ctx context.Context, urls []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(urls) == 0 {
		return existing, nil
	}

	query, args, err := sq.Select("url").
		From("items").
		Where(sq.Eq{"url": urls}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing urls: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		existing[url] = true
	}
	return existing, rows.Err()
}

// ListPending returns pending items, newest-discovered first.
func (d *DB) ListPending(ctx context.Context, limit int) ([]*Item, error) {
	if limit <= 0 {
		limit = 10
	}

	query, args, err := sq.Select("id", "source_id", "url", "title", "published_at", "discovered_at", "status").
		From("items").
		Where(sq.Eq{"status": StatusPending}).
		OrderBy("discovered_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	return d.queryItems(ctx, query, args)
}

// ListPendingByDateRange returns pending items published within [from, to].
// Items without a published date pass the filter deliberately, so undated
// content is never dropped from a digest run. to defaults to today. Ordering
// is published date descending with absent dates last, then discovered time
// descending.
func (d *DB) ListPendingByDateRange(ctx context.Context, from, to string, limit int) ([]*Item, error) {
	if to == "" {
		to = today()
	}
	if limit <= 0 {
		limit = 50
	}

	query, args, err := sq.Select("id", "source_id", "url", "title", "published_at", "discovered_at", "status").
		From("items").
		Where(sq.Eq{"status": StatusPending}).
		Where(sq.Expr("(published_at IS NULL OR date(published_at) BETWEEN ? AND ?)", from, to)).
		OrderBy("(published_at IS NULL)", "published_at DESC", "discovered_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	return d.queryItems(ctx, query, args)
}

func (d *DB) queryItems(ctx context.Context, query string, args []any) ([]*Item, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []*Item{}
	for rows.Next() {
		item := &Item{}
		if err := rows.Scan(&item.ID, &item.SourceID, &item.URL, &item.Title,
			&item.PublishedAt, &item.DiscoveredAt, &item.Status); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
