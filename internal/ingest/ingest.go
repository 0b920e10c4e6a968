// Package ingest orchestrates a batch of discovered items from one source:
// dedup pre-check, insert, sync-log accounting, and source-status upkeep.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/feedwatch/newsdb/internal/storage"
)

// maxSampleURLs bounds the duplicate URL sample included in a result.
const maxSampleURLs = 5

// ErrInvalidItem reports an input item missing a required field. The whole
// batch is rejected before any store mutation.
var ErrInvalidItem = errors.New("item missing url or title")

// ItemInput is one candidate item from an upstream fetcher. PublishedAt is
// the source-reported date and may be empty.
type ItemInput struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	PublishedAt string `json:"published_at,omitempty"`
}

// Result summarizes one incremental ingestion run.
type Result struct {
	SourceID      string   `json:"source_id"`
	Fetched       int      `json:"fetched"`
	Added         int      `json:"added"`
	Duplicates    int      `json:"duplicates"`
	DuplicateURLs []string `json:"duplicate_urls"`
}

// AddResult summarizes a plain (non-incremental) add run.
type AddResult struct {
	SourceID string `json:"source_id"`
	Added    int    `json:"added"`
	Skipped  int    `json:"skipped"`
	Total    int    `json:"total"`
}

// Pipeline runs ingestion batches against the store.
type Pipeline struct {
	db     *storage.DB
	logger *slog.Logger
}

// New creates an ingestion pipeline.
func New(db *storage.DB, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{db: db, logger: logger}
}

// Ingest runs one incremental ingestion batch for a source:
//
//  1. Validate every item up front; a bad item rejects the whole batch.
//  2. Pre-check all URLs in bulk to avoid pointless insert attempts.
//  3. Insert the remainder one by one. A uniqueness violation here (another
//     run won the race after our pre-check) reclassifies the item as a
//     duplicate; the constraint, not the pre-check, is what guarantees dedup.
//  4. Append one sync-log entry and refresh the source's status row.
//
// Re-running an identical batch adds nothing but still appends a sync-log
// entry; the log is an audit trail of runs, not of items.
func (p *Pipeline) Ingest(ctx context.Context, sourceID string, items []ItemInput, rangeStart string) (*Result, error) {
	if err := validate(items); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	discoveredAt := now.Format(time.RFC3339)
	runDate := now.Format("2006-01-02")

	urls := make([]string, 0, len(items))
	for _, item := range items {
		urls = append(urls, item.URL)
	}

	existing, err := p.db.CheckExisting(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("check existing: %w", err)
	}

	result := &Result{SourceID: sourceID, Fetched: len(items), DuplicateURLs: []string{}}
	duplicateURLs := []string{}

	for _, item := range items {
		if existing[item.URL] {
			duplicateURLs = append(duplicateURLs, item.URL)
			continue
		}

		_, err := p.db.InsertItem(ctx, sourceID, item.URL, item.Title, item.PublishedAt, discoveredAt)
		if errors.Is(err, storage.ErrDuplicateURL) {
			// Lost the insert race to a concurrent run.
			p.logger.Debug("url inserted concurrently, counting as duplicate", "url", item.URL)
			duplicateURLs = append(duplicateURLs, item.URL)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("ingest %s: %w", sourceID, err)
		}
		result.Added++
	}

	result.Duplicates = len(duplicateURLs)
	if len(duplicateURLs) > maxSampleURLs {
		duplicateURLs = duplicateURLs[:maxSampleURLs]
	}
	result.DuplicateURLs = duplicateURLs

	if len(items) > 0 {
		entry := storage.SyncLogEntry{
			SourceID:       sourceID,
			SyncDate:       runDate,
			ItemsFetched:   int64(len(items)),
			ItemsNew:       int64(result.Added),
			ItemsDuplicate: int64(result.Duplicates),
			LatestItemDate: latestPublished(items),
			CreatedAt:      discoveredAt,
		}
		if rangeStart != "" {
			entry.DateRangeStart = &rangeStart
		}
		if err := p.db.AppendSyncLog(ctx, entry); err != nil {
			return nil, fmt.Errorf("ingest %s: %w", sourceID, err)
		}

		if err := p.db.UpsertSourceStatus(ctx, sourceID, runDate, int64(result.Added), discoveredAt); err != nil {
			return nil, fmt.Errorf("ingest %s: %w", sourceID, err)
		}
	}

	p.logger.Info("ingest run complete",
		"source", sourceID,
		"fetched", result.Fetched,
		"added", result.Added,
		"duplicates", result.Duplicates)

	return result, nil
}

// Add stores a batch without the incremental bookkeeping: no pre-check, no
// sync log, no status row. Duplicate URLs are counted as skipped.
func (p *Pipeline) Add(ctx context.Context, sourceID string, items []ItemInput) (*AddResult, error) {
	if err := validate(items); err != nil {
		return nil, err
	}

	discoveredAt := time.Now().UTC().Format(time.RFC3339)
	result := &AddResult{SourceID: sourceID, Total: len(items)}

	for _, item := range items {
		_, err := p.db.InsertItem(ctx, sourceID, item.URL, item.Title, item.PublishedAt, discoveredAt)
		if errors.Is(err, storage.ErrDuplicateURL) {
			result.Skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("add %s: %w", sourceID, err)
		}
		result.Added++
	}

	return result, nil
}

func validate(items []ItemInput) error {
	for i, item := range items {
		if item.URL == "" || item.Title == "" {
			return fmt.Errorf("item %d: %w", i, ErrInvalidItem)
		}
	}
	return nil
}

// latestPublished returns the maximum published date across the whole input
// batch, or "" when no item carries one. Dates are ISO-8601 text, so string
// comparison matches chronological order.
func latestPublished(items []ItemInput) string {
	latest := ""
	for _, item := range items {
		if item.PublishedAt > latest {
			latest = item.PublishedAt
		}
	}
	return latest
}
