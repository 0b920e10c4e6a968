package storage

import (
	"encoding/json"
	"log/slog"
	"time"
)

// Item lifecycle states. The only transition is pending -> summarized.
const (
	StatusPending    = "pending"
	StatusSummarized = "summarized"
)

// HighRelevanceThreshold is the minimum relevance score counted as high
// relevance in stats and reports.
const HighRelevanceThreshold = 4

// Item is one discovered piece of content, identified uniquely by URL.
// Timestamps are stored as ISO-8601 text so the JSON output stays stable
// across tools reading the same database file.
type Item struct {
	ID           int64   `json:"id"`
	SourceID     string  `json:"source_id"`
	URL          string  `json:"url"`
	Title        string  `json:"title"`
	PublishedAt  *string `json:"published_at"`
	DiscoveredAt string  `json:"discovered_at"`
	Status       string  `json:"status"`
}

// DigestRow is an item joined with its summary (if any) for report queries.
type DigestRow struct {
	ID              int64    `json:"id"`
	SourceID        string   `json:"source_id"`
	URL             string   `json:"url"`
	Title           string   `json:"title"`
	PublishedAt     *string  `json:"published_at"`
	DiscoveredAt    string   `json:"discovered_at"`
	Status          string   `json:"status"`
	Summary         *string  `json:"summary"`
	RelevanceScore  *int64   `json:"relevance_score"`
	RelevanceReason *string  `json:"relevance_reason"`
	Keywords        []string `json:"keywords"`
}

// SummaryInput is the annotation payload written by the summarization step.
type SummaryInput struct {
	Summary         string   `json:"summary"`
	RelevanceScore  *int64   `json:"relevance_score"`
	RelevanceReason *string  `json:"relevance_reason"`
	Keywords        []string `json:"keywords"`
}

// SyncLogEntry is one append-only record of an ingestion run.
type SyncLogEntry struct {
	ID             int64   `json:"id"`
	SourceID       string  `json:"source_id"`
	SyncDate       string  `json:"sync_date"`
	ItemsFetched   int64   `json:"items_fetched"`
	ItemsNew       int64   `json:"items_new"`
	ItemsDuplicate int64   `json:"items_duplicate"`
	LatestItemDate string  `json:"latest_item_date"`
	DateRangeStart *string `json:"date_range_start"`
	CreatedAt      string  `json:"created_at"`
}

// SourceStatus is the latest-known progress snapshot for one source.
type SourceStatus struct {
	SourceID          string `json:"source_id"`
	LastFetchedDate   string `json:"last_fetched_date"`
	LastFetchedCount  int64  `json:"last_fetched_count"`
	TotalItemsFetched int64  `json:"total_items_fetched"`
	UpdatedAt         string `json:"updated_at"`
}

// Report records one generated daily report, at most one per calendar date.
type Report struct {
	Date               string  `json:"date"`
	ItemCount          int64   `json:"item_count"`
	HighRelevanceCount int64   `json:"high_relevance_count"`
	CreatedAt          string  `json:"created_at"`
	FilePath           *string `json:"file_path"`
}

// SourceAggregate is the per-source rollup returned by ListSources.
type SourceAggregate struct {
	SourceID       string `json:"source_id"`
	TotalItems     int64  `json:"total_items"`
	PendingCount   int64  `json:"pending_count"`
	LastDiscovered string `json:"last_discovered"`
}

// StatsResult is the global counters snapshot.
type StatsResult struct {
	TotalItems         int64            `json:"total_items"`
	StatusCounts       map[string]int64 `json:"status_counts"`
	TodayCount         int64            `json:"today_count"`
	SourceCount        int64            `json:"source_count"`
	HighRelevanceCount int64            `json:"high_relevance_count"`
}

// nowISO returns the current UTC instant in the stored timestamp format.
// All persisted timestamps are UTC.
func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// today returns the current UTC calendar date as YYYY-MM-DD.
func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

// encodeKeywords serializes a keyword list for storage. A nil slice encodes
// as an empty JSON array.
func encodeKeywords(keywords []string) string {
	if keywords == nil {
		keywords = []string{}
	}
	raw, err := json.Marshal(keywords)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

// decodeKeywords deserializes a stored keyword list. Malformed data degrades
// to an empty list; the row is still returned.
func decodeKeywords(raw string, logger *slog.Logger) []string {
	if raw == "" {
		return []string{}
	}
	var keywords []string
	if err := json.Unmarshal([]byte(raw), &keywords); err != nil {
		logger.Warn("malformed keywords column, returning empty list", "raw", raw, "error", err)
		return []string{}
	}
	if keywords == nil {
		return []string{}
	}
	return keywords
}
