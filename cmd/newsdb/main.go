package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/feedwatch/newsdb/internal/config"
	"github.com/feedwatch/newsdb/internal/ingest"
	"github.com/feedwatch/newsdb/internal/logging"
	"github.com/feedwatch/newsdb/internal/storage"
	"github.com/feedwatch/newsdb/internal/web"
)

func main() {
	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]
	ctx := context.Background()

	var err error
	switch command {
	case "init":
		err = runInit(ctx, cfg, logger, args)
	case "add-items":
		err = runAddItems(ctx, cfg, logger, args)
	case "add-items-incremental":
		err = runAddItemsIncremental(ctx, cfg, logger, args)
	case "check-existing":
		err = runCheckExisting(ctx, cfg, logger, args)
	case "list-pending":
		err = runListPending(ctx, cfg, logger, args)
	case "update-summary":
		err = runUpdateSummary(ctx, cfg, logger, args)
	case "list-today":
		err = runListToday(ctx, cfg, logger, args)
	case "list-range":
		err = runListRange(ctx, cfg, logger, args)
	case "list-sources":
		err = runListSources(ctx, cfg, logger, args)
	case "stats":
		err = runStats(ctx, cfg, logger, args)
	case "record-report":
		err = runRecordReport(ctx, cfg, logger, args)
	case "last-report":
		err = runLastReport(ctx, cfg, logger, args)
	case "source-status":
		err = runSourceStatus(ctx, cfg, logger, args)
	case "sync-log":
		err = runSyncLog(ctx, cfg, logger, args)
	case "serve":
		err = runServe(cfg, logger, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		printJSON(map[string]string{"error": err.Error()})
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("newsdb - content metadata store for daily news digests")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  newsdb <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init                    Create the database schema (idempotent)")
	fmt.Println("  add-items               Add items for a source (duplicates skipped)")
	fmt.Println("  add-items-incremental   Add items with dedup pre-check and sync accounting")
	fmt.Println("  check-existing          Report which URLs are already stored")
	fmt.Println("  list-pending            List pending items, newest first")
	fmt.Println("  update-summary          Attach a summary to an item")
	fmt.Println("  list-today              List today's items with summaries")
	fmt.Println("  list-range              List items discovered in a date range")
	fmt.Println("  list-sources            Per-source item rollup")
	fmt.Println("  stats                   Global counters")
	fmt.Println("  record-report           Record a generated report for a date")
	fmt.Println("  last-report             Most recent recorded report")
	fmt.Println("  source-status           Sync progress per source")
	fmt.Println("  sync-log                Recent ingestion runs")
	fmt.Println("  serve                   Read-only HTTP view of the query layer")
	fmt.Println()
	fmt.Println("Common Flags:")
	fmt.Println("  -db=<path>              Database file (default from config / NEWSDB_DB)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  newsdb init -db ./data/news.db")
	fmt.Println("  newsdb add-items-incremental -db ./data/news.db -source blog-a \\")
	fmt.Println("      -items '[{\"url\":\"https://x/1\",\"title\":\"A\"}]' -since 2026-01-10")
	fmt.Println("  newsdb update-summary -db ./data/news.db -id 1 \\")
	fmt.Println("      -data '{\"summary\":\"...\",\"relevance_score\":5,\"keywords\":[\"ai\"]}'")
	fmt.Println("  newsdb list-range -db ./data/news.db -from 2026-01-10 -to 2026-01-15")
	fmt.Println("  newsdb serve -port 6894")
}

func printJSON(v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(raw))
}

func openDB(path string, logger *slog.Logger) (*storage.DB, error) {
	db, err := storage.Open(path, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return db, nil
}

func dbFlag(fs *flag.FlagSet, cfg config.Config) *string {
	return fs.String("db", cfg.Database.Path, "Database file path")
}

func runInit(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	fs.Parse(args)

	db, err := openDB(*dbPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Init(ctx); err != nil {
		return err
	}

	printJSON(map[string]string{"status": "initialized", "path": *dbPath})
	return nil
}

func runAddItems(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("add-items", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	source := fs.String("source", "", "Source identifier")
	itemsJSON := fs.String("items", "", "Items JSON array")
	fs.Parse(args)

	items, err := parseItems(*source, *itemsJSON)
	if err != nil {
		return err
	}

	db, err := openDB(*dbPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := ingest.New(db, logger).Add(ctx, *source, items)
	if err != nil {
		return err
	}

	printJSON(result)
	return nil
}

func runAddItemsIncremental(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("add-items-incremental", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	source := fs.String("source", "", "Source identifier")
	itemsJSON := fs.String("items", "", "Items JSON array")
	since := fs.String("since", "", "Requested date-range start (YYYY-MM-DD)")
	fs.Parse(args)

	items, err := parseItems(*source, *itemsJSON)
	if err != nil {
		return err
	}

	db, err := openDB(*dbPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := ingest.New(db, logger).Ingest(ctx, *source, items, *since)
	if err != nil {
		return err
	}

	printJSON(result)
	return nil
}

func runCheckExisting(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("check-existing", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	urlsJSON := fs.String("urls", "", "URLs JSON array")
	fs.Parse(args)

	if *urlsJSON == "" {
		return errors.New("-urls is required")
	}
	var urls []string
	if err := json.Unmarshal([]byte(*urlsJSON), &urls); err != nil {
		return fmt.Errorf("parse urls: %w", err)
	}

	db, err := openDB(*dbPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	existing, err := db.CheckExisting(ctx, urls)
	if err != nil {
		return err
	}

	found := []string{}
	seen := map[string]bool{}
	for _, url := range urls {
		if existing[url] && !seen[url] {
			found = append(found, url)
			seen[url] = true
		}
	}

	printJSON(map[string]any{"existing_urls": found, "count": len(found)})
	return nil
}

func runListPending(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("list-pending", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	limit := fs.Int("limit", cfg.Limits.PendingLimit, "Max items")
	from := fs.String("from", "", "Only items published on/after this date (YYYY-MM-DD)")
	to := fs.String("to", "", "Only items published on/before this date (default today)")
	fs.Parse(args)

	db, err := openDB(*dbPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	var items []*storage.Item
	if *from != "" {
		items, err = db.ListPendingByDateRange(ctx, *from, *to, *limit)
	} else {
		items, err = db.ListPending(ctx, *limit)
	}
	if err != nil {
		return err
	}

	printJSON(items)
	return nil
}

func runUpdateSummary(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("update-summary", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	id := fs.Int64("id", 0, "Item id")
	data := fs.String("data", "", "Summary JSON")
	fs.Parse(args)

	if *id <= 0 {
		return errors.New("-id is required")
	}
	if *data == "" {
		return errors.New("-data is required")
	}

	var in storage.SummaryInput
	if err := json.Unmarshal([]byte(*data), &in); err != nil {
		return fmt.Errorf("parse summary data: %w", err)
	}
	if in.Summary == "" {
		return errors.New("summary text is required")
	}

	db, err := openDB(*dbPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RecordSummary(ctx, *id, in); err != nil {
		return err
	}

	printJSON(map[string]any{"status": "ok", "item_id": *id})
	return nil
}

func runListToday(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("list-today", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	fs.Parse(args)

	db, err := openDB(*dbPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.ListByDate(ctx, todayDate())
	if err != nil {
		return err
	}

	printJSON(rows)
	return nil
}

func runListRange(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("list-range", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	from := fs.String("from", "", "Start date (YYYY-MM-DD)")
	to := fs.String("to", "", "End date (YYYY-MM-DD)")
	fs.Parse(args)

	if *from == "" || *to == "" {
		return errors.New("-from and -to are required")
	}

	db, err := openDB(*dbPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.ListByDateRange(ctx, *from, *to)
	if err != nil {
		return err
	}

	printJSON(rows)
	return nil
}

func runListSources(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("list-sources", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	fs.Parse(args)

	db, err := openDB(*dbPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	sources, err := db.ListSources(ctx)
	if err != nil {
		return err
	}

	printJSON(sources)
	return nil
}

func runStats(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	fs.Parse(args)

	db, err := openDB(*dbPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.Stats(ctx)
	if err != nil {
		return err
	}

	printJSON(stats)
	return nil
}

func runRecordReport(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("record-report", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	date := fs.String("date", "", "Report date (YYYY-MM-DD)")
	itemCount := fs.Int64("items", 0, "Item count")
	highCount := fs.Int64("high", 0, "High relevance count")
	filePath := fs.String("file", "", "Report output file path")
	fs.Parse(args)

	if *date == "" {
		return errors.New("-date is required")
	}

	db, err := openDB(*dbPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	created, err := db.RecordReport(ctx, *date, *itemCount, *highCount, *filePath)
	if err != nil {
		return err
	}

	status := "updated"
	if created {
		status = "created"
	}
	printJSON(map[string]string{"status": status, "date": *date})
	return nil
}

func runLastReport(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("last-report", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	fs.Parse(args)

	db, err := openDB(*dbPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := db.LastReport(ctx)
	if errors.Is(err, storage.ErrNoReport) {
		printJSON(map[string]any{"date": nil, "message": "no reports found"})
		return nil
	}
	if err != nil {
		return err
	}

	printJSON(report)
	return nil
}

func runSourceStatus(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("source-status", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	source := fs.String("source", "", "Source identifier (optional)")
	fs.Parse(args)

	db, err := openDB(*dbPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if *source != "" {
		status, err := db.SourceStatusFor(ctx, *source)
		if err != nil {
			return err
		}
		if status == nil {
			printJSON(map[string]any{"source_id": *source, "last_fetched_date": nil})
			return nil
		}
		printJSON(status)
		return nil
	}

	statuses, err := db.ListSourceStatus(ctx)
	if err != nil {
		return err
	}
	printJSON(statuses)
	return nil
}

func runSyncLog(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("sync-log", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	source := fs.String("source", "", "Source identifier filter (optional)")
	limit := fs.Int("limit", cfg.Limits.SyncLogLimit, "Max entries")
	fs.Parse(args)

	db, err := openDB(*dbPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.ListSyncLog(ctx, *source, *limit)
	if err != nil {
		return err
	}

	printJSON(entries)
	return nil
}

func runServe(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	dbPath := dbFlag(fs, cfg)
	host := fs.String("host", "localhost", "Host to bind to")
	port := fs.String("port", "6894", "Port to listen on")
	fs.Parse(args)

	db, err := openDB(*dbPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	server := web.NewServer(db, logger)
	addr := *host + ":" + *port
	logger.Info("serving read-only API", "addr", addr)
	return http.ListenAndServe(addr, server.Handler())
}

func todayDate() string {
	return time.Now().UTC().Format("2006-01-02")
}

func parseItems(source, itemsJSON string) ([]ingest.ItemInput, error) {
	if source == "" {
		return nil, errors.New("-source is required")
	}
	if itemsJSON == "" {
		return nil, errors.New("-items is required")
	}
	var items []ingest.ItemInput
	if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
		return nil, fmt.Errorf("parse items: %w", err)
	}
	return items, nil
}
