// Package web exposes the read-side queries over HTTP for dashboards and
// report tooling. All endpoints are read-only; ingestion stays on the CLI.
package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/feedwatch/newsdb/internal/storage"
)

type Server struct {
	db     *storage.DB
	logger *slog.Logger
}

func NewServer(db *storage.DB, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{db: db, logger: logger}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/pending", s.handlePending)
	mux.HandleFunc("/api/digest", s.handleDigest)
	mux.HandleFunc("/api/sources", s.handleSources)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	items, err := s.db.ListPending(r.Context(), limit)
	if err != nil {
		s.fail(w, "list pending", err)
		return
	}
	s.writeJSON(w, items)
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" {
		from = time.Now().UTC().Format("2006-01-02")
	}
	if to == "" {
		to = from
	}

	rows, err := s.db.ListByDateRange(r.Context(), from, to)
	if err != nil {
		s.fail(w, "list digest", err)
		return
	}
	s.writeJSON(w, rows)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.ListSources(r.Context())
	if err != nil {
		s.fail(w, "list sources", err)
		return
	}
	s.writeJSON(w, sources)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.Stats(r.Context())
	if err != nil {
		s.fail(w, "stats", err)
		return
	}
	s.writeJSON(w, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op, "error", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
