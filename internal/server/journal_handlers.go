package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/qfarm/internal/journal"
)

// JournalHandlers exposes the action journal and audit history.
type JournalHandlers struct {
	repo *journal.Repository
	log  zerolog.Logger
}

// NewJournalHandlers creates a new journal handlers instance
func NewJournalHandlers(log zerolog.Logger, repo *journal.Repository) *JournalHandlers {
	return &JournalHandlers{
		repo: repo,
		log:  log.With().Str("component", "journal_handlers").Logger(),
	}
}

// HandleList handles GET /api/journal
//
// Query parameters: biome, action, since (RFC3339), limit.
func (h *JournalHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		http.Error(w, "Journal not configured", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	filter := journal.Filter{
		Biome:  q.Get("biome"),
		Action: q.Get("action"),
	}

	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "since must be an RFC3339 timestamp", http.StatusBadRequest)
			return
		}
		filter.Since = since
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	entries, err := h.repo.List(filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list journal entries")
		http.Error(w, "Failed to list journal entries", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	}), h.log)
}

// HandleAudits handles GET /api/journal/audits
func (h *JournalHandlers) HandleAudits(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		http.Error(w, "Journal not configured", http.StatusServiceUnavailable)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	runs, err := h.repo.LatestAudits(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list audit runs")
		http.Error(w, "Failed to list audit runs", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"audits": runs,
		"count":  len(runs),
	}), h.log)
}
