package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/nerrad567/gatewatch/internal/history"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// historyResponse is the body of GET /watchdog/history.
type historyResponse struct {
	Gateway string          `json:"gateway"`
	Entries []history.Entry `json:"entries"`
	Count   int             `json:"count"`
}

// handleGetHistory returns recorded connection transitions, newest first.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeServiceUnavailable(w, "connection history is disabled")
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	entries, err := s.history.GetHistory(r.Context(), s.gateway.Name, limit)
	if err != nil {
		s.logger.Error("reading connection history failed",
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "reading connection history failed")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Gateway: s.gateway.Name,
		Entries: entries,
		Count:   len(entries),
	})
}

// parseHistoryLimit parses the limit query parameter with bounds enforcement.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}

	return limit, nil
}
