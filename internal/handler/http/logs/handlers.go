// Package logs exposes the persisted log store for querying and retention
// cleanup.
package logs

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"intelwire/internal/domain/entity"
	"intelwire/internal/handler/http/respond"
	"intelwire/internal/observability/logging"
	"intelwire/internal/repository"
)

type DTO struct {
	ID        int64            `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Level     string           `json:"level"`
	Message   string           `json:"message"`
	Context   string           `json:"context,omitempty"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
	Error     *entity.LogError `json:"error,omitempty"`
	RequestID string           `json:"request_id,omitempty"`
	Source    string           `json:"source,omitempty"`
}

// Register wires the log routes into the mux.
func Register(mux *http.ServeMux, logger *logging.Logger) {
	mux.Handle("GET /logs", QueryHandler{logger})
	mux.Handle("POST /logs/cleanup", CleanupHandler{logger})
}

type QueryHandler struct{ Logger *logging.Logger }

func (h QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.LogFilter{
		Context: q.Get("context"),
		Limit:   queryInt(q.Get("limit")),
		Offset:  queryInt(q.Get("offset")),
	}
	if raw := q.Get("level"); raw != "" {
		level, err := entity.ParseLevel(raw)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, errors.New("invalid level filter"))
			return
		}
		filter.Level = level
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}

	entries, err := h.Logger.GetLogs(r.Context(), filter)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	dtos := make([]DTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, DTO{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			Level:     string(e.Level),
			Message:   e.Message,
			Context:   e.Context,
			Metadata:  e.Metadata,
			Error:     e.Error,
			RequestID: e.RequestID,
			Source:    e.Source,
		})
	}
	respond.JSON(w, http.StatusOK, map[string]any{"logs": dtos})
}

// CleanupHandler deletes entries older than the requested retention window.
type CleanupHandler struct{ Logger *logging.Logger }

func (h CleanupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RetentionDays int `json:"retention_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.RetentionDays < 1 {
		respond.Error(w, http.StatusBadRequest, errors.New("retention_days must be at least 1"))
		return
	}

	deleted, err := h.Logger.CleanupLogs(r.Context(), req.RetentionDays)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func queryInt(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
