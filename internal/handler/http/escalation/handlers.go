// Package escalation exposes the human-review queue over HTTP.
package escalation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"intelwire/internal/domain/entity"
	"intelwire/internal/handler/http/respond"
	"intelwire/internal/repository"
	escUC "intelwire/internal/usecase/escalation"
)

// Register wires the escalation routes into the mux.
func Register(mux *http.ServeMux, svc *escUC.Service) {
	mux.Handle("GET /escalations", ListHandler{svc})
	mux.Handle("POST /escalations", CreateHandler{svc})
	mux.Handle("GET /escalations/{id}", GetHandler{svc})
	mux.Handle("PATCH /escalations/{id}", UpdateHandler{svc})
}

type ListHandler struct{ Svc *escUC.Service }

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.EscalationFilter{
		Status:   entity.EscalationStatus(q.Get("status")),
		Type:     entity.EscalationType(q.Get("type")),
		Priority: entity.Priority(q.Get("priority")),
		Limit:    queryInt(q.Get("limit")),
		Offset:   queryInt(q.Get("offset")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		respond.Error(w, http.StatusBadRequest, errors.New("invalid status filter"))
		return
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		respond.Error(w, http.StatusBadRequest, errors.New("invalid priority filter"))
		return
	}

	out, err := h.Svc.List(r.Context(), filter)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	dtos := make([]DTO, 0, len(out.Escalations))
	for _, e := range out.Escalations {
		dtos = append(dtos, toDTO(e))
	}
	respond.JSON(w, http.StatusOK, listDTO{Escalations: dtos, Counts: toCountsDTO(out.Counts)})
}

type GetHandler struct{ Svc *escUC.Service }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	esc, err := h.Svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, errors.New("escalation not found"))
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(esc))
}

// CreateHandler accepts manually raised escalations, e.g. an operator flagging
// something the pipeline cannot see.
type CreateHandler struct{ Svc *escUC.Service }

func (h CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	id, err := h.Svc.Create(r.Context(), escUC.CreateInput{
		Type:             entity.EscalationType(req.Type),
		Priority:         entity.Priority(req.Priority),
		Title:            req.Title,
		Description:      req.Description,
		Context:          req.Context,
		SuggestedActions: req.SuggestedActions,
		Related:          req.Related,
	})
	if err != nil {
		if errors.Is(err, entity.ErrInvalidInput) {
			respond.Error(w, http.StatusBadRequest, err)
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

type UpdateHandler struct{ Svc *escUC.Service }

func (h UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	esc, err := h.Svc.UpdateStatus(r.Context(), r.PathValue("id"),
		entity.EscalationStatus(req.Status), req.ResolvedBy, req.ResolutionNotes)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrNotFound):
			respond.Error(w, http.StatusNotFound, errors.New("escalation not found"))
		case errors.Is(err, entity.ErrInvalidInput):
			respond.Error(w, http.StatusBadRequest, err)
		default:
			respond.SafeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(esc))
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
