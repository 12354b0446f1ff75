// Package job exposes the job tracker over HTTP: list, poll, and cancel.
package job

import (
	"errors"
	"net/http"
	"strconv"

	"intelwire/internal/domain/entity"
	"intelwire/internal/handler/http/respond"
	"intelwire/internal/repository"
	"intelwire/internal/usecase/jobs"
)

// Register wires the job routes into the mux.
func Register(mux *http.ServeMux, svc *jobs.Service) {
	mux.Handle("GET /jobs", ListHandler{svc})
	mux.Handle("GET /jobs/{id}", GetHandler{svc})
	mux.Handle("DELETE /jobs/{id}", CancelHandler{svc})
}

type ListHandler struct{ Svc *jobs.Service }

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.JobFilter{
		Status: entity.JobStatus(q.Get("status")),
		Type:   q.Get("type"),
		Limit:  queryInt(q.Get("limit")),
		Offset: queryInt(q.Get("offset")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		respond.Error(w, http.StatusBadRequest, errors.New("invalid status filter"))
		return
	}

	out, err := h.Svc.List(r.Context(), filter)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	dtos := make([]DTO, 0, len(out.Jobs))
	for _, j := range out.Jobs {
		dtos = append(dtos, toDTO(j))
	}
	counts := make(map[string]int, len(out.Counts))
	for status, n := range out.Counts {
		counts[string(status)] = n
	}
	respond.JSON(w, http.StatusOK, listDTO{Jobs: dtos, Counts: counts})
}

type GetHandler struct{ Svc *jobs.Service }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, errors.New("job not found"))
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, toViewDTO(view))
}

type CancelHandler struct{ Svc *jobs.Service }

func (h CancelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Cancel(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, errors.New("job not found"))
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
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
