package escalation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"intelwire/internal/domain/entity"
	"intelwire/internal/observability/logging"
	"intelwire/internal/repository"
	escUC "intelwire/internal/usecase/escalation"
)

type memEscRepo struct {
	escalations map[string]*entity.Escalation
}

func newMemEscRepo() *memEscRepo {
	return &memEscRepo{escalations: make(map[string]*entity.Escalation)}
}

func (r *memEscRepo) Get(ctx context.Context, id string) (*entity.Escalation, error) {
	e, ok := r.escalations[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *memEscRepo) List(ctx context.Context, filter repository.EscalationFilter) ([]*entity.Escalation, error) {
	var out []*entity.Escalation
	for _, e := range r.escalations {
		if filter.Priority != "" && e.Priority != filter.Priority {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *memEscRepo) Counts(ctx context.Context, filter repository.EscalationFilter) (*repository.EscalationCounts, error) {
	counts := &repository.EscalationCounts{
		ByStatus:   make(map[entity.EscalationStatus]int),
		ByPriority: make(map[entity.Priority]int),
		ByType:     make(map[entity.EscalationType]int),
	}
	for _, e := range r.escalations {
		counts.ByStatus[e.Status]++
		counts.ByPriority[e.Priority]++
		counts.ByType[e.Type]++
	}
	return counts, nil
}

func (r *memEscRepo) Create(ctx context.Context, e *entity.Escalation) error {
	cp := *e
	r.escalations[e.ID] = &cp
	return nil
}

func (r *memEscRepo) Update(ctx context.Context, e *entity.Escalation) error {
	if _, ok := r.escalations[e.ID]; !ok {
		return entity.ErrNotFound
	}
	cp := *e
	r.escalations[e.ID] = &cp
	return nil
}

type noopSink struct{}

func (noopSink) Notify(ctx context.Context, event string, payload map[string]any) bool { return true }

func newTestMux(t *testing.T) (*http.ServeMux, *escUC.Service) {
	t.Helper()
	svc := escUC.NewService(newMemEscRepo(), noopSink{}, logging.NewNop())
	mux := http.NewServeMux()
	Register(mux, svc)
	return mux, svc
}

func TestCreateHandler(t *testing.T) {
	mux, svc := newTestMux(t)

	body := `{"type":"manual_intervention","priority":"high","title":"Check source credentials"}`
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/escalations", strings.NewReader(body)))

	if w.Code != http.StatusCreated {
		t.Fatalf("code = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp["id"], "esc_") {
		t.Errorf("id = %q, want esc_ prefix", resp["id"])
	}

	got, err := svc.Get(context.Background(), resp["id"])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != entity.EscalationPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
}

func TestCreateHandler_InvalidType(t *testing.T) {
	mux, _ := newTestMux(t)

	body := `{"type":"bogus","priority":"high","title":"x"}`
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/escalations", strings.NewReader(body)))

	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", w.Code)
	}
}

func TestListHandler_FiltersAndCounts(t *testing.T) {
	mux, svc := newTestMux(t)
	seed := func(priority entity.Priority) {
		t.Helper()
		_, err := svc.Create(context.Background(), escUC.CreateInput{
			Type:     entity.EscalationError,
			Priority: priority,
			Title:    "seeded",
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	seed(entity.PriorityHigh)
	seed(entity.PriorityHigh)
	seed(entity.PriorityLow)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/escalations?priority=high", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	var got listDTO
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Escalations) != 2 {
		t.Errorf("escalations = %d, want 2", len(got.Escalations))
	}
	if got.Counts.ByPriority["high"] != 2 || got.Counts.ByPriority["low"] != 1 {
		t.Errorf("counts = %v", got.Counts.ByPriority)
	}
}

func TestListHandler_InvalidPriority(t *testing.T) {
	mux, _ := newTestMux(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/escalations?priority=bogus", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", w.Code)
	}
}

func TestUpdateHandler_Resolve(t *testing.T) {
	mux, svc := newTestMux(t)
	id, err := svc.Create(context.Background(), escUC.CreateInput{
		Type:     entity.EscalationLowConfidence,
		Priority: entity.PriorityMedium,
		Title:    "needs review",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	body := `{"status":"resolved","resolved_by":"ops","resolution_notes":"looks fine"}`
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/escalations/"+id, strings.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", w.Code, w.Body.String())
	}
	var got DTO
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "resolved" || got.ResolvedBy != "ops" || got.ResolvedAt == nil {
		t.Errorf("body = %+v", got)
	}
}

func TestUpdateHandler_NotFound(t *testing.T) {
	mux, _ := newTestMux(t)

	body := `{"status":"dismissed"}`
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/escalations/esc_missing", strings.NewReader(body)))

	if w.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", w.Code)
	}
}
