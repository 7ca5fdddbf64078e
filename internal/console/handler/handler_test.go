package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/brief-governance/internal/domain"
	"github.com/xela07ax/brief-governance/internal/infra/auth"
	"github.com/xela07ax/brief-governance/internal/lifecycle"
	"github.com/xela07ax/brief-governance/internal/trail"
	"go.uber.org/zap"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		kind string
	}{
		{"validation", &domain.ValidationError{Fields: []domain.FieldError{{Field: "title", Message: "is required"}}}, http.StatusUnprocessableEntity, "validation_failed"},
		{"incomplete", &domain.IncompleteDecisionLayerError{Missing: []string{"kpi_description"}}, http.StatusUnprocessableEntity, "incomplete_decision_layer"},
		{"auto reject", &domain.PolicyAutoRejectError{Reasons: []string{"blacklisted"}}, http.StatusUnprocessableEntity, "policy_auto_reject"},
		{"role refusal", &domain.IllegalTransitionError{From: "SUBMITTED", To: "APPROVED", Role: domain.RoleManager}, http.StatusForbidden, "illegal_transition"},
		{"state refusal", &domain.IllegalTransitionError{From: "APPROVED", To: "SUBMITTED"}, http.StatusConflict, "illegal_transition"},
		{"forbidden", fmt.Errorf("%w: nope", domain.ErrForbidden), http.StatusForbidden, "forbidden"},
		{"conflict", domain.ErrConcurrentModification, http.StatusConflict, "concurrent_modification"},
		{"not found", fmt.Errorf("brief x: %w", domain.ErrNotFound), http.StatusNotFound, "not_found"},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := statusFor(tc.err)
			if code != tc.code || body.Kind != tc.kind {
				t.Fatalf("got %d/%s, want %d/%s", code, body.Kind, tc.code, tc.kind)
			}
		})
	}

	_, body := statusFor(errors.New("pq: password authentication failed"))
	if strings.Contains(body.Error, "password") {
		t.Fatalf("internal error leaked: %q", body.Error)
	}
}

// fakeBriefs отдает заготовленный результат и запоминает вызовы.
type fakeBriefs struct {
	BriefService
	err      error
	lastID   string
	decision lifecycle.Decision
	status   domain.BriefStatus
	reason   string
	brief    *domain.Brief
}

func (f *fakeBriefs) outcome(id string) (*lifecycle.Outcome, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return &lifecycle.Outcome{Brief: f.brief}, nil
}

func (f *fakeBriefs) Get(_ context.Context, _ domain.Actor, id string) (*domain.Brief, error) {
	f.lastID = id
	return f.brief, f.err
}

func (f *fakeBriefs) List(_ context.Context, _ domain.Actor, status domain.BriefStatus, _ int) ([]*domain.Brief, error) {
	f.status = status
	return []*domain.Brief{f.brief}, f.err
}

func (f *fakeBriefs) Submit(_ context.Context, _ domain.Actor, id string) (*lifecycle.Outcome, error) {
	return f.outcome(id)
}

func (f *fakeBriefs) Decide(_ context.Context, _ domain.Actor, id string, d lifecycle.Decision) (*lifecycle.Outcome, error) {
	f.decision = d
	return f.outcome(id)
}

func (f *fakeBriefs) Cancel(_ context.Context, _ domain.Actor, id, reason string) (*lifecycle.Outcome, error) {
	f.reason = reason
	return f.outcome(id)
}

func (f *fakeBriefs) Events(_ context.Context, _ domain.Actor, id string) ([]trail.Event, error) {
	f.lastID = id
	return []trail.Event{{ID: "e1", BriefID: id, Type: trail.TypeSubmitted}}, f.err
}

func testRouter(h *BriefHandler, a *domain.Actor) http.Handler {
	r := chi.NewRouter()
	if a != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(auth.WithActor(req.Context(), *a)))
			})
		})
	}
	r.Get("/v1/briefs", h.List)
	r.Get("/v1/briefs/{id}", h.Get)
	r.Get("/v1/briefs/{id}/events", h.Events)
	r.Post("/v1/briefs/{id}/submit", h.Submit)
	r.Post("/v1/briefs/{id}/decide", h.Decide)
	r.Post("/v1/briefs/{id}/cancel", h.Cancel)
	return r
}

func sampleBrief() *domain.Brief {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	evaluated := now.Add(-time.Hour)
	return &domain.Brief{
		ID: "b-1", Code: "BR-2026-0001", Status: domain.StatusSubmitted,
		UpdatedAt: now, PolicyEvaluatedAt: &evaluated,
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBriefHandlerGetReportsStalePolicy(t *testing.T) {
	svc := &fakeBriefs{brief: sampleBrief()}
	a := domain.Actor{UserID: "val-1", Role: domain.RoleValidator, ClubIDs: []string{"club-1"}}
	rec := do(t, testRouter(NewBriefHandler(svc, zap.NewNop()), &a), http.MethodGet, "/v1/briefs/b-1", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["policy_stale"] != true || got["code"] != "BR-2026-0001" || svc.lastID != "b-1" {
		t.Fatalf("unexpected body %v", got)
	}
}

func TestBriefHandlerRequiresActor(t *testing.T) {
	rec := do(t, testRouter(NewBriefHandler(&fakeBriefs{brief: sampleBrief()}, zap.NewNop()), nil), http.MethodGet, "/v1/briefs/b-1", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestBriefHandlerSubmitMapsIncomplete(t *testing.T) {
	svc := &fakeBriefs{err: &domain.IncompleteDecisionLayerError{Missing: []string{"business_objective", "deadline"}}}
	a := domain.Actor{UserID: "mgr-1", Role: domain.RoleManager, ClubIDs: []string{"club-1"}}
	rec := do(t, testRouter(NewBriefHandler(svc, zap.NewNop()), &a), http.MethodPost, "/v1/briefs/b-1/submit", "")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Missing) != 2 || body.Missing[0] != "business_objective" {
		t.Fatalf("missing = %v", body.Missing)
	}
}

func TestBriefHandlerDecideDecodesBody(t *testing.T) {
	svc := &fakeBriefs{brief: sampleBrief()}
	a := domain.Actor{UserID: "val-1", Role: domain.RoleValidator, ClubIDs: []string{"club-1"}}
	router := testRouter(NewBriefHandler(svc, zap.NewNop()), &a)

	rec := do(t, router, http.MethodPost, "/v1/briefs/b-1/decide", `{"outcome":"APPROVED","priority":"HIGH","sla_days":7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if svc.decision.Outcome != domain.StatusApproved || svc.decision.Priority != domain.PriorityHigh || svc.decision.SLADays != 7 {
		t.Fatalf("decision = %+v", svc.decision)
	}

	if rec := do(t, router, http.MethodPost, "/v1/briefs/b-1/decide", `{not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d", rec.Code)
	}
}

func TestBriefHandlerCancelBodyIsOptional(t *testing.T) {
	svc := &fakeBriefs{brief: sampleBrief()}
	a := domain.Actor{UserID: "mgr-1", Role: domain.RoleManager, ClubIDs: []string{"club-1"}}
	router := testRouter(NewBriefHandler(svc, zap.NewNop()), &a)

	if rec := do(t, router, http.MethodPost, "/v1/briefs/b-1/cancel", ""); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := do(t, router, http.MethodPost, "/v1/briefs/b-1/cancel", `{"reason":"campaign dropped"}`); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.reason != "campaign dropped" {
		t.Fatalf("reason = %q", svc.reason)
	}
}

func TestBriefHandlerListValidatesQuery(t *testing.T) {
	svc := &fakeBriefs{brief: sampleBrief()}
	a := domain.Actor{UserID: "adm-1", Role: domain.RoleAdmin}
	router := testRouter(NewBriefHandler(svc, zap.NewNop()), &a)

	if rec := do(t, router, http.MethodGet, "/v1/briefs?status=ARCHIVED", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown status accepted: %d", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/v1/briefs?limit=-1", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("negative limit accepted: %d", rec.Code)
	}
	rec := do(t, router, http.MethodGet, "/v1/briefs?status=SUBMITTED&limit=10", "")
	if rec.Code != http.StatusOK || svc.status != domain.StatusSubmitted {
		t.Fatalf("status = %d, filter = %q", rec.Code, svc.status)
	}
}

func TestBriefHandlerEventsNotFound(t *testing.T) {
	svc := &fakeBriefs{err: fmt.Errorf("brief b-9: %w", domain.ErrNotFound)}
	a := domain.Actor{UserID: "val-2", Role: domain.RoleValidator, ClubIDs: []string{"club-2"}}
	rec := do(t, testRouter(NewBriefHandler(svc, zap.NewNop()), &a), http.MethodGet, "/v1/briefs/b-9/events", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
