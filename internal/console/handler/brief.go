package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/brief-governance/internal/domain"
	"github.com/xela07ax/brief-governance/internal/lifecycle"
	"github.com/xela07ax/brief-governance/internal/trail"
	"go.uber.org/zap"
)

// BriefService описываем, что нам нужно от сервиса
type BriefService interface {
	Create(ctx context.Context, actor domain.Actor, draft *domain.Brief) (*lifecycle.Outcome, error)
	Get(ctx context.Context, actor domain.Actor, id string) (*domain.Brief, error)
	List(ctx context.Context, actor domain.Actor, status domain.BriefStatus, limit int) ([]*domain.Brief, error)
	Edit(ctx context.Context, actor domain.Actor, id string, patch domain.ContentPatch) (*lifecycle.Outcome, error)
	Delete(ctx context.Context, actor domain.Actor, id string) error
	Audit(ctx context.Context, actor domain.Actor, id string) (*domain.AuditResult, error)
	PolicyPreview(ctx context.Context, actor domain.Actor, id string) (*domain.PolicyResult, error)
	Submit(ctx context.Context, actor domain.Actor, id string) (*lifecycle.Outcome, error)
	Decide(ctx context.Context, actor domain.Actor, id string, d lifecycle.Decision) (*lifecycle.Outcome, error)
	Cancel(ctx context.Context, actor domain.Actor, id, reason string) (*lifecycle.Outcome, error)
	ProductionTask(ctx context.Context, actor domain.Actor, briefID string) (*domain.ProductionTask, error)
	AdvanceProduction(ctx context.Context, actor domain.Actor, briefID string, to domain.ProductionStatus) (*lifecycle.Outcome, error)
	Events(ctx context.Context, actor domain.Actor, id string) ([]trail.Event, error)
}

type BriefHandler struct {
	service BriefService
	logger  *zap.Logger
}

func NewBriefHandler(s BriefService, logger *zap.Logger) *BriefHandler {
	return &BriefHandler{service: s, logger: logger.Named("brief-handler")}
}

// briefView бриф плюс вычисляемый флаг устаревшей оценки политики для UI.
type briefView struct {
	*domain.Brief
	PolicyStale bool `json:"policy_stale"`
}

func view(b *domain.Brief) briefView {
	return briefView{Brief: b, PolicyStale: b.PolicyStale()}
}

type outcomeView struct {
	Brief  briefView              `json:"brief"`
	Task   *domain.ProductionTask `json:"production_task,omitempty"`
	Audit  *domain.AuditResult    `json:"audit,omitempty"`
	Policy *domain.PolicyResult   `json:"policy,omitempty"`
}

func viewOutcome(out *lifecycle.Outcome) outcomeView {
	return outcomeView{Brief: view(out.Brief), Task: out.Task, Audit: out.Audit, Policy: out.Policy}
}

// List очередь брифов
// GET /v1/briefs?status=SUBMITTED&limit=50
func (h *BriefHandler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	status := domain.BriefStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		badRequest(w, "unknown status "+string(status))
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	briefs, err := h.service.List(r.Context(), a, status, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	views := make([]briefView, 0, len(briefs))
	for _, b := range briefs {
		views = append(views, view(b))
	}
	writeJSON(w, http.StatusOK, views)
}

// Create POST /v1/briefs
func (h *BriefHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var draft domain.Brief
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	out, err := h.service.Create(r.Context(), a, &draft)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOutcome(out))
}

// Get GET /v1/briefs/{id}
func (h *BriefHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	b, err := h.service.Get(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view(b))
}

// Edit частичная правка контента
// PATCH /v1/briefs/{id}
func (h *BriefHandler) Edit(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var patch domain.ContentPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	out, err := h.service.Edit(r.Context(), a, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOutcome(out))
}

// Delete удаляет черновик
// DELETE /v1/briefs/{id}
func (h *BriefHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), a, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Submit POST /v1/briefs/{id}/submit
func (h *BriefHandler) Submit(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	out, err := h.service.Submit(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOutcome(out))
}

// Decide решение валидатора: APPROVED, REJECTED, CHANGES_REQUESTED
// POST /v1/briefs/{id}/decide
func (h *BriefHandler) Decide(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var d lifecycle.Decision
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	out, err := h.service.Decide(r.Context(), a, chi.URLParam(r, "id"), d)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOutcome(out))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel POST /v1/briefs/{id}/cancel
func (h *BriefHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	// Тело опционально
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "Invalid request body")
		return
	}
	out, err := h.service.Cancel(r.Context(), a, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOutcome(out))
}

// ProductionTask GET /v1/briefs/{id}/production
func (h *BriefHandler) ProductionTask(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	task, err := h.service.ProductionTask(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type productionStatusRequest struct {
	Status domain.ProductionStatus `json:"status"`
}

// AdvanceProduction POST /v1/briefs/{id}/production/status
func (h *BriefHandler) AdvanceProduction(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req productionStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	out, err := h.service.AdvanceProduction(r.Context(), a, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOutcome(out))
}
