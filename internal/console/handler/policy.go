package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/brief-governance/internal/domain"
	"github.com/xela07ax/brief-governance/internal/policy"
	"go.uber.org/zap"
)

type PolicyService interface {
	Check(in policy.Input) domain.PolicyResult
	Settings() policy.Settings
	UpdateSetting(ctx context.Context, actor domain.Actor, key string, value float64) error
	ResetSetting(ctx context.Context, actor domain.Actor, key string) error
}

type PolicyHandler struct {
	service PolicyService
	logger  *zap.Logger
}

func NewPolicyHandler(s PolicyService, logger *zap.Logger) *PolicyHandler {
	return &PolicyHandler{service: s, logger: logger.Named("policy-handler")}
}

// Check оценивает произвольный вход движка, ничего не сохраняя
// POST /v1/policy/check
func (h *PolicyHandler) Check(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}
	var in policy.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, h.service.Check(in))
}

// Settings действующие пороги
// GET /v1/policy/settings
func (h *PolicyHandler) Settings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Settings())
}

type settingRequest struct {
	Value *float64 `json:"value"`
}

// Update PUT /v1/policy/settings/{key}
func (h *PolicyHandler) Update(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req settingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == nil {
		badRequest(w, "value is required")
		return
	}
	if err := h.service.UpdateSetting(r.Context(), a, chi.URLParam(r, "key"), *req.Value); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.service.Settings())
}

// Reset возвращает порог к значению из конфигурации
// DELETE /v1/policy/settings/{key}
func (h *PolicyHandler) Reset(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.service.ResetSetting(r.Context(), a, chi.URLParam(r, "key")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.service.Settings())
}
