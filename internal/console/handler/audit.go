package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Audit прогон AI Auditor без сохранения
// GET /v1/briefs/{id}/audit
func (h *BriefHandler) Audit(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	res, err := h.service.Audit(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PolicyPreview прогон Policy Engine без сохранения
// GET /v1/briefs/{id}/policy
func (h *BriefHandler) PolicyPreview(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	res, err := h.service.PolicyPreview(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Events история переходов брифа
// GET /v1/briefs/{id}/events
func (h *BriefHandler) Events(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	events, err := h.service.Events(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
