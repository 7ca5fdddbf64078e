package handler

/*
Файл errors.go переводит доменные ошибки в HTTP ответы.

Тело ошибки всегда JSON с полем error и, для типизированных отказов, с деталями:
список недостающих полей, причины отказа политики, запрещенный переход.
*/

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/brief-governance/internal/domain"
	"github.com/xela07ax/brief-governance/internal/infra/auth"
	"go.uber.org/zap"
)

type errorBody struct {
	Error      string                         `json:"error"`
	Kind       string                         `json:"kind"`
	Fields     []domain.FieldError            `json:"fields,omitempty"`
	Missing    []string                       `json:"missing_fields,omitempty"`
	Reasons    []string                       `json:"reasons,omitempty"`
	Transition *domain.IllegalTransitionError `json:"transition,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor возвращает HTTP код и тело для ошибки уровня сервиса.
func statusFor(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}

	var (
		validation *domain.ValidationError
		incomplete *domain.IncompleteDecisionLayerError
		rejected   *domain.PolicyAutoRejectError
		illegal    *domain.IllegalTransitionError
	)
	switch {
	case errors.As(err, &validation):
		body.Kind, body.Fields = "validation_failed", validation.Fields
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &incomplete):
		body.Kind, body.Missing = "incomplete_decision_layer", incomplete.Missing
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &rejected):
		body.Kind, body.Reasons = "policy_auto_reject", rejected.Reasons
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &illegal):
		body.Kind, body.Transition = "illegal_transition", illegal
		if illegal.Role != "" {
			return http.StatusForbidden, body
		}
		return http.StatusConflict, body
	case errors.Is(err, domain.ErrForbidden):
		body.Kind = "forbidden"
		return http.StatusForbidden, body
	case errors.Is(err, domain.ErrConcurrentModification):
		body.Kind = "concurrent_modification"
		return http.StatusConflict, body
	case errors.Is(err, domain.ErrNotFound):
		body.Kind = "not_found"
		return http.StatusNotFound, body
	}
	// Внутренние детали наружу не отдаем
	return http.StatusInternalServerError, errorBody{Error: "internal error", Kind: "internal"}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, body := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg, Kind: "bad_request"})
}

// actor достает актора из контекста. Его кладет auth middleware, без него защищенный роут не вызывается.
func actor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	a, ok := auth.ActorFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized", Kind: "unauthorized"})
	}
	return a, ok
}
