package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
	ErrConcurrentModification = errors.New("brief was modified concurrently, reload and retry")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError форма входных данных неверна еще до движка. Никогда не сохраняется.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// IncompleteDecisionLayerError Completeness упал при отправке, бриф остается в текущем статусе.
type IncompleteDecisionLayerError struct {
	Missing []string `json:"missing_fields"`
}

func (e *IncompleteDecisionLayerError) Error() string {
	return fmt.Sprintf("missing fields: [%s]", strings.Join(e.Missing, ", "))
}

// PolicyAutoRejectError жесткий отказ Policy Engine. Бриф НЕ переводится в REJECTED:
// этот статус только за человеком.
type PolicyAutoRejectError struct {
	Reasons []string `json:"reasons"`
}

func (e *PolicyAutoRejectError) Error() string {
	return fmt.Sprintf("rejected by policy: [%s]", strings.Join(e.Reasons, "; "))
}

// IllegalTransitionError переход не является ребром графа для роли актора.
type IllegalTransitionError struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Role   Role   `json:"role,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (e *IllegalTransitionError) Error() string {
	msg := fmt.Sprintf("illegal transition %s -> %s", e.From, e.To)
	if e.Role != "" {
		msg += " for role " + string(e.Role)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is позволяет проверять отказ по праву через errors.Is(err, ErrForbidden).
func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrForbidden && e.Role != ""
}
