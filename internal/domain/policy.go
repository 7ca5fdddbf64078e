package domain

import "time"

// RuleOutcome результат одного правила Policy Engine.
type RuleOutcome struct {
	RuleID  string `json:"rule_id"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// PolicyResult сохраняется в брифе как есть. После вычисления не меняется,
// повторная отправка считает новый результат.
type PolicyResult struct {
	Rules                 []RuleOutcome `json:"rules"`
	AutoRejectReasons     []string      `json:"auto_reject_reasons"`
	OwnerApprovalReasons  []string      `json:"owner_approval_reasons"`
	RequiresOwnerApproval bool          `json:"requires_owner_approval"`
	RequiresEscalation    bool          `json:"requires_escalation"`
	CanSubmit             bool          `json:"can_submit"`
	SuggestedPriority     Priority      `json:"suggested_priority"`
	EvaluatedAt           time.Time     `json:"evaluated_at"`
}

// Allows гарантирует ответ даже для непроинициализированного результата:
// нет результата, значит нет разрешения на отправку.
func (r *PolicyResult) Allows() bool {
	if r == nil {
		return false
	}
	return r.CanSubmit && len(r.AutoRejectReasons) == 0
}

// OwnerApprovalReason склеивает причины в одну строку для поля брифа.
func (r *PolicyResult) OwnerApprovalReason() string {
	if r == nil {
		return ""
	}
	out := ""
	for i, reason := range r.OwnerApprovalReasons {
		if i > 0 {
			out += "; "
		}
		out += reason
	}
	return out
}

// Failed возвращает только проваленные правила.
func (r *PolicyResult) Failed() []RuleOutcome {
	if r == nil {
		return nil
	}
	var out []RuleOutcome
	for _, o := range r.Rules {
		if !o.Passed {
			out = append(out, o)
		}
	}
	return out
}
