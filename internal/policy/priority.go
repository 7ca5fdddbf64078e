package policy

import (
	"github.com/xela07ax/brief-governance/internal/domain"
)

// SuggestPriority чистая функция входа и порогов.
// Кризис всегда CRITICAL. Срочный дедлайн или дорогой бриф дают HIGH.
// Длинный дешевый бриф LOW, остальное MEDIUM.
func SuggestPriority(in Input, s Settings) domain.Priority {
	if in.IsCrisis {
		return domain.PriorityCritical
	}

	hasDeadline := in.Deadline != nil
	days := 0
	if hasDeadline {
		days = domain.DaysUntil(in.Now, *in.Deadline)
	}

	if hasDeadline && days <= s.UrgentDays {
		return domain.PriorityHigh
	}
	if in.EstimatedCost > s.OwnerApprovalCost {
		return domain.PriorityHigh
	}
	if hasDeadline && days >= s.RelaxedDays && in.EstimatedCost <= s.LowCost {
		return domain.PriorityLow
	}
	return domain.PriorityMedium
}
