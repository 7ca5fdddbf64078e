package domain

// Статусы State Machine брифа
type BriefStatus string

const (
	StatusDraft            BriefStatus = "DRAFT"
	StatusSubmitted        BriefStatus = "SUBMITTED"
	StatusChangesRequested BriefStatus = "CHANGES_REQUESTED"
	StatusApproved         BriefStatus = "APPROVED"
	StatusRejected         BriefStatus = "REJECTED"
	StatusCancelled        BriefStatus = "CANCELLED"
)

// Допустимые ребра графа. SUBMITTED -> SUBMITTED это правка валидатора без смены статуса.
// Из терминальных состояний ребер нет.
var briefTransitions = map[BriefStatus][]BriefStatus{
	StatusDraft:            {StatusSubmitted, StatusCancelled},
	StatusSubmitted:        {StatusApproved, StatusRejected, StatusChangesRequested, StatusSubmitted},
	StatusChangesRequested: {StatusSubmitted, StatusCancelled},
	StatusApproved:         {StatusCancelled},
}

func (s BriefStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusChangesRequested, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal: REJECTED и CANCELLED финальны, дальше бриф не меняется.
func (s BriefStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusCancelled
}

// IsEditableByManager: менеджер правит контент только в черновике или после запроса правок.
func (s BriefStatus) IsEditableByManager() bool {
	return s == StatusDraft || s == StatusChangesRequested
}

// CanTransition проверяет правила конечного автомата (без учета роли).
func CanTransition(from, to BriefStatus) bool {
	for _, next := range briefTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses возвращает копию списка допустимых следующих состояний.
func NextStatuses(from BriefStatus) []BriefStatus {
	return append([]BriefStatus(nil), briefTransitions[from]...)
}

// CanTransitionTo проверяет переход для конкретного брифа.
func (b *Brief) CanTransitionTo(next BriefStatus) error {
	if b.Status.IsTerminal() {
		return &IllegalTransitionError{From: string(b.Status), To: string(next), Reason: "brief is in a terminal state"}
	}
	if !CanTransition(b.Status, next) {
		return &IllegalTransitionError{From: string(b.Status), To: string(next)}
	}
	return nil
}
