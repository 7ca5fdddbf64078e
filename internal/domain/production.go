package domain

import "time"

// ProductionStatus подчиненный жизненный цикл задачи продакшна, создается после APPROVED.
type ProductionStatus string

const (
	ProductionQueued     ProductionStatus = "QUEUED"
	ProductionInProgress ProductionStatus = "IN_PROGRESS"
	ProductionInReview   ProductionStatus = "IN_REVIEW"
	ProductionOnHold     ProductionStatus = "ON_HOLD"
	ProductionDelivered  ProductionStatus = "DELIVERED"
)

var productionTransitions = map[ProductionStatus][]ProductionStatus{
	ProductionQueued:     {ProductionInProgress},
	ProductionInProgress: {ProductionOnHold, ProductionInReview},
	ProductionOnHold:     {ProductionInProgress},
	ProductionInReview:   {ProductionDelivered},
}

func (s ProductionStatus) Valid() bool {
	switch s {
	case ProductionQueued, ProductionInProgress, ProductionInReview, ProductionOnHold, ProductionDelivered:
		return true
	}
	return false
}

func (s ProductionStatus) IsTerminal() bool {
	return s == ProductionDelivered
}

func CanTransitionProduction(from, to ProductionStatus) bool {
	for _, next := range productionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type ProductionTask struct {
	ID         string           `json:"id"`
	BriefID    string           `json:"brief_id"`
	Status     ProductionStatus `json:"status"`
	Priority   Priority         `json:"priority"`
	AssigneeID string           `json:"assignee_id,omitempty"`
	DueDate    time.Time        `json:"due_date"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
