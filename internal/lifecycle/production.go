package lifecycle

import (
	"context"
	"strings"

	"github.com/xela07ax/brief-governance/internal/domain"
	"github.com/xela07ax/brief-governance/internal/escalation"
	"github.com/xela07ax/brief-governance/internal/trail"
)

// AdvanceProduction свободная смена статуса задачи продакшна, ограниченная только ролью.
// Политика здесь не пересчитывается. QUEUED -> IN_PROGRESS назначает задачу на исполнителя.
func (m *Machine) AdvanceProduction(ctx context.Context, actor domain.Actor, briefID string, to domain.ProductionStatus) (out *Outcome, err error) {
	var from domain.ProductionStatus
	defer func() { m.observe(string(from), string(to), err) }()

	if !to.Valid() {
		return nil, &domain.ValidationError{Fields: []domain.FieldError{{Field: "status", Message: "unknown production status " + string(to)}}}
	}
	b, err := m.load(ctx, actor, briefID)
	if err != nil {
		return nil, err
	}
	task, err := m.store.GetProductionTask(ctx, briefID)
	if err != nil {
		return nil, err
	}
	from = task.Status

	if actor.Role != domain.RoleProduction {
		return nil, &domain.IllegalTransitionError{From: string(from), To: string(to), Role: actor.Role, Reason: "only production can move tasks"}
	}
	if b.Status != domain.StatusApproved {
		return nil, &domain.IllegalTransitionError{From: string(from), To: string(to), Reason: "brief is " + string(b.Status)}
	}
	if !domain.CanTransitionProduction(from, to) {
		reason := ""
		if from.IsTerminal() {
			reason = "task is already delivered"
		}
		return nil, &domain.IllegalTransitionError{From: string(from), To: string(to), Reason: reason}
	}

	next := *task
	next.Status = to
	next.UpdatedAt = m.now()
	if from == domain.ProductionQueued && to == domain.ProductionInProgress && next.AssigneeID == "" {
		next.AssigneeID = actor.UserID
	}
	if err := m.store.TransitionProductionTask(ctx, &next, from); err != nil {
		return nil, err
	}

	m.record(b, trail.TypeProductionPrefix+strings.ToLower(string(to)), actor, string(from), string(to), map[string]any{
		"task_id":  next.ID,
		"assignee": next.AssigneeID,
	})
	return &Outcome{
		Brief:         b,
		Task:          &next,
		Notifications: m.trigger.Derive(escalation.Event{Kind: escalation.KindProduction, Brief: b, Actor: actor, Task: &next}),
	}, nil
}

// ProductionTask задача продакшна по брифу.
func (m *Machine) ProductionTask(ctx context.Context, actor domain.Actor, briefID string) (*domain.ProductionTask, error) {
	if _, err := m.load(ctx, actor, briefID); err != nil {
		return nil, err
	}
	return m.store.GetProductionTask(ctx, briefID)
}
