package lifecycle

import (
	"context"
	"strings"

	"github.com/xela07ax/brief-governance/internal/domain"
	"github.com/xela07ax/brief-governance/internal/escalation"
	"github.com/xela07ax/brief-governance/internal/trail"
)

const (
	minSLADays = 1
	maxSLADays = 90
)

// Decision решение валидатора по отправленному брифу.
type Decision struct {
	Outcome  domain.BriefStatus `json:"outcome"` // APPROVED, REJECTED, CHANGES_REQUESTED
	Comment  string             `json:"comment"`
	Priority domain.Priority    `json:"priority,omitempty"` // только для APPROVED, пусто = предложенный
	SLADays  int                `json:"sla_days,omitempty"` // только для APPROVED, 0 = SLA шаблона
}

func (d Decision) validate() error {
	var fields []domain.FieldError
	switch d.Outcome {
	case domain.StatusApproved:
	case domain.StatusRejected, domain.StatusChangesRequested:
		if strings.TrimSpace(d.Comment) == "" {
			fields = append(fields, domain.FieldError{Field: "comment", Message: "is required for " + string(d.Outcome)})
		}
	default:
		fields = append(fields, domain.FieldError{Field: "outcome", Message: "must be APPROVED, REJECTED or CHANGES_REQUESTED"})
	}
	if d.Priority != "" && !d.Priority.Valid() {
		fields = append(fields, domain.FieldError{Field: "priority", Message: "unknown value " + string(d.Priority)})
	}
	if d.SLADays != 0 && (d.SLADays < minSLADays || d.SLADays > maxSLADays) {
		fields = append(fields, domain.FieldError{Field: "sla_days", Message: "must be between 1 and 90"})
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

var decisionEventTypes = map[domain.BriefStatus]string{
	domain.StatusApproved:         trail.TypeApproved,
	domain.StatusRejected:         trail.TypeRejected,
	domain.StatusChangesRequested: trail.TypeChangesRequested,
}

// Decide человеческое решение по брифу в статусе ровно SUBMITTED.
// Одобрение заменяет предложенный приоритет и SLA выбором валидатора и заводит задачу продакшна.
func (m *Machine) Decide(ctx context.Context, actor domain.Actor, id string, d Decision) (out *Outcome, err error) {
	b, err := m.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := b.Status
	defer func() { m.observe(string(from), string(d.Outcome), err) }()

	if err := d.validate(); err != nil {
		return nil, err
	}
	if from != domain.StatusSubmitted {
		return nil, &domain.IllegalTransitionError{From: string(from), To: string(d.Outcome), Reason: "only submitted briefs can be decided"}
	}
	if err := b.CanTransitionTo(d.Outcome); err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleValidator || !actor.HasClub(b.ClubID) {
		return nil, refuseRole(b, string(d.Outcome), actor, "only a validator of the club can decide")
	}

	now := m.now()
	next := clone(b)
	next.Status = d.Outcome
	next.ReviewerID = actor.UserID
	next.ReviewComment = d.Comment
	next.DecidedAt = &now
	next.UpdatedAt = now

	var task *domain.ProductionTask
	if d.Outcome == domain.StatusApproved {
		tpl, tplErr := m.store.GetTemplate(ctx, b.TemplateID)
		if tplErr != nil {
			return nil, tplErr
		}
		sla := d.SLADays
		if sla == 0 {
			sla = m.auditor.RequiredSLADays(tpl)
		}
		if d.Priority != "" {
			next.Priority = d.Priority
		}
		next.SLADays = sla

		task = &domain.ProductionTask{
			ID:        m.NewID(),
			BriefID:   next.ID,
			Status:    domain.ProductionQueued,
			Priority:  next.Priority,
			DueDate:   now.AddDate(0, 0, sla),
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = m.store.ApproveBrief(ctx, next, task, b.UpdatedAt)
	} else {
		err = m.store.TransitionBrief(ctx, next, from, b.UpdatedAt)
	}
	if err != nil {
		return nil, err
	}

	payload := map[string]any{"comment": d.Comment}
	if task != nil {
		payload["priority"] = next.Priority
		payload["sla_days"] = next.SLADays
		payload["production_task_id"] = task.ID
	}
	m.record(next, decisionEventTypes[d.Outcome], actor, string(from), string(next.Status), payload)

	return &Outcome{
		Brief:         next,
		Task:          task,
		Notifications: m.trigger.Derive(escalation.Event{Kind: escalation.KindDecided, Brief: next, Actor: actor, PreviousStatus: from}),
	}, nil
}
