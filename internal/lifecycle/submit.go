package lifecycle

import (
	"context"

	"github.com/xela07ax/brief-governance/internal/audit"
	"github.com/xela07ax/brief-governance/internal/domain"
	"github.com/xela07ax/brief-governance/internal/escalation"
	"github.com/xela07ax/brief-governance/internal/policy"
	"github.com/xela07ax/brief-governance/internal/trail"
)

// Submit переводит DRAFT или CHANGES_REQUESTED в SUBMITTED.
// Гейты по порядку: граф и автор, полнота Decision Layer, причины автоотказа политики.
// Провал любого гейта не меняет бриф.
func (m *Machine) Submit(ctx context.Context, actor domain.Actor, id string) (out *Outcome, err error) {
	b, err := m.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := b.Status
	defer func() { m.observe(string(from), string(domain.StatusSubmitted), err) }()

	if from != domain.StatusDraft && from != domain.StatusChangesRequested {
		reason := ""
		if from == domain.StatusSubmitted {
			reason = "brief is already submitted"
		}
		return nil, &domain.IllegalTransitionError{From: string(from), To: string(domain.StatusSubmitted), Reason: reason}
	}
	if err := b.CanTransitionTo(domain.StatusSubmitted); err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleManager || actor.UserID != b.CreatorID {
		return nil, refuseRole(b, string(domain.StatusSubmitted), actor, "only the creating manager can submit")
	}

	tpl, club, capacity, err := m.references(ctx, b)
	if err != nil {
		return nil, err
	}

	now := m.now()
	auditRes := m.runAudit(b, tpl, capacity, now)
	if !audit.CanSubmit(auditRes) {
		return nil, &domain.IncompleteDecisionLayerError{Missing: auditRes.Completeness.MissingFields}
	}

	policyRes := m.runPolicy(b, tpl, club, now)
	if !policy.CanSubmit(policyRes) {
		return nil, &domain.PolicyAutoRejectError{Reasons: policyRes.AutoRejectReasons}
	}

	next := clone(b)
	next.Status = domain.StatusSubmitted
	next.PolicyResult = &policyRes
	next.PolicyEvaluatedAt = &now
	next.RequiresOwnerApproval = policyRes.RequiresOwnerApproval
	next.OwnerApprovalReason = policyRes.OwnerApprovalReason()
	next.Priority = policyRes.SuggestedPriority
	next.SubmittedAt = &now
	next.UpdatedAt = now

	if err := m.store.TransitionBrief(ctx, next, from, b.UpdatedAt); err != nil {
		return nil, err
	}

	typ, kind := trail.TypeSubmitted, escalation.KindSubmitted
	if from == domain.StatusChangesRequested {
		typ, kind = trail.TypeResubmitted, escalation.KindResubmitted
	}
	m.record(next, typ, actor, string(from), string(next.Status), map[string]any{
		"priority":                next.Priority,
		"requires_owner_approval": next.RequiresOwnerApproval,
		"requires_escalation":     policyRes.RequiresEscalation,
		"audit_status":            auditRes.OverallStatus,
	})

	return &Outcome{
		Brief:         next,
		Audit:         &auditRes,
		Policy:        &policyRes,
		Notifications: m.trigger.Derive(escalation.Event{Kind: kind, Brief: next, Actor: actor, PreviousStatus: from}),
	}, nil
}

// Audit пересчитывает аудит по текущему снимку. Ничего не пишет.
func (m *Machine) Audit(ctx context.Context, actor domain.Actor, id string) (*domain.AuditResult, error) {
	b, err := m.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	tpl, _, capacity, err := m.references(ctx, b)
	if err != nil {
		return nil, err
	}
	res := m.runAudit(b, tpl, capacity, m.now())
	return &res, nil
}

// PolicyPreview прогоняет движок по текущему снимку без сохранения (dry-run).
// Сохраненный результат остается авторитетным до следующей отправки.
func (m *Machine) PolicyPreview(ctx context.Context, actor domain.Actor, id string) (*domain.PolicyResult, error) {
	b, err := m.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	tpl, club, _, err := m.references(ctx, b)
	if err != nil {
		return nil, err
	}
	res := m.engine.Check(policy.InputFromBrief(b, tpl, club, m.now()))
	return &res, nil
}

// Get возвращает бриф, если актор его видит.
func (m *Machine) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Brief, error) {
	return m.load(ctx, actor, id)
}
