package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/xela07ax/brief-governance/internal/domain"
	"github.com/xela07ax/brief-governance/internal/escalation"
	"github.com/xela07ax/brief-governance/internal/trail"
)

// Create заводит черновик. Форма записи и доп. поля шаблона проверяются здесь,
// полнота Decision Layer только при отправке.
func (m *Machine) Create(ctx context.Context, actor domain.Actor, draft *domain.Brief) (out *Outcome, err error) {
	defer func() { m.observe("", string(domain.StatusDraft), err) }()

	if actor.Role != domain.RoleManager {
		return nil, fmt.Errorf("%w: only managers create briefs", domain.ErrForbidden)
	}
	if draft.ClubID != "" && !actor.HasClub(draft.ClubID) {
		return nil, fmt.Errorf("%w: club %s is not assigned to the manager", domain.ErrForbidden, draft.ClubID)
	}

	now := m.now()
	b := clone(draft)
	b.ID = ""
	b.Code = ""
	b.CreatorID = actor.UserID
	b.Status = domain.StatusDraft
	b.PolicyResult = nil
	b.PolicyEvaluatedAt = nil
	b.RequiresOwnerApproval = false
	b.OwnerApprovalReason = ""
	b.Priority = domain.PriorityMedium
	b.ReviewerID, b.ReviewComment, b.SLADays, b.DecidedAt = "", "", 0, nil
	b.SubmittedAt = nil
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.AssetLinks == nil {
		b.AssetLinks = []string{}
	}
	if b.Formats == nil {
		b.Formats = []string{}
	}

	if err := m.validateContent(ctx, b); err != nil {
		return nil, err
	}
	if err := m.store.CreateBrief(ctx, b); err != nil {
		return nil, err
	}

	m.record(b, trail.TypeCreated, actor, "", string(b.Status), map[string]any{"code": b.Code})
	return &Outcome{Brief: b}, nil
}

// validateContent собирает все ошибки формы в одну ValidationError.
func (m *Machine) validateContent(ctx context.Context, b *domain.Brief) error {
	var fields []domain.FieldError
	var ve *domain.ValidationError
	if err := domain.ValidateShape(b); err != nil {
		if !errors.As(err, &ve) {
			return err
		}
		fields = append(fields, ve.Fields...)
	}

	if b.TemplateID != "" {
		tpl, err := m.store.GetTemplate(ctx, b.TemplateID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			fields = append(fields, domain.FieldError{Field: "template_id", Message: "unknown template"})
		case err != nil:
			return err
		default:
			fields = append(fields, domain.ValidateCustomFields(m.engine.Catalog().Schema(tpl.Code), b.CustomFields)...)
		}
	}
	if b.ClubID != "" {
		if _, err := m.store.GetClub(ctx, b.ClubID); errors.Is(err, domain.ErrNotFound) {
			fields = append(fields, domain.FieldError{Field: "club_id", Message: "unknown club"})
		} else if err != nil {
			return err
		}
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// EditContent правка контента на месте, статус не меняется.
// Менеджер-автор правит DRAFT и CHANGES_REQUESTED, валидатор клуба правит SUBMITTED.
// Политика не пересчитывается: сохраненный результат помечается устаревшим до следующей отправки.
func (m *Machine) EditContent(ctx context.Context, actor domain.Actor, id string, patch domain.ContentPatch) (out *Outcome, err error) {
	b, err := m.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := b.Status
	defer func() { m.observe(string(from), string(from), err) }()

	if from.IsTerminal() {
		return nil, &domain.IllegalTransitionError{From: string(from), To: string(from), Reason: "brief is in a terminal state"}
	}
	switch actor.Role {
	case domain.RoleManager:
		if actor.UserID != b.CreatorID {
			return nil, refuseRole(b, string(from), actor, "only the creator can edit")
		}
		if !from.IsEditableByManager() {
			return nil, &domain.IllegalTransitionError{From: string(from), To: string(from), Reason: "manager can edit only DRAFT or CHANGES_REQUESTED"}
		}
	case domain.RoleValidator:
		if !actor.HasClub(b.ClubID) {
			return nil, refuseRole(b, string(from), actor, "club is not assigned to the validator")
		}
		if from != domain.StatusSubmitted {
			return nil, &domain.IllegalTransitionError{From: string(from), To: string(from), Reason: "validator can edit only SUBMITTED"}
		}
	default:
		return nil, refuseRole(b, string(from), actor, "role cannot edit briefs")
	}

	next := clone(b)
	patch.Apply(next)
	next.UpdatedAt = m.now()

	if err := m.validateContent(ctx, next); err != nil {
		return nil, err
	}
	if err := m.store.UpdateBriefContent(ctx, next, from, b.UpdatedAt); err != nil {
		return nil, err
	}

	m.record(next, trail.TypeEdited, actor, string(from), string(from), map[string]any{"policy_stale": next.PolicyStale()})
	return &Outcome{
		Brief:         next,
		Notifications: m.trigger.Derive(escalation.Event{Kind: escalation.KindEdited, Brief: next, Actor: actor, PreviousStatus: from}),
	}, nil
}

// Cancel статусная отмена, бриф остается в истории.
// Доступна автору и администратору. Одобренный бриф с уже сданной работой не отменяется.
func (m *Machine) Cancel(ctx context.Context, actor domain.Actor, id, reason string) (out *Outcome, err error) {
	b, err := m.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := b.Status
	defer func() { m.observe(string(from), string(domain.StatusCancelled), err) }()

	if err := b.CanTransitionTo(domain.StatusCancelled); err != nil {
		return nil, err
	}
	isCreator := actor.Role == domain.RoleManager && actor.UserID == b.CreatorID
	if !isCreator && actor.Role != domain.RoleAdmin {
		return nil, refuseRole(b, string(domain.StatusCancelled), actor, "only the creator or an administrator can cancel")
	}

	if from == domain.StatusApproved {
		task, err := m.store.GetProductionTask(ctx, b.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if task != nil && task.Status.IsTerminal() {
			return nil, &domain.IllegalTransitionError{From: string(from), To: string(domain.StatusCancelled), Reason: "production is already delivered"}
		}
	}

	next := clone(b)
	next.Status = domain.StatusCancelled
	next.UpdatedAt = m.now()
	if err := m.store.TransitionBrief(ctx, next, from, b.UpdatedAt); err != nil {
		return nil, err
	}

	m.record(next, trail.TypeCancelled, actor, string(from), string(next.Status), map[string]any{"reason": reason})
	return &Outcome{
		Brief:         next,
		Notifications: m.trigger.Derive(escalation.Event{Kind: escalation.KindCancelled, Brief: next, Actor: actor, PreviousStatus: from}),
	}, nil
}

// DeleteDraft жесткое удаление, только для чистого DRAFT и только автором.
func (m *Machine) DeleteDraft(ctx context.Context, actor domain.Actor, id string) (err error) {
	b, err := m.load(ctx, actor, id)
	if err != nil {
		return err
	}
	defer func() { m.observe(string(b.Status), "DELETED", err) }()

	if b.Status != domain.StatusDraft {
		return &domain.IllegalTransitionError{From: string(b.Status), To: "DELETED", Reason: "only drafts can be deleted, cancel instead"}
	}
	if actor.Role != domain.RoleManager || actor.UserID != b.CreatorID {
		return refuseRole(b, "DELETED", actor, "only the creator can delete a draft")
	}
	if err := m.store.DeleteDraft(ctx, b.ID); err != nil {
		return err
	}

	m.record(b, trail.TypeDeleted, actor, string(b.Status), "DELETED", nil)
	return nil
}
