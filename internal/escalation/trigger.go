// Package escalation решает, кого уведомить о событии брифа. Доставка целиком снаружи.
package escalation

import (
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/brief-governance/internal/domain"
)

// Kind событие жизненного цикла, на которое реагирует триггер.
type Kind string

const (
	KindSubmitted   Kind = "submitted"
	KindResubmitted Kind = "resubmitted"
	KindDecided     Kind = "decided" // итог в Brief.Status
	KindEdited      Kind = "edited"
	KindCancelled   Kind = "cancelled"
	KindProduction  Kind = "production" // итог в Task.Status
)

// Коды причин уведомления
const (
	ReasonBriefSubmitted      = "brief_submitted"
	ReasonBriefResubmitted    = "brief_resubmitted"
	ReasonOwnerApproval       = "owner_approval_required"
	ReasonCrisis              = "crisis_communication"
	ReasonPolicyEscalation    = "policy_escalation"
	ReasonBriefApproved       = "brief_approved"
	ReasonBriefRejected       = "brief_rejected"
	ReasonChangesRequested    = "changes_requested"
	ReasonProductionQueued    = "production_queued"
	ReasonValidatorEdit       = "brief_edited_by_validator"
	ReasonBriefCancelled      = "brief_cancelled"
	ReasonProductionDelivered = "production_delivered"
)

// Recipient либо роль (опционально в пределах клуба), либо конкретный пользователь.
type Recipient struct {
	Role   domain.Role `json:"role,omitempty"`
	ClubID string      `json:"club_id,omitempty"`
	UserID string      `json:"user_id,omitempty"`
}

type Notification struct {
	ID        string    `json:"id"`
	Recipient Recipient `json:"recipient"`
	Reason    string    `json:"reason"`
	BriefID   string    `json:"brief_id"`
	BriefCode string    `json:"brief_code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Event struct {
	Kind           Kind
	Brief          *domain.Brief
	Actor          domain.Actor
	PreviousStatus domain.BriefStatus
	Task           *domain.ProductionTask
}

// Trigger чистый: одно и то же событие дает тот же список (с точностью до ID и времени).
type Trigger struct {
	Now   func() time.Time
	NewID func() string
}

func NewTrigger() *Trigger {
	return &Trigger{Now: time.Now, NewID: uuid.NewString}
}

// Derive строит уведомления по событию. Повторы (получатель, причина) схлопываются,
// актор сам себе не пишет.
func (t *Trigger) Derive(ev Event) []Notification {
	if ev.Brief == nil {
		return nil
	}
	b := ev.Brief
	var targets []target

	switch ev.Kind {
	case KindSubmitted, KindResubmitted:
		reason := ReasonBriefSubmitted
		if ev.Kind == KindResubmitted {
			reason = ReasonBriefResubmitted
		}
		targets = append(targets, target{Recipient{Role: domain.RoleValidator, ClubID: b.ClubID}, reason})

		if b.RequiresOwnerApproval {
			targets = append(targets, target{Recipient{Role: domain.RoleOwner}, ReasonOwnerApproval})
		}
		if b.IsCrisisCommunication {
			targets = append(targets,
				target{Recipient{Role: domain.RoleOwner}, ReasonCrisis},
				target{Recipient{Role: domain.RoleAdmin}, ReasonCrisis},
			)
		} else if b.PolicyResult != nil && b.PolicyResult.RequiresEscalation {
			targets = append(targets, target{Recipient{Role: domain.RoleAdmin}, ReasonPolicyEscalation})
		}

	case KindDecided:
		switch b.Status {
		case domain.StatusApproved:
			targets = append(targets,
				target{Recipient{UserID: b.CreatorID}, ReasonBriefApproved},
				target{Recipient{Role: domain.RoleProduction}, ReasonProductionQueued},
			)
		case domain.StatusRejected:
			targets = append(targets, target{Recipient{UserID: b.CreatorID}, ReasonBriefRejected})
		case domain.StatusChangesRequested:
			targets = append(targets, target{Recipient{UserID: b.CreatorID}, ReasonChangesRequested})
		}

	case KindEdited:
		// Правку менеджера в черновике никому показывать не нужно
		if ev.Actor.Role == domain.RoleValidator {
			targets = append(targets, target{Recipient{UserID: b.CreatorID}, ReasonValidatorEdit})
		}

	case KindCancelled:
		if ev.Actor.UserID != b.CreatorID {
			targets = append(targets, target{Recipient{UserID: b.CreatorID}, ReasonBriefCancelled})
		}
		if ev.PreviousStatus == domain.StatusApproved {
			targets = append(targets, target{Recipient{Role: domain.RoleProduction}, ReasonBriefCancelled})
		}

	case KindProduction:
		if ev.Task != nil && ev.Task.Status == domain.ProductionDelivered {
			targets = append(targets, target{Recipient{UserID: b.CreatorID}, ReasonProductionDelivered})
		}
	}

	return t.build(b, ev.Actor, targets)
}

type target struct {
	recipient Recipient
	reason    string
}

func (t *Trigger) build(b *domain.Brief, actor domain.Actor, targets []target) []Notification {
	out := make([]Notification, 0, len(targets))
	seen := make(map[target]bool, len(targets))
	now := t.Now()
	for _, tg := range targets {
		if seen[tg] {
			continue
		}
		seen[tg] = true
		if tg.recipient.UserID != "" && tg.recipient.UserID == actor.UserID {
			continue
		}
		out = append(out, Notification{
			ID:        t.NewID(),
			Recipient: tg.recipient,
			Reason:    tg.reason,
			BriefID:   b.ID,
			BriefCode: b.Code,
			CreatedAt: now,
		})
	}
	return out
}
