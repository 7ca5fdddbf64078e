package lifecycle

/*
Файл machine.go связывает AI Auditor, Policy Engine и хранилище в конечный автомат брифа.

Автомат сам ничего не хранит: каждый переход это чтение снимка, проверка графа и роли,
вычисление аудита/политики и одна условная запись в хранилище. Если запись не прошла
(статус поменялся параллельно), наружу уходит ErrConcurrentModification и ничего не меняется.
Журнал и уведомления best effort и пишутся только после успешной записи.
*/

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/brief-governance/internal/audit"
	"github.com/xela07ax/brief-governance/internal/domain"
	"github.com/xela07ax/brief-governance/internal/escalation"
	"github.com/xela07ax/brief-governance/internal/infra"
	"github.com/xela07ax/brief-governance/internal/policy"
	"github.com/xela07ax/brief-governance/internal/trail"
	"go.uber.org/zap"
)

// Store внешний коллаборатор хранения. Промахи отдаются как domain.ErrNotFound,
// проваленные условные записи как domain.ErrConcurrentModification.
type Store interface {
	GetBrief(ctx context.Context, id string) (*domain.Brief, error)
	GetTemplate(ctx context.Context, id string) (*domain.RequestTemplate, error)
	GetClub(ctx context.Context, id string) (*domain.Club, error)
	GetCapacity(ctx context.Context, id string) (*domain.ProductionCapacity, error)

	// CreateBrief назначает ID и код BR-<год>-<seq>.
	CreateBrief(ctx context.Context, b *domain.Brief) error
	// UpdateBriefContent пишет контент, если статус и updated_at не изменились с момента чтения.
	UpdateBriefContent(ctx context.Context, b *domain.Brief, expected domain.BriefStatus, expectedUpdatedAt time.Time) error
	// TransitionBrief атомарно пишет статус и метаданные политики, если статус == from
	// и updated_at не изменился с момента чтения.
	TransitionBrief(ctx context.Context, b *domain.Brief, from domain.BriefStatus, expectedUpdatedAt time.Time) error
	// ApproveBrief переводит SUBMITTED -> APPROVED и создает задачу продакшна в одной транзакции.
	// Условие записи то же, что у TransitionBrief.
	ApproveBrief(ctx context.Context, b *domain.Brief, task *domain.ProductionTask, expectedUpdatedAt time.Time) error
	DeleteDraft(ctx context.Context, id string) error

	GetProductionTask(ctx context.Context, briefID string) (*domain.ProductionTask, error)
	TransitionProductionTask(ctx context.Context, task *domain.ProductionTask, from domain.ProductionStatus) error
}

// Outcome то, что переход возвращает вызывающему.
type Outcome struct {
	Brief         *domain.Brief             `json:"brief"`
	Task          *domain.ProductionTask    `json:"production_task,omitempty"`
	Audit         *domain.AuditResult       `json:"audit,omitempty"`
	Policy        *domain.PolicyResult      `json:"policy,omitempty"`
	Notifications []escalation.Notification `json:"notifications,omitempty"`
}

type Machine struct {
	store   Store
	auditor *audit.Auditor
	engine  *policy.Engine
	trigger *escalation.Trigger
	journal trail.Logger
	metrics *infra.Metrics
	logger  *zap.Logger

	// Now единственный источник времени автомата
	Now   func() time.Time
	NewID func() string
}

func NewMachine(
	store Store,
	auditor *audit.Auditor,
	engine *policy.Engine,
	trigger *escalation.Trigger,
	journal trail.Logger,
	metrics *infra.Metrics,
	logger *zap.Logger,
) *Machine {
	if journal == nil {
		journal = nopJournal{}
	}
	if metrics == nil {
		metrics = infra.NewMetrics(nil)
	}
	return &Machine{
		store:   store,
		auditor: auditor,
		engine:  engine,
		trigger: trigger,
		journal: journal,
		metrics: metrics,
		logger:  logger.Named("lifecycle"),
		Now:     time.Now,
		NewID:   uuid.NewString,
	}
}

type nopJournal struct{}

func (nopJournal) Log(trail.Event) {}

// now приводит часы к UTC с точностью до микросекунд (как хранит Postgres).
func (m *Machine) now() time.Time {
	return m.Now().UTC().Truncate(time.Microsecond)
}

// references читает справочники брифа. Отсутствие мощности не ошибка: это только информация.
func (m *Machine) references(ctx context.Context, b *domain.Brief) (*domain.RequestTemplate, *domain.Club, *domain.ProductionCapacity, error) {
	tpl, err := m.store.GetTemplate(ctx, b.TemplateID)
	if err != nil {
		return nil, nil, nil, err
	}
	club, err := m.store.GetClub(ctx, b.ClubID)
	if err != nil {
		return nil, nil, nil, err
	}
	var capacity *domain.ProductionCapacity
	if tpl.CapacityID != "" {
		capacity, err = m.store.GetCapacity(ctx, tpl.CapacityID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, nil, nil, err
		}
	}
	return tpl, club, capacity, nil
}

func (m *Machine) runAudit(b *domain.Brief, tpl *domain.RequestTemplate, capacity *domain.ProductionCapacity, now time.Time) domain.AuditResult {
	res := m.auditor.PerformAudit(b, tpl, capacity, now)
	m.metrics.AuditOutcomes.WithLabelValues(string(res.OverallStatus)).Inc()
	return res
}

func (m *Machine) runPolicy(b *domain.Brief, tpl *domain.RequestTemplate, club *domain.Club, now time.Time) domain.PolicyResult {
	res := m.engine.Check(policy.InputFromBrief(b, tpl, club, now))
	decision := "allowed"
	if !policy.CanSubmit(res) {
		decision = "auto_reject"
	}
	m.metrics.PolicyDecisions.WithLabelValues(decision, strconv.FormatBool(res.RequiresOwnerApproval)).Inc()
	return res
}

func (m *Machine) record(b *domain.Brief, typ string, actor domain.Actor, from, to string, payload map[string]any) {
	m.journal.Log(trail.Event{
		ID:         m.NewID(),
		BriefID:    b.ID,
		Type:       typ,
		ActorID:    actor.UserID,
		ActorRole:  string(actor.Role),
		FromStatus: from,
		ToStatus:   to,
		Payload:    payload,
		Timestamp:  m.now(),
	})
}

func (m *Machine) observe(from, to string, err error) {
	m.metrics.Transitions.WithLabelValues(from, to, outcomeLabel(err)).Inc()
	if err == nil {
		return
	}
	switch outcomeLabel(err) {
	case "error", "not_found":
		m.logger.Error("transition failed", zap.String("from", from), zap.String("to", to), zap.Error(err))
	default:
		m.logger.Info("transition refused", zap.String("from", from), zap.String("to", to), zap.Error(err))
	}
}

func outcomeLabel(err error) string {
	var (
		inc *domain.IncompleteDecisionLayerError
		rej *domain.PolicyAutoRejectError
		ill *domain.IllegalTransitionError
		val *domain.ValidationError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &inc):
		return "incomplete"
	case errors.As(err, &rej):
		return "policy_reject"
	case errors.As(err, &ill):
		return "illegal"
	case errors.As(err, &val):
		return "invalid"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrConcurrentModification):
		return "conflict"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	}
	return "error"
}

// CanView кто видит бриф: автор и менеджеры клуба, валидаторы клуба, продакшн, админ и владелец.
func CanView(a domain.Actor, b *domain.Brief) bool {
	switch a.Role {
	case domain.RoleAdmin, domain.RoleOwner, domain.RoleProduction:
		return true
	case domain.RoleValidator:
		return a.HasClub(b.ClubID)
	case domain.RoleManager:
		return a.UserID == b.CreatorID || a.HasClub(b.ClubID)
	}
	return false
}

// load читает бриф и проверяет право видеть его. Чужой бриф выглядит как отсутствующий.
func (m *Machine) load(ctx context.Context, actor domain.Actor, id string) (*domain.Brief, error) {
	b, err := m.store.GetBrief(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(actor, b) {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func refuseRole(b *domain.Brief, to string, actor domain.Actor, reason string) error {
	return &domain.IllegalTransitionError{From: string(b.Status), To: to, Role: actor.Role, Reason: reason}
}

func clone(b *domain.Brief) *domain.Brief {
	c := *b
	return &c
}
