package service

/*
Файл brief_service.go склеивает автомат брифа с доставкой уведомлений и выборками для консоли.

Переход фиксируется в хранилище внутри автомата. Уведомления уходят уже после этого,
в фоне: их сбой логируется и не откатывает переход.
*/

import (
	"context"
	"sync"
	"time"

	"github.com/xela07ax/brief-governance/internal/domain"
	"github.com/xela07ax/brief-governance/internal/escalation"
	"github.com/xela07ax/brief-governance/internal/lifecycle"
	"github.com/xela07ax/brief-governance/internal/repository/postgres"
	"github.com/xela07ax/brief-governance/internal/trail"
	"go.uber.org/zap"
)

// BriefRepository выборки, которых нет у автомата
type BriefRepository interface {
	ListBriefs(ctx context.Context, f postgres.BriefFilter) ([]*domain.Brief, error)
	FetchEvents(ctx context.Context, briefID string) ([]trail.Event, error)
	GetDashboard(ctx context.Context, now time.Time) (*domain.Dashboard, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ns []escalation.Notification) error
}

type BriefService struct {
	machine    *lifecycle.Machine
	repo       BriefRepository
	dispatcher Dispatcher
	logger     *zap.Logger
	now        func() time.Time // "сейчас" для просрочек дашборда

	wg              sync.WaitGroup
	dispatchTimeout time.Duration
}

func NewBriefService(machine *lifecycle.Machine, repo BriefRepository, dispatcher Dispatcher, logger *zap.Logger) *BriefService {
	return &BriefService{
		machine:         machine,
		repo:            repo,
		dispatcher:      dispatcher,
		logger:          logger.Named("brief-service"),
		now:             time.Now,
		dispatchTimeout: 30 * time.Second,
	}
}

// notify отправляет уведомления в фоне. Контекст запроса к этому моменту может быть уже закрыт.
func (s *BriefService) notify(ctx context.Context, out *lifecycle.Outcome) {
	if out == nil || len(out.Notifications) == 0 || s.dispatcher == nil {
		return
	}
	ns := out.Notifications
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.dispatchTimeout)
		defer cancel()
		if err := s.dispatcher.Dispatch(dctx, ns); err != nil {
			s.logger.Warn("some notifications were not delivered", zap.Int("total", len(ns)), zap.Error(err))
		}
	}()
}

// Wait ждет фоновые отправки (graceful shutdown).
func (s *BriefService) Wait() {
	s.wg.Wait()
}

func (s *BriefService) Create(ctx context.Context, actor domain.Actor, draft *domain.Brief) (*lifecycle.Outcome, error) {
	return s.machine.Create(ctx, actor, draft)
}

func (s *BriefService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Brief, error) {
	return s.machine.Get(ctx, actor, id)
}

// List очередь брифов в пределах видимости роли.
func (s *BriefService) List(ctx context.Context, actor domain.Actor, status domain.BriefStatus, limit int) ([]*domain.Brief, error) {
	f := postgres.BriefFilter{Status: status, Limit: limit}
	switch actor.Role {
	case domain.RoleValidator:
		f.ClubIDs = actor.ClubIDs
		if f.ClubIDs == nil {
			f.ClubIDs = []string{}
		}
	case domain.RoleManager:
		f.ClubIDs = actor.ClubIDs
		f.CreatorID = actor.UserID
		f.ClubsOrCreator = true
	case domain.RoleAdmin, domain.RoleOwner, domain.RoleProduction:
	default:
		return []*domain.Brief{}, nil
	}
	return s.repo.ListBriefs(ctx, f)
}

func (s *BriefService) Edit(ctx context.Context, actor domain.Actor, id string, patch domain.ContentPatch) (*lifecycle.Outcome, error) {
	out, err := s.machine.EditContent(ctx, actor, id, patch)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, out)
	return out, nil
}

func (s *BriefService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	return s.machine.DeleteDraft(ctx, actor, id)
}

func (s *BriefService) Audit(ctx context.Context, actor domain.Actor, id string) (*domain.AuditResult, error) {
	return s.machine.Audit(ctx, actor, id)
}

func (s *BriefService) PolicyPreview(ctx context.Context, actor domain.Actor, id string) (*domain.PolicyResult, error) {
	return s.machine.PolicyPreview(ctx, actor, id)
}

func (s *BriefService) Submit(ctx context.Context, actor domain.Actor, id string) (*lifecycle.Outcome, error) {
	out, err := s.machine.Submit(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, out)
	return out, nil
}

func (s *BriefService) Decide(ctx context.Context, actor domain.Actor, id string, d lifecycle.Decision) (*lifecycle.Outcome, error) {
	out, err := s.machine.Decide(ctx, actor, id, d)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, out)
	return out, nil
}

func (s *BriefService) Cancel(ctx context.Context, actor domain.Actor, id, reason string) (*lifecycle.Outcome, error) {
	out, err := s.machine.Cancel(ctx, actor, id, reason)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, out)
	return out, nil
}

func (s *BriefService) ProductionTask(ctx context.Context, actor domain.Actor, briefID string) (*domain.ProductionTask, error) {
	return s.machine.ProductionTask(ctx, actor, briefID)
}

func (s *BriefService) AdvanceProduction(ctx context.Context, actor domain.Actor, briefID string, to domain.ProductionStatus) (*lifecycle.Outcome, error) {
	out, err := s.machine.AdvanceProduction(ctx, actor, briefID, to)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, out)
	return out, nil
}

// Events история брифа. Видимость та же, что у самого брифа.
func (s *BriefService) Events(ctx context.Context, actor domain.Actor, id string) ([]trail.Event, error) {
	if _, err := s.machine.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.repo.FetchEvents(ctx, id)
}

func (s *BriefService) Dashboard(ctx context.Context, actor domain.Actor) (*domain.Dashboard, error) {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleOwner, domain.RoleValidator, domain.RoleProduction:
	default:
		return nil, domain.ErrForbidden
	}
	return s.repo.GetDashboard(ctx, s.now())
}
