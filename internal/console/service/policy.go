package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/brief-governance/internal/domain"
	"github.com/xela07ax/brief-governance/internal/infra"
	"github.com/xela07ax/brief-governance/internal/policy"
	"go.uber.org/zap"
)

// PolicyRepository описывает требования сервиса к хранилищу порогов
type PolicyRepository interface {
	UpsertPolicySetting(ctx context.Context, key string, value float64) error
	DeletePolicySetting(ctx context.Context, key string) error
}

// SignalPublisher сужает redis.Client до публикации сигнала.
type SignalPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type PolicyService struct {
	engine *policy.Engine
	cache  *policy.SettingsCache
	repo   PolicyRepository
	rdb    SignalPublisher
	logger *zap.Logger
}

func NewPolicyService(engine *policy.Engine, cache *policy.SettingsCache, repo PolicyRepository, rdb SignalPublisher, logger *zap.Logger) *PolicyService {
	return &PolicyService{
		engine: engine,
		cache:  cache,
		repo:   repo,
		rdb:    rdb,
		logger: logger.Named("policy-service"),
	}
}

// Check сырой прогон движка по входу (dry-run), ничего не пишет.
func (s *PolicyService) Check(in policy.Input) domain.PolicyResult {
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}
	return s.engine.Check(in)
}

// Settings действующие пороги.
func (s *PolicyService) Settings() policy.Settings {
	return s.engine.Settings()
}

func (s *PolicyService) Catalog() *policy.Catalog {
	return s.engine.Catalog()
}

// UpdateSetting сохраняет порог и инициирует перезагрузку кэша на всех инстансах.
func (s *PolicyService) UpdateSetting(ctx context.Context, actor domain.Actor, key string, value float64) error {
	if actor.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: only administrators change policy settings", domain.ErrForbidden)
	}
	if !policy.IsSettingKey(key) {
		return &domain.ValidationError{Fields: []domain.FieldError{{Field: "key", Message: "unknown policy setting " + key}}}
	}
	if value < 0 {
		return &domain.ValidationError{Fields: []domain.FieldError{{Field: "value", Message: "must not be negative"}}}
	}
	if err := s.repo.UpsertPolicySetting(ctx, key, value); err != nil {
		return err
	}
	return s.notifyUpdate(ctx)
}

// ResetSetting возвращает порог к значению из конфигурации.
func (s *PolicyService) ResetSetting(ctx context.Context, actor domain.Actor, key string) error {
	if actor.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: only administrators change policy settings", domain.ErrForbidden)
	}
	if err := s.repo.DeletePolicySetting(ctx, key); err != nil {
		return err
	}
	return s.notifyUpdate(ctx)
}

// notifyUpdate: локальный кэш перечитываем сразу, остальные инстансы получат сигнал из Redis.
func (s *PolicyService) notifyUpdate(ctx context.Context) error {
	if err := s.cache.Refresh(ctx); err != nil {
		return fmt.Errorf("policy settings saved but reload failed: %w", err)
	}
	if s.rdb == nil {
		return nil
	}
	// Сигнал может быть простым "refresh", так как инстанс сам перечитает всю таблицу
	if err := s.rdb.Publish(ctx, infra.RedisChanPolicyUpdate, "refresh").Err(); err != nil {
		s.logger.Warn("policy update signal delivery failed", zap.Error(err))
	}
	return nil
}
