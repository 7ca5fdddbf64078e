package policy

import (
	"context"
	"sync"

	"github.com/xela07ax/brief-governance/internal/infra"
	"go.uber.org/zap"
)

// SettingsRepository источник переопределений порогов (таблица policy_settings).
// Ключи совпадают с json тегами Settings.
type SettingsRepository interface {
	LoadPolicySettings(ctx context.Context) (map[string]float64, error)
}

// SettingsCache потокобезопасный in-memory кэш порогов.
// Горячий путь (Check) читает только память, БД трогает лишь Refresh.
type SettingsCache struct {
	mu      sync.RWMutex
	base    Settings // из конфигурации
	current Settings
	repo    SettingsRepository
	logger  *zap.Logger
}

func NewSettingsCache(base Settings, repo SettingsRepository, logger *zap.Logger) *SettingsCache {
	base = base.withDefaults()
	return &SettingsCache{
		base:    base,
		current: base,
		repo:    repo,
		logger:  logger.Named("policy-settings"),
	}
}

func (c *SettingsCache) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Refresh перечитывает переопределения поверх базовых значений конфигурации.
func (c *SettingsCache) Refresh(ctx context.Context) error {
	overrides, err := c.repo.LoadPolicySettings(ctx)
	if err != nil {
		return err
	}

	next := c.base
	applied := 0
	for k, v := range overrides {
		if applyOverride(&next, k, v) {
			applied++
		} else {
			c.logger.Warn("unknown policy setting ignored", zap.String("key", k))
		}
	}
	next = next.withDefaults()

	c.mu.Lock()
	c.current = next
	c.mu.Unlock()

	c.logger.Info("policy settings refreshed", zap.Int("overrides", applied))
	return nil
}

// Listen держит подписку на сигнал обновления и перечитывает пороги. Блокирует до отмены ctx.
func (c *SettingsCache) Listen(ctx context.Context, rdb infra.Subscriber) {
	infra.ListenResilient(ctx, rdb, c.logger, infra.RedisChanPolicyUpdate,
		func() error { return c.Refresh(ctx) },
		func(payload string) {
			c.logger.Debug("policy update signal", zap.String("payload", payload))
			if err := c.Refresh(ctx); err != nil {
				c.logger.Error("policy settings refresh failed", zap.Error(err))
			}
		},
	)
}

func applyOverride(s *Settings, key string, v float64) bool {
	switch key {
	case "owner_approval_cost":
		s.OwnerApprovalCost = v
	case "max_cost":
		s.MaxCost = v
	case "crisis_min_context":
		s.CrisisMinContext = int(v)
	case "urgent_days":
		s.UrgentDays = int(v)
	case "relaxed_days":
		s.RelaxedDays = int(v)
	case "low_cost":
		s.LowCost = v
	default:
		return false
	}
	return true
}

// IsSettingKey сообщает, знает ли кэш такой ключ порога.
func IsSettingKey(key string) bool {
	var s Settings
	return applyOverride(&s, key, 0)
}
