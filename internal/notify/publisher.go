// Package notify доставляет уведомления триггера эскалации во внешний канал.
// Движок решает "кого и почему", этот пакет только надежно передает.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/brief-governance/internal/escalation"
	"github.com/xela07ax/brief-governance/internal/infra"
	"go.uber.org/zap"
)

// Sender одна попытка доставки одного уведомления.
type Sender interface {
	Send(ctx context.Context, n escalation.Notification) error
}

// ThrottleError канал попросил подождать. Ретрай берет RetryAfter вместо бэкоффа.
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

func (e *ThrottleError) Unwrap() error { return e.Cause }

// Publisher сужает redis.Client до публикации.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher отдает уведомления в канал Redis, дальше их разбирают почтовые и чат-воркеры.
type RedisPublisher struct {
	rdb     Publisher
	channel string
	logger  *zap.Logger
}

func NewRedisPublisher(rdb Publisher, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: infra.RedisChanNotifications, logger: logger.Named("notify")}
}

func (p *RedisPublisher) Send(ctx context.Context, n escalation.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification %s: %w", n.ID, err)
	}
	receivers, err := p.rdb.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish notification %s: %w", n.ID, err)
	}
	if receivers == 0 {
		// Подписчиков нет: сообщение потеряно, но это не повод ретраить
		p.logger.Warn("notification published without subscribers",
			zap.String("id", n.ID), zap.String("reason", n.Reason))
	}
	return nil
}

// LogSender для окружений без Redis: уведомление только пишется в лог.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("notify")}
}

func (s *LogSender) Send(_ context.Context, n escalation.Notification) error {
	s.logger.Info("notification",
		zap.String("id", n.ID),
		zap.String("reason", n.Reason),
		zap.String("brief", n.BriefCode),
		zap.String("role", string(n.Recipient.Role)),
		zap.String("club", n.Recipient.ClubID),
		zap.String("user", n.Recipient.UserID),
	)
	return nil
}
