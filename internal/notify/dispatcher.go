package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"github.com/xela07ax/brief-governance/internal/escalation"
	"github.com/xela07ax/brief-governance/internal/infra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const breakerName = "notify"

// Dispatcher оборачивает Sender лимитером, предохранителем и ретраями.
// Переход брифа к этому моменту уже зафиксирован: ошибки доставки только логируются и считаются.
type Dispatcher struct {
	next     Sender
	cb       *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	attempts uint
	timeout  time.Duration
	metrics  *infra.Metrics
	logger   *zap.Logger
}

func NewDispatcher(next Sender, cfg infra.NotifyConfig, metrics *infra.Metrics, logger *zap.Logger) *Dispatcher {
	if metrics == nil {
		metrics = infra.NewMetrics(nil)
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 50
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.CBTimeout <= 0 {
		cfg.CBTimeout = 30 * time.Second
	}
	logger = logger.Named("notify")

	gauge := metrics.CircuitBreakerState.WithLabelValues(breakerName)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout, // через сколько CB попробует закрыться
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Больше 5 провалов подряд: канал лежит, не долбим его
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
			if to == gobreaker.StateClosed {
				gauge.Set(0)
			} else {
				gauge.Set(1)
			}
		},
	})

	return &Dispatcher{
		next:     next,
		cb:       cb,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		attempts: cfg.Attempts,
		timeout:  10 * time.Second,
		metrics:  metrics,
		logger:   logger,
	}
}

// Dispatch доставляет уведомления по одному. Провал одного не мешает остальным,
// наружу возвращается объединенная ошибка.
func (d *Dispatcher) Dispatch(ctx context.Context, ns []escalation.Notification) error {
	var errs []error
	for _, n := range ns {
		if err := d.deliver(ctx, n); err != nil {
			d.metrics.Notifications.WithLabelValues("failed").Inc()
			d.logger.Error("notification delivery failed",
				zap.String("id", n.ID),
				zap.String("brief_id", n.BriefID),
				zap.String("reason", n.Reason),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		d.metrics.Notifications.WithLabelValues("delivered").Inc()
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) deliver(ctx context.Context, n escalation.Notification) error {
	// 1. Rate Limiter
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	// 2. Circuit Breaker
	_, err := d.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(d.attempts),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Канал сам сказал, сколько ждать
				var tErr *ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}
				return retry.BackOffDelay(n, err, config)
			}),
		)

		return nil, r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			return d.next.Send(tCtx, n)
		})
	})
	return err
}
