package trail

/*
Файл journal.go реализует журнал переходов брифа (Audit Trail).

- Non-blocking Logging: переходы пишутся в буферизованный канал, запись в БД
  не влияет на время ответа API.
- Batching: события копятся и уходят пачкой по таймеру или при достижении batchSize.
- Drain Pattern: Stop закрывает канал и ждет финального flush, события не теряются.

Журнал best effort: сам переход уже зафиксирован в storage атомарно, журнал его только описывает.
*/

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// StorageInterface определяет, куда физически будут сохраняться события
type StorageInterface interface {
	// WriteBatch сохраняет пачку событий за один раз
	WriteBatch(ctx context.Context, events []Event) error
}

type Logger interface {
	Log(event Event)
}

type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	// BufferFill опционально, заполненность буфера (backpressure)
	BufferFill prometheus.Gauge
}

type Journal struct {
	ch     chan Event
	repo   StorageInterface
	logger *zap.Logger
	opts   Options
	now    func() time.Time
	wg     sync.WaitGroup
	// mu: Log держит RLock на проверку и отправку, Stop берет Lock на close(ch)
	mu       sync.RWMutex
	isClosed bool
}

func NewJournal(repo StorageInterface, logger *zap.Logger, opts Options) *Journal {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Second
	}
	return &Journal{
		ch:     make(chan Event, opts.BufferSize),
		repo:   repo,
		logger: logger.With(zap.String("mod", "trail")),
		opts:   opts,
		now:    time.Now,
	}
}

func (j *Journal) Start() {
	j.wg.Add(1)
	go j.worker()
}

// Stop запирает вход в канал и ждет, пока воркер всё допишет.
func (j *Journal) Stop() {
	j.mu.Lock()
	if j.isClosed {
		j.mu.Unlock()
		return
	}
	j.isClosed = true
	close(j.ch)
	j.mu.Unlock()

	j.logger.Info("stopping trail: channel closed, flushing buffer...")
	j.wg.Wait()
	j.logger.Info("trail stopped gracefully")
}

func (j *Journal) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = j.now()
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.isClosed {
		j.logger.Warn("trail event dropped: journal is stopping", zap.String("id", event.ID))
		return
	}

	// Load Shedding: при переполнении не блокируем переход, а пишем в лог
	select {
	case j.ch <- event:
		if j.opts.BufferFill != nil {
			j.opts.BufferFill.Set(float64(len(j.ch)))
		}
	default:
		j.logger.Error("trail_buffer_overflow",
			zap.String("brief_id", event.BriefID),
			zap.String("type", event.Type),
		)
	}
}

func (j *Journal) worker() {
	defer j.wg.Done()

	batch := make([]Event, 0, j.opts.BatchSize)
	ticker := time.NewTicker(j.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст к этому моменту может быть уже закрыт
		if err := j.repo.WriteBatch(context.Background(), batch); err != nil {
			j.logger.Error("trail flush failed", zap.Int("events", len(batch)), zap.Error(err))
		}
		batch = make([]Event, 0, j.opts.BatchSize)
		if j.opts.BufferFill != nil {
			j.opts.BufferFill.Set(float64(len(j.ch)))
		}
	}

	for {
		select {
		case event, ok := <-j.ch:
			if !ok {
				// Канал закрыт в Stop(): всё вычитано, финальный сброс
				flush()
				j.logger.Info("trail worker finished")
				return
			}
			batch = append(batch, event)
			if len(batch) >= j.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
