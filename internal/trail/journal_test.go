package trail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type memStorage struct {
	mu      sync.Mutex
	batches [][]Event
	fail    bool
}

func (s *memStorage) WriteBatch(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("db is down")
	}
	s.batches = append(s.batches, append([]Event(nil), events...))
	return nil
}

func (s *memStorage) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func TestJournalFlushesOnStop(t *testing.T) {
	repo := &memStorage{}
	j := NewJournal(repo, zap.NewNop(), Options{BatchSize: 100, FlushInterval: time.Hour})
	j.Start()

	for i := 0; i < 5; i++ {
		j.Log(Event{BriefID: "b-1", Type: TypeSubmitted})
	}
	j.Stop()

	if got := repo.total(); got != 5 {
		t.Fatalf("expected 5 events after drain, got %d", got)
	}
	if len(repo.batches) != 1 {
		t.Fatalf("expected a single batch, got %d", len(repo.batches))
	}
}

func TestJournalFlushesWhenBatchIsFull(t *testing.T) {
	repo := &memStorage{}
	j := NewJournal(repo, zap.NewNop(), Options{BatchSize: 2, FlushInterval: time.Hour})
	j.Start()

	for i := 0; i < 4; i++ {
		j.Log(Event{BriefID: "b-1", Type: TypeEdited})
	}

	deadline := time.Now().Add(2 * time.Second)
	for repo.total() < 4 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := repo.total(); got != 4 {
		t.Fatalf("expected full batches to be written before stop, got %d", got)
	}
	j.Stop()
}

func TestJournalFillsTimestamp(t *testing.T) {
	repo := &memStorage{}
	j := NewJournal(repo, zap.NewNop(), Options{})
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return fixed }
	j.Start()

	given := fixed.Add(time.Hour)
	j.Log(Event{Type: TypeCreated})
	j.Log(Event{Type: TypeCreated, Timestamp: given})
	j.Stop()

	events := repo.batches[0]
	if !events[0].Timestamp.Equal(fixed) {
		t.Fatalf("zero timestamp must be filled, got %v", events[0].Timestamp)
	}
	if !events[1].Timestamp.Equal(given) {
		t.Fatalf("explicit timestamp must be kept, got %v", events[1].Timestamp)
	}
}

func TestJournalDropsAfterStopAndOnOverflow(t *testing.T) {
	repo := &memStorage{}
	j := NewJournal(repo, zap.NewNop(), Options{BufferSize: 2, FlushInterval: time.Hour})

	// Воркер не запущен: буфер на 2 события, третье отбрасывается без блокировки
	for i := 0; i < 3; i++ {
		j.Log(Event{Type: TypeCreated})
	}
	if len(j.ch) != 2 {
		t.Fatalf("buffer = %d, want 2", len(j.ch))
	}

	j.Start()
	j.Stop()
	j.Stop()
	j.Log(Event{Type: TypeCreated})

	if got := repo.total(); got != 2 {
		t.Fatalf("expected 2 stored events, got %d", got)
	}
}

func TestJournalSurvivesStorageFailure(t *testing.T) {
	repo := &memStorage{fail: true}
	j := NewJournal(repo, zap.NewNop(), Options{})
	j.Start()
	j.Log(Event{Type: TypeCancelled})
	j.Stop()

	if got := repo.total(); got != 0 {
		t.Fatalf("failed batch must not be stored, got %d", got)
	}
}

func TestJournalLogConcurrentWithStop(t *testing.T) {
	for round := 0; round < 20; round++ {
		repo := &memStorage{}
		j := NewJournal(repo, zap.NewNop(), Options{BufferSize: 8, BatchSize: 4, FlushInterval: time.Millisecond})
		j.Start()

		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for k := 0; k < 50; k++ {
					j.Log(Event{Type: TypeSubmitted})
				}
			}()
		}
		close(start)
		j.Stop()
		wg.Wait()

		// Всё, что попало в канал до закрытия, записано. Отправки после Stop отброшены без паники.
		if got := repo.total(); got > 8*50 {
			t.Fatalf("round %d: stored %d events, more than logged", round, got)
		}
	}
}
