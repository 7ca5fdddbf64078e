package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xela07ax/brief-governance/internal/domain"
	"github.com/xela07ax/brief-governance/internal/trail"
)

// memStore повторяет семантику условных записей Postgres-хранилища.
type memStore struct {
	mu        sync.Mutex
	briefs    map[string]*domain.Brief
	templates map[string]*domain.RequestTemplate
	clubs     map[string]*domain.Club
	capacity  map[string]*domain.ProductionCapacity
	tasks     map[string]*domain.ProductionTask // по brief_id
	seq       map[int]int

	// beforeWrite имитирует параллельного писателя между чтением и записью
	beforeWrite func(s *memStore)
}

func newMemStore() *memStore {
	return &memStore{
		briefs:    map[string]*domain.Brief{},
		templates: map[string]*domain.RequestTemplate{},
		clubs:     map[string]*domain.Club{},
		capacity:  map[string]*domain.ProductionCapacity{},
		tasks:     map[string]*domain.ProductionTask{},
		seq:       map[int]int{},
	}
}

func (s *memStore) hook() {
	if s.beforeWrite != nil {
		h := s.beforeWrite
		s.beforeWrite = nil
		h(s)
	}
}

func (s *memStore) GetBrief(_ context.Context, id string) (*domain.Brief, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.briefs[id]
	if !ok {
		return nil, fmt.Errorf("brief %s: %w", id, domain.ErrNotFound)
	}
	c := *b
	return &c, nil
}

func (s *memStore) GetTemplate(_ context.Context, id string) (*domain.RequestTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
	}
	c := *t
	return &c, nil
}

func (s *memStore) GetClub(_ context.Context, id string) (*domain.Club, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clubs[id]
	if !ok {
		return nil, fmt.Errorf("club %s: %w", id, domain.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) GetCapacity(_ context.Context, id string) (*domain.ProductionCapacity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.capacity[id]
	if !ok {
		return nil, fmt.Errorf("capacity %s: %w", id, domain.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) CreateBrief(_ context.Context, b *domain.Brief) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	year := b.CreatedAt.Year()
	s.seq[year]++
	b.ID = fmt.Sprintf("brief-%d", len(s.briefs)+1)
	b.Code = domain.FormatBriefCode(year, s.seq[year])
	c := *b
	s.briefs[b.ID] = &c
	return nil
}

func (s *memStore) UpdateBriefContent(_ context.Context, b *domain.Brief, expected domain.BriefStatus, expectedUpdatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook()
	cur, ok := s.briefs[b.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != expected || !cur.UpdatedAt.Equal(expectedUpdatedAt) {
		return domain.ErrConcurrentModification
	}
	c := *b
	s.briefs[b.ID] = &c
	return nil
}

func (s *memStore) TransitionBrief(_ context.Context, b *domain.Brief, from domain.BriefStatus, expectedUpdatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook()
	cur, ok := s.briefs[b.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != from || !cur.UpdatedAt.Equal(expectedUpdatedAt) {
		return domain.ErrConcurrentModification
	}
	c := *b
	s.briefs[b.ID] = &c
	return nil
}

func (s *memStore) ApproveBrief(_ context.Context, b *domain.Brief, task *domain.ProductionTask, expectedUpdatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook()
	cur, ok := s.briefs[b.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != domain.StatusSubmitted || !cur.UpdatedAt.Equal(expectedUpdatedAt) {
		return domain.ErrConcurrentModification
	}
	c := *b
	s.briefs[b.ID] = &c
	t := *task
	s.tasks[b.ID] = &t
	return nil
}

func (s *memStore) DeleteDraft(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook()
	cur, ok := s.briefs[id]
	if !ok || cur.Status != domain.StatusDraft {
		return domain.ErrConcurrentModification
	}
	delete(s.briefs, id)
	return nil
}

func (s *memStore) GetProductionTask(_ context.Context, briefID string) (*domain.ProductionTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[briefID]
	if !ok {
		return nil, fmt.Errorf("task for %s: %w", briefID, domain.ErrNotFound)
	}
	c := *t
	return &c, nil
}

func (s *memStore) TransitionProductionTask(_ context.Context, task *domain.ProductionTask, from domain.ProductionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook()
	cur, ok := s.tasks[task.BriefID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != from {
		return domain.ErrConcurrentModification
	}
	c := *task
	s.tasks[task.BriefID] = &c
	return nil
}

func (s *memStore) status(id string) domain.BriefStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.briefs[id]; ok {
		return b.Status
	}
	return ""
}

type recordingJournal struct {
	mu     sync.Mutex
	events []trail.Event
}

func (j *recordingJournal) Log(e trail.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
}

func (j *recordingJournal) types() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.events))
	for _, e := range j.events {
		out = append(out, e.Type)
	}
	return out
}
