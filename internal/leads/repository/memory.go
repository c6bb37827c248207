package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/internal/leads/domain"
)

type memoryRecord struct {
	mu   sync.Mutex
	lead domain.Lead
}

// MemoryStore is a LeadStore kept in process memory. Writes to the same lead
// are serialized by a per-record mutex; different leads never contend.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[uuid.UUID]*memoryRecord
	order    []uuid.UUID
	activity map[uuid.UUID][]Activity
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[uuid.UUID]*memoryRecord),
		activity: make(map[uuid.UUID][]Activity),
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, lead domain.Lead, activity *Activity) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.Version == 0 {
		lead.Version = 1
	}
	s.records[lead.ID] = &memoryRecord{lead: lead.Clone()}
	s.order = append(s.order, lead.ID)
	if activity != nil {
		activity.LeadID = lead.ID
		s.appendActivityLocked(*activity)
	}
	return lead.Clone(), nil
}

func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	rec := s.record(id)
	if rec == nil {
		return domain.Lead{}, ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.lead.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id uuid.UUID, fn MutateFunc) (domain.Lead, error) {
	rec := s.record(id)
	if rec == nil {
		return domain.Lead{}, ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	working := rec.lead.Clone()
	activity, err := fn(&working)
	if err != nil {
		return domain.Lead{}, err
	}
	working.ID = id
	working.Version = rec.lead.Version + 1
	rec.lead = working

	if activity != nil {
		activity.LeadID = id
		s.mu.Lock()
		s.appendActivityLocked(*activity)
		s.mu.Unlock()
	}
	return working.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, params ListParams) ([]domain.Lead, int, error) {
	s.mu.RLock()
	ids := make([]uuid.UUID, len(s.order))
	copy(ids, s.order)
	s.mu.RUnlock()

	matched := make([]domain.Lead, 0, len(ids))
	for _, id := range ids {
		rec := s.record(id)
		rec.mu.Lock()
		lead := rec.lead.Clone()
		rec.mu.Unlock()

		if params.Stage != nil && lead.WorkflowStatus != *params.Stage {
			continue
		}
		if params.HasFollowUp && lead.NextFollowUpDate == nil {
			continue
		}
		if params.HasAssessment && lead.LevelAssessmentStart == nil {
			continue
		}
		matched = append(matched, lead)
	}

	total := len(matched)
	offset := max(params.Offset, 0)
	if offset >= total {
		return []domain.Lead{}, total, nil
	}
	end := min(offset+normalizeLimit(params.Limit), total)
	return matched[offset:end], total, nil
}

func (s *MemoryStore) CountByStage(_ context.Context) (map[domain.Stage]int, error) {
	s.mu.RLock()
	records := make([]*memoryRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	s.mu.RUnlock()

	// Record locks are never taken while holding s.mu.
	counts := make(map[domain.Stage]int, len(domain.Stages))
	for _, rec := range records {
		rec.mu.Lock()
		counts[rec.lead.WorkflowStatus]++
		rec.mu.Unlock()
	}
	return counts, nil
}

func (s *MemoryStore) AddActivity(_ context.Context, activity Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[activity.LeadID]; !ok {
		return ErrNotFound
	}
	s.appendActivityLocked(activity)
	return nil
}

func (s *MemoryStore) ListActivity(_ context.Context, leadID uuid.UUID, limit int) ([]Activity, error) {
	s.mu.RLock()
	stored := s.activity[leadID]
	items := make([]Activity, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		items = append(items, stored[i])
	}
	s.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit = normalizeLimit(limit); len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *MemoryStore) record(id uuid.UUID) *memoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[id]
}

func (s *MemoryStore) appendActivityLocked(activity Activity) {
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = s.now()
	}
	s.activity[activity.LeadID] = append(s.activity[activity.LeadID], activity)
}
