package retry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
)

type testConfig struct{ policy string }

func (testConfig) GetBusinessLocation() *time.Location { return time.UTC }
func (testConfig) GetEscalationThreshold() int         { return 5 }
func (c testConfig) GetBackoffPolicy() string          { return c.policy }
func (testConfig) GetBackoffBase() time.Duration       { return 4 * time.Hour }
func (testConfig) GetBackoffFactor() float64           { return 2 }
func (testConfig) GetBackoffMax() time.Duration        { return 72 * time.Hour }
func (testConfig) GetDefaultPhoneRegion() string       { return "NL" }

type nopBus struct {
	mu    sync.Mutex
	count int
}

func (b *nopBus) Publish(context.Context, events.Event) {
	b.mu.Lock()
	b.count++
	b.mu.Unlock()
}
func (b *nopBus) PublishSync(ctx context.Context, e events.Event) error { b.Publish(ctx, e); return nil }
func (b *nopBus) Subscribe(string, events.Handler)                      {}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func setup(t *testing.T) (*Service, *repository.MemoryStore, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2026, time.May, 4, 9, 0, 0, 0, time.UTC)}
	store := repository.NewMemoryStore()
	svc, err := New(store, &nopBus{}, testConfig{policy: "fixed"}, logger.Nop(), WithClock(clk.Now))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return svc, store, clk
}

func seed(t *testing.T, store *repository.MemoryStore, stage domain.Stage, priority domain.Priority, mutate func(*domain.Lead)) domain.Lead {
	t.Helper()
	lead := domain.NewLead("Alan", "Turing", "+31612345678", nil, priority, time.Now())
	lead.WorkflowStatus = stage
	if mutate != nil {
		mutate(&lead)
	}
	created, err := store.Create(context.Background(), lead, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return created
}

func TestRecordAttemptAppliesBackoff(t *testing.T) {
	svc, store, clk := setup(t)
	lead := seed(t, store, domain.StageNoResponse, domain.PriorityMedium, nil)

	got, err := svc.RecordAttempt(context.Background(), lead.ID, "voicemail", false, nil)
	if err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	if got.CallCount != 1 || !got.NextRetryAt.Equal(clk.Now().Add(4*time.Hour)) {
		t.Fatalf("unexpected state after first attempt: %d %v", got.CallCount, got.NextRetryAt)
	}

	_, err = svc.RecordAttempt(context.Background(), lead.ID, "", false, nil)
	if !apperr.Is(err, apperr.KindNotDue) {
		t.Fatalf("expected NotDue, got %v", err)
	}

	clk.Advance(4 * time.Hour)
	got, err = svc.RecordAttempt(context.Background(), lead.ID, "", false, nil)
	if err != nil {
		t.Fatalf("attempt at eligibility: %v", err)
	}
	if got.CallCount != 2 {
		t.Fatalf("expected callCount 2, got %d", got.CallCount)
	}
}

func TestRecordAttemptOverrideIsAudited(t *testing.T) {
	svc, store, clk := setup(t)
	future := clk.Now().Add(time.Hour)
	lead := seed(t, store, domain.StageNoResponse, domain.PriorityMedium, func(l *domain.Lead) {
		l.CallCount = 5
		l.NextRetryAt = &future
	})

	actor := uuid.New()
	got, err := svc.RecordAttempt(context.Background(), lead.ID, "forced", true, &actor)
	if err != nil {
		t.Fatalf("override attempt: %v", err)
	}
	if got.CallCount != 6 {
		t.Fatalf("expected callCount 6, got %d", got.CallCount)
	}

	activity, _ := store.ListActivity(context.Background(), lead.ID, 0)
	if len(activity) != 1 || activity[0].Action != repository.ActionCallAttemptOverride {
		t.Fatalf("expected override activity, got %+v", activity)
	}
	if activity[0].Meta["override"] != true || activity[0].Meta["bypassed"] != true {
		t.Fatalf("override not recorded: %v", activity[0].Meta)
	}
	if *activity[0].ActorID != actor {
		t.Fatal("actor not recorded")
	}
}

func TestConcurrentAttemptsBothApply(t *testing.T) {
	svc, store, _ := setup(t)
	lead := seed(t, store, domain.StageNoResponse, domain.PriorityMedium, nil)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.RecordAttempt(context.Background(), lead.ID, "", true, nil); err != nil {
				t.Errorf("attempt: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := store.GetByID(context.Background(), lead.ID)
	if got.CallCount != 2 {
		t.Fatalf("expected callCount 2, got %d", got.CallCount)
	}
}

func TestRecordAttemptOutsideNoResponse(t *testing.T) {
	svc, store, _ := setup(t)
	lead := seed(t, store, domain.StageFollowUp, domain.PriorityMedium, nil)

	_, err := svc.RecordAttempt(context.Background(), lead.ID, "", true, nil)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected InvalidTransition, got %v", err)
	}
}

func TestQueueOrderingAndFilters(t *testing.T) {
	svc, store, clk := setup(t)
	now := clk.Now()
	later := now.Add(2 * time.Hour)
	earlier := now.Add(-time.Hour)

	low := seed(t, store, domain.StageNoResponse, domain.PriorityLow, nil)
	urgentWaiting := seed(t, store, domain.StageNoResponse, domain.PriorityUrgent, func(l *domain.Lead) {
		l.CallCount = 2
		l.NextRetryAt = &later
	})
	urgentDue := seed(t, store, domain.StageNoResponse, domain.PriorityUrgent, func(l *domain.Lead) {
		l.CallCount = 6
		l.NextRetryAt = &earlier
	})
	seed(t, store, domain.StageFollowUp, domain.PriorityUrgent, nil)

	all, _, err := svc.Queue(context.Background(), QueueFilter{})
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	want := []uuid.UUID{urgentDue.ID, urgentWaiting.ID, low.ID}
	if len(all) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(all))
	}
	for i, id := range want {
		if all[i].Lead.ID != id {
			t.Fatalf("position %d: got %s, want %s", i, all[i].Lead.ID, id)
		}
	}

	due, _, _ := svc.Queue(context.Background(), QueueFilter{DueOnly: true})
	if len(due) != 2 {
		t.Fatalf("expected 2 due entries, got %d", len(due))
	}
	escalated, _, _ := svc.Queue(context.Background(), QueueFilter{EscalatedOnly: true})
	if len(escalated) != 1 || escalated[0].Lead.ID != urgentDue.ID {
		t.Fatalf("unexpected escalated entries: %+v", escalated)
	}
}

func TestNewRejectsUnknownPolicy(t *testing.T) {
	_, err := New(repository.NewMemoryStore(), &nopBus{}, testConfig{policy: "random"}, logger.Nop())
	if err == nil {
		t.Fatal("expected unknown policy to fail")
	}
}

func TestQueueReportsTruncation(t *testing.T) {
	svc, store, _ := setup(t)
	seed(t, store, domain.StageNoResponse, domain.PriorityLow, nil)

	_, truncated, err := svc.Queue(context.Background(), QueueFilter{})
	if err != nil || truncated {
		t.Fatalf("small queue: truncated=%v err=%v", truncated, err)
	}

	for i := 0; i < repository.MaxListLimit; i++ {
		seed(t, store, domain.StageNoResponse, domain.PriorityLow, nil)
	}
	entries, truncated, err := svc.Queue(context.Background(), QueueFilter{})
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if !truncated || len(entries) != repository.MaxListLimit {
		t.Fatalf("expected %d entries and truncation, got %d truncated=%v", repository.MaxListLimit, len(entries), truncated)
	}
}
