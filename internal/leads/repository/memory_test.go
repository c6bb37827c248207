package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/internal/leads/domain"
)

func seedLead(t *testing.T, store *MemoryStore, stage domain.Stage) domain.Lead {
	t.Helper()
	lead := domain.NewLead("Grace", "Hopper", "+31612345678", nil, domain.PriorityMedium, time.Now())
	lead.WorkflowStatus = stage
	created, err := store.Create(context.Background(), lead, &Activity{Action: ActionCreated})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return created
}

func TestMemoryStoreConcurrentAttemptsAreSerialized(t *testing.T) {
	store := NewMemoryStore()
	lead := seedLead(t, store, domain.StageNoResponse)
	policy := domain.FixedBackoff{Interval: time.Hour}
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(context.Background(), lead.ID, func(l *domain.Lead) (*Activity, error) {
				if err := domain.RecordAttempt(l, now, policy, "", true); err != nil {
					return nil, err
				}
				return &Activity{Action: ActionCallAttemptOverride}, nil
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.GetByID(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CallCount != 2 {
		t.Fatalf("expected callCount 2, got %d", got.CallCount)
	}
	if got.Version != lead.Version+2 {
		t.Fatalf("expected version %d, got %d", lead.Version+2, got.Version)
	}
}

func TestMemoryStoreRejectedMutationLeavesLead(t *testing.T) {
	store := NewMemoryStore()
	lead := seedLead(t, store, domain.StageWithdrawal)
	boom := errors.New("rejected")

	_, err := store.Update(context.Background(), lead.ID, func(l *domain.Lead) (*Activity, error) {
		l.WorkflowStatus = domain.StageNewIntake
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutation error, got %v", err)
	}

	got, _ := store.GetByID(context.Background(), lead.ID)
	if got.WorkflowStatus != domain.StageWithdrawal || got.Version != lead.Version {
		t.Fatalf("rejected mutation leaked: stage=%s version=%d", got.WorkflowStatus, got.Version)
	}
	activity, _ := store.ListActivity(context.Background(), lead.ID, 0)
	if len(activity) != 1 {
		t.Fatalf("expected only the created activity, got %d", len(activity))
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.GetByID(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err := store.Update(context.Background(), uuid.New(), func(*domain.Lead) (*Activity, error) { return nil, nil })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreListAndCount(t *testing.T) {
	store := NewMemoryStore()
	seedLead(t, store, domain.StageNoResponse)
	seedLead(t, store, domain.StageNoResponse)
	followUp := seedLead(t, store, domain.StageFollowUp)

	at := time.Now().Add(24 * time.Hour)
	if _, err := store.Update(context.Background(), followUp.ID, func(l *domain.Lead) (*Activity, error) {
		return nil, domain.ScheduleFollowUp(l, at, "", false, time.Now())
	}); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	stage := domain.StageNoResponse
	leads, total, err := store.List(context.Background(), ListParams{Stage: &stage})
	if err != nil || total != 2 || len(leads) != 2 {
		t.Fatalf("List(no_response) = %d/%d, %v", len(leads), total, err)
	}

	leads, total, _ = store.List(context.Background(), ListParams{HasFollowUp: true})
	if total != 1 || leads[0].ID != followUp.ID {
		t.Fatalf("List(HasFollowUp) returned %d leads", total)
	}

	leads, total, _ = store.List(context.Background(), ListParams{Offset: 2, Limit: 5})
	if total != 3 || len(leads) != 1 {
		t.Fatalf("paged List = %d/%d", len(leads), total)
	}

	counts, err := store.CountByStage(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[domain.StageNoResponse] != 2 || counts[domain.StageFollowUp] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	lead := seedLead(t, store, domain.StageNoResponse)

	got, _ := store.GetByID(context.Background(), lead.ID)
	at := time.Now()
	got.NextRetryAt = &at
	got.CallCount = 42

	again, _ := store.GetByID(context.Background(), lead.ID)
	if again.NextRetryAt != nil || again.CallCount != 0 {
		t.Fatal("caller mutation leaked into the store")
	}
}

func TestMemoryStoreClampsOversizedLimit(t *testing.T) {
	store := NewMemoryStore()
	for i := 0; i <= MaxListLimit; i++ {
		seedLead(t, store, domain.StageNoResponse)
	}

	leads, total, err := store.List(context.Background(), ListParams{Limit: 1000})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(leads) != MaxListLimit || total != MaxListLimit+1 {
		t.Fatalf("List(limit=1000) = %d/%d, want %d/%d", len(leads), total, MaxListLimit, MaxListLimit+1)
	}

	leads, _, _ = store.List(context.Background(), ListParams{})
	if len(leads) != DefaultListLimit {
		t.Fatalf("List(no limit) = %d, want %d", len(leads), DefaultListLimit)
	}
}
