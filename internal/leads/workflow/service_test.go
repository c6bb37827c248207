package workflow

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

type testConfig struct{}

func (testConfig) GetBusinessLocation() *time.Location { return time.UTC }
func (testConfig) GetEscalationThreshold() int         { return 5 }
func (testConfig) GetBackoffPolicy() string            { return "fixed" }
func (testConfig) GetBackoffBase() time.Duration       { return 4 * time.Hour }
func (testConfig) GetBackoffFactor() float64           { return 2 }
func (testConfig) GetBackoffMax() time.Duration        { return 72 * time.Hour }
func (testConfig) GetDefaultPhoneRegion() string       { return "NL" }

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.published))
	for i, e := range b.published {
		out[i] = e.EventName()
	}
	return out
}

var fixedNow = time.Date(2026, time.April, 2, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *repository.MemoryStore, *recordingBus) {
	t.Helper()
	store := repository.NewMemoryStore()
	bus := &recordingBus{}
	svc := New(store, bus, testConfig{}, logger.Nop(), WithClock(func() time.Time { return fixedNow }))
	return svc, store, bus
}

func createLead(t *testing.T, svc *Service) domain.Lead {
	t.Helper()
	lead, err := svc.Create(context.Background(), CreateParams{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Phone:     "06 12345678",
		Priority:  domain.PriorityHigh,
		Notes:     "walk-in",
	}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return lead
}

func TestCreateNormalizesPhone(t *testing.T) {
	svc, _, bus := newService(t)
	lead := createLead(t, svc)

	if lead.Phone != "+31612345678" {
		t.Fatalf("expected E.164 phone, got %q", lead.Phone)
	}
	if lead.WorkflowStatus != domain.StageContactDesk || lead.Status != domain.StatusNew {
		t.Fatalf("unexpected intake state %s/%s", lead.WorkflowStatus, lead.Status)
	}
	if got := bus.names(); len(got) != 1 || got[0] != (events.LeadCreated{}).EventName() {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestCreateRejectsInvalidPhone(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Create(context.Background(), CreateParams{FirstName: "A", LastName: "B", Phone: "12"}, nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransitionWalksPipeline(t *testing.T) {
	svc, store, bus := newService(t)
	lead := createLead(t, svc)
	actor := uuid.New()

	for _, target := range []domain.Stage{domain.StageNewIntake, domain.StageNoResponse, domain.StageFollowUp, domain.StageLevelAssessment} {
		updated, err := svc.Transition(context.Background(), lead.ID, target, &actor)
		if err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
		if updated.WorkflowStatus != target {
			t.Fatalf("expected %s, got %s", target, updated.WorkflowStatus)
		}
	}

	got, _ := store.GetByID(context.Background(), lead.ID)
	if got.Status != domain.StatusQualified || got.Version != lead.Version+4 {
		t.Fatalf("unexpected final state: status=%s version=%d", got.Status, got.Version)
	}
	if n := len(bus.names()); n != 5 {
		t.Fatalf("expected 5 events, got %d", n)
	}

	activity, err := svc.ListActivity(context.Background(), lead.ID, 0)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(activity) != 5 {
		t.Fatalf("expected 5 activity entries, got %d", len(activity))
	}
	if activity[len(activity)-1].Action != repository.ActionCreated {
		t.Fatalf("expected created entry last, got %s", activity[len(activity)-1].Action)
	}
}

func TestTransitionRejectsInvalidEdge(t *testing.T) {
	svc, store, bus := newService(t)
	lead := createLead(t, svc)

	if _, err := svc.Transition(context.Background(), lead.ID, domain.StageWithdrawal, nil); err != nil {
		t.Fatalf("contact_desk -> withdrawal: %v", err)
	}
	_, err := svc.Transition(context.Background(), lead.ID, domain.StageNewIntake, nil)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected InvalidTransition, got %v", err)
	}

	got, _ := store.GetByID(context.Background(), lead.ID)
	if got.WorkflowStatus != domain.StageWithdrawal || got.Status != domain.StatusLost {
		t.Fatalf("unexpected state %s/%s", got.WorkflowStatus, got.Status)
	}
	if n := len(bus.names()); n != 2 {
		t.Fatalf("rejected transition must not publish, got %d events", n)
	}
}

func TestTransitionUnknownLead(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Transition(context.Background(), uuid.New(), domain.StageNewIntake, nil)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func escalatedLead(t *testing.T, svc *Service, store *repository.MemoryStore) domain.Lead {
	t.Helper()
	lead := createLead(t, svc)
	for _, target := range []domain.Stage{domain.StageNewIntake, domain.StageNoResponse} {
		if _, err := svc.Transition(context.Background(), lead.ID, target, nil); err != nil {
			t.Fatalf("transition: %v", err)
		}
	}
	lead, err := store.Update(context.Background(), lead.ID, func(l *domain.Lead) (*repository.Activity, error) {
		l.CallCount = 5
		return nil, nil
	})
	if err != nil {
		t.Fatalf("seed attempts: %v", err)
	}
	return lead
}

func TestDispose(t *testing.T) {
	cases := []struct {
		action    Disposition
		wantStage domain.Stage
		wantCount int
	}{
		{DispositionResponsive, domain.StageFollowUp, 5},
		{DispositionLost, domain.StageWithdrawal, 5},
		{DispositionResetAttempts, domain.StageNoResponse, 0},
	}
	for _, tc := range cases {
		svc, store, _ := newService(t)
		lead := escalatedLead(t, svc, store)

		got, err := svc.Dispose(context.Background(), lead.ID, tc.action, nil)
		if err != nil {
			t.Fatalf("%s: %v", tc.action, err)
		}
		if got.WorkflowStatus != tc.wantStage || got.CallCount != tc.wantCount {
			t.Fatalf("%s: got %s/%d", tc.action, got.WorkflowStatus, got.CallCount)
		}
		if got.NextRetryAt != nil {
			t.Fatalf("%s: nextRetryAt should be cleared", tc.action)
		}
	}
}

func TestDisposeRequiresEscalation(t *testing.T) {
	svc, _, _ := newService(t)
	lead := createLead(t, svc)

	_, err := svc.Dispose(context.Background(), lead.ID, DispositionResetAttempts, nil)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected InvalidTransition, got %v", err)
	}
	_, err = svc.Dispose(context.Background(), lead.ID, Disposition("snooze"), nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestDisposeWaitsForRetryWindow(t *testing.T) {
	svc, store, _ := newService(t)
	lead := escalatedLead(t, svc, store)
	retryAt := fixedNow.Add(time.Hour)
	if _, err := store.Update(context.Background(), lead.ID, func(l *domain.Lead) (*repository.Activity, error) {
		l.NextRetryAt = &retryAt
		return nil, nil
	}); err != nil {
		t.Fatalf("seed retry window: %v", err)
	}

	for _, action := range []Disposition{DispositionResponsive, DispositionLost, DispositionResetAttempts} {
		_, err := svc.Dispose(context.Background(), lead.ID, action, nil)
		if !apperr.Is(err, apperr.KindInvalidTransition) {
			t.Fatalf("%s: expected InvalidTransition before the window elapses, got %v", action, err)
		}
	}

	got, err := store.GetByID(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.WorkflowStatus != domain.StageNoResponse || got.CallCount != 5 {
		t.Fatalf("rejected disposition changed the lead: %s/%d", got.WorkflowStatus, got.CallCount)
	}
}
