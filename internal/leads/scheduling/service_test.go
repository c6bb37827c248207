package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"
)

type testConfig struct{ loc *time.Location }

func (c testConfig) GetBusinessLocation() *time.Location { return c.loc }
func (testConfig) GetEscalationThreshold() int           { return 5 }
func (testConfig) GetBackoffPolicy() string              { return "fixed" }
func (testConfig) GetBackoffBase() time.Duration         { return 4 * time.Hour }
func (testConfig) GetBackoffFactor() float64             { return 2 }
func (testConfig) GetBackoffMax() time.Duration          { return 72 * time.Hour }
func (testConfig) GetDefaultPhoneRegion() string         { return "NL" }

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
}
func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func setup(t *testing.T) (*Service, *repository.MemoryStore, *recordingBus, *clock) {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	clk := &clock{now: time.Date(2026, time.June, 1, 9, 0, 0, 0, loc)}
	store := repository.NewMemoryStore()
	bus := &recordingBus{}
	return New(store, bus, testConfig{loc: loc}, WithClock(clk.Now)), store, bus, clk
}

func seed(t *testing.T, store *repository.MemoryStore, stage domain.Stage) domain.Lead {
	t.Helper()
	lead := domain.NewLead("Edsger", "Dijkstra", "+31612345678", nil, domain.PriorityMedium, time.Now())
	lead.WorkflowStatus = stage
	created, err := store.Create(context.Background(), lead, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return created
}

func TestScheduleFollowUpTomorrow(t *testing.T) {
	svc, store, bus, clk := setup(t)
	lead := seed(t, store, domain.StageNoResponse)

	got, err := svc.ScheduleFollowUp(context.Background(), lead.ID, FollowUpParams{
		When:               domain.ScheduleInput{Date: "2026-06-02", Time: "10:00"},
		Notes:              "wants evening classes",
		SMSReminderEnabled: true,
	}, nil)
	if err != nil {
		t.Fatalf("ScheduleFollowUp: %v", err)
	}

	want := time.Date(2026, time.June, 2, 10, 0, 0, 0, svc.Location())
	if !got.FollowUpStart.Equal(want) || !got.NextFollowUpDate.Equal(want) {
		t.Fatalf("unexpected start %v", got.FollowUpStart)
	}
	if got.FollowUpEnd.Sub(*got.FollowUpStart) != 7*24*time.Hour {
		t.Fatalf("window is %s", got.FollowUpEnd.Sub(*got.FollowUpStart))
	}
	if len(bus.events) != 1 {
		t.Fatalf("expected one event, got %d", len(bus.events))
	}
	scheduled := bus.events[0].(events.FollowUpScheduled)
	if !scheduled.SMSReminderEnabled || !scheduled.FollowUpStart.Equal(want) {
		t.Fatalf("unexpected event %+v", scheduled)
	}

	agenda, _, _ := svc.FollowUpAgenda(context.Background(), nil)
	if len(agenda) != 1 || agenda[0].Category != domain.CategoryUpcoming {
		t.Fatalf("expected upcoming, got %+v", agenda)
	}

	clk.Set(time.Date(2026, time.June, 2, 8, 0, 0, 0, svc.Location()))
	today := domain.CategoryToday
	agenda, _, _ = svc.FollowUpAgenda(context.Background(), &today)
	if len(agenda) != 1 {
		t.Fatalf("expected lead in today's agenda, got %d", len(agenda))
	}
}

func TestScheduleFollowUpRejectsPast(t *testing.T) {
	svc, store, bus, _ := setup(t)
	lead := seed(t, store, domain.StageNoResponse)

	_, err := svc.ScheduleFollowUp(context.Background(), lead.ID, FollowUpParams{
		When: domain.ScheduleInput{Date: "2026-05-31", Time: "10:00"},
	}, nil)
	if !apperr.Is(err, apperr.KindInvalidSchedule) {
		t.Fatalf("expected InvalidSchedule, got %v", err)
	}
	got, _ := store.GetByID(context.Background(), lead.ID)
	if got.FollowUpStart != nil || got.Version != lead.Version {
		t.Fatal("rejected schedule mutated the lead")
	}
	if len(bus.events) != 0 {
		t.Fatal("rejected schedule must not publish")
	}
}

func TestLastFollowUpBookingWins(t *testing.T) {
	svc, store, _, _ := setup(t)
	lead := seed(t, store, domain.StageFollowUp)

	for _, day := range []string{"2026-06-03", "2026-06-05"} {
		if _, err := svc.ScheduleFollowUp(context.Background(), lead.ID, FollowUpParams{
			When: domain.ScheduleInput{Date: day, Time: "14:30"},
		}, nil); err != nil {
			t.Fatalf("book %s: %v", day, err)
		}
	}
	got, _ := store.GetByID(context.Background(), lead.ID)
	if got.FollowUpStart.In(svc.Location()).Day() != 5 {
		t.Fatalf("expected the later booking to win, got %v", got.FollowUpStart)
	}
}

func TestAssessmentLifecycle(t *testing.T) {
	svc, store, _, _ := setup(t)
	lead := seed(t, store, domain.StageLevelAssessment)
	at := time.Date(2026, time.June, 1, 15, 0, 0, 0, svc.Location()).Format(time.RFC3339)

	got, err := svc.ScheduleAssessment(context.Background(), lead.ID, domain.ScheduleInput{At: at}, nil)
	if err != nil {
		t.Fatalf("ScheduleAssessment: %v", err)
	}
	if got.LevelAssessmentEnd.Sub(*got.LevelAssessmentStart) != time.Hour {
		t.Fatal("assessment session must be exactly one hour")
	}

	agenda, _, _ := svc.AssessmentAgenda(context.Background(), nil)
	if len(agenda) != 1 || agenda[0].Category != domain.CategoryToday {
		t.Fatalf("expected today's assessment, got %+v", agenda)
	}

	got, err = svc.CompleteAssessment(context.Background(), lead.ID, "B2", nil)
	if err != nil {
		t.Fatalf("CompleteAssessment: %v", err)
	}
	if got.Status != domain.StatusConverted || got.ConversionDate == nil || *got.InterestedLevel != "B2" {
		t.Fatalf("unexpected completion state %+v", got)
	}

	_, err = svc.CompleteAssessment(context.Background(), lead.ID, "C1", nil)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected second completion to fail, got %v", err)
	}
	_, err = svc.ScheduleAssessment(context.Background(), lead.ID, domain.ScheduleInput{At: at}, nil)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected booking on converted lead to fail, got %v", err)
	}
}

func TestCompleteAssessmentRequiresLevel(t *testing.T) {
	svc, store, _, _ := setup(t)
	lead := seed(t, store, domain.StageLevelAssessment)
	if _, err := svc.CompleteAssessment(context.Background(), lead.ID, "", nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected Validation, got %v", err)
	}
}
