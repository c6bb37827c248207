// Package scheduling books follow-up windows and level-assessment sessions,
// completes assessments, and serves the calendar agendas.
package scheduling

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/sanitize"
)


// Repository defines the data access interface needed by the scheduling service.
// This is a consumer-driven interface - only what scheduling needs.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
}

// FollowUpParams books a follow-up window.
type FollowUpParams struct {
	When               domain.ScheduleInput
	Notes              string
	SMSReminderEnabled bool
}

// AgendaEntry is a scheduled lead with its category at read time.
type AgendaEntry struct {
	Lead     domain.Lead
	Category domain.ScheduleCategory
}

// Service handles follow-up and assessment scheduling.
type Service struct {
	repo     Repository
	eventBus events.Bus
	loc      *time.Location
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a new scheduling service.
func New(repo Repository, eventBus events.Bus, cfg config.WorkflowConfig, opts ...Option) *Service {
	loc := cfg.GetBusinessLocation()
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{repo: repo, eventBus: eventBus, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the business timezone used for calendar comparisons.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Now returns the service clock reading.
func (s *Service) Now() time.Time {
	return s.now()
}

// ScheduleFollowUp books a 7-day follow-up window. A later booking replaces
// an earlier one.
func (s *Service) ScheduleFollowUp(ctx context.Context, id uuid.UUID, params FollowUpParams, actor *uuid.UUID) (domain.Lead, error) {
	now := s.now()
	at, err := domain.ResolveSchedule(params.When, now, s.loc)
	if err != nil {
		return domain.Lead{}, err
	}

	lead, err := s.repo.Update(ctx, id, func(l *domain.Lead) (*repository.Activity, error) {
		if err := domain.ScheduleFollowUp(l, at, sanitize.Text(params.Notes), params.SMSReminderEnabled, now); err != nil {
			return nil, err
		}
		return &repository.Activity{
			ActorID: actor,
			Action:  repository.ActionFollowUpScheduled,
			Meta: map[string]any{
				"followUpStart":      l.FollowUpStart.UTC().Format(time.RFC3339),
				"followUpEnd":        l.FollowUpEnd.UTC().Format(time.RFC3339),
				"smsReminderEnabled": l.SMSReminderEnabled,
			},
			CreatedAt: now,
		}, nil
	})
	if err != nil {
		return domain.Lead{}, repository.MapError("scheduling.ScheduleFollowUp", err)
	}

	s.eventBus.Publish(ctx, events.FollowUpScheduled{
		BaseEvent:          events.BaseEventAt(now),
		LeadID:             lead.ID,
		ActorID:            actor,
		FollowUpStart:      *lead.FollowUpStart,
		FollowUpEnd:        *lead.FollowUpEnd,
		SMSReminderEnabled: lead.SMSReminderEnabled,
	})
	return lead, nil
}

// ScheduleAssessment books a one-hour level-assessment session.
func (s *Service) ScheduleAssessment(ctx context.Context, id uuid.UUID, when domain.ScheduleInput, actor *uuid.UUID) (domain.Lead, error) {
	now := s.now()
	at, err := domain.ResolveSchedule(when, now, s.loc)
	if err != nil {
		return domain.Lead{}, err
	}

	lead, err := s.repo.Update(ctx, id, func(l *domain.Lead) (*repository.Activity, error) {
		if err := domain.ScheduleAssessment(l, at, now); err != nil {
			return nil, err
		}
		return &repository.Activity{
			ActorID: actor,
			Action:  repository.ActionAssessmentScheduled,
			Meta: map[string]any{
				"startAt": l.LevelAssessmentStart.UTC().Format(time.RFC3339),
				"endAt":   l.LevelAssessmentEnd.UTC().Format(time.RFC3339),
			},
			CreatedAt: now,
		}, nil
	})
	if err != nil {
		return domain.Lead{}, repository.MapError("scheduling.ScheduleAssessment", err)
	}

	s.eventBus.Publish(ctx, events.AssessmentScheduled{
		BaseEvent: events.BaseEventAt(now),
		LeadID:    lead.ID,
		ActorID:   actor,
		StartAt:   *lead.LevelAssessmentStart,
		EndAt:     *lead.LevelAssessmentEnd,
	})
	return lead, nil
}

// CompleteAssessment records the assessed level and converts the lead.
func (s *Service) CompleteAssessment(ctx context.Context, id uuid.UUID, level string, actor *uuid.UUID) (domain.Lead, error) {
	if level == "" {
		return domain.Lead{}, apperr.Validation("interested level is required").
			WithDetails(map[string]string{"interestedLevel": "required"})
	}

	now := s.now()
	lead, err := s.repo.Update(ctx, id, func(l *domain.Lead) (*repository.Activity, error) {
		if err := domain.CompleteAssessment(l, level, now); err != nil {
			return nil, err
		}
		return &repository.Activity{
			ActorID:   actor,
			Action:    repository.ActionAssessmentCompleted,
			Meta:      map[string]any{"interestedLevel": level},
			CreatedAt: now,
		}, nil
	})
	if err != nil {
		return domain.Lead{}, repository.MapError("scheduling.CompleteAssessment", err)
	}

	s.eventBus.Publish(ctx, events.AssessmentCompleted{
		BaseEvent:       events.BaseEventAt(now),
		LeadID:          lead.ID,
		ActorID:         actor,
		InterestedLevel: level,
	})
	return lead, nil
}

// FollowUpAgenda lists leads with a follow-up date, optionally one category.
// truncated reports that more booked leads exist than one read loads.
func (s *Service) FollowUpAgenda(ctx context.Context, category *domain.ScheduleCategory) (entries []AgendaEntry, truncated bool, err error) {
	leads, total, err := s.repo.List(ctx, repository.ListParams{HasFollowUp: true, Limit: repository.MaxListLimit})
	if err != nil {
		return nil, false, repository.MapError("scheduling.FollowUpAgenda", err)
	}
	entries = s.agenda(leads, category, domain.CategorizeFollowUp, func(l domain.Lead) *time.Time { return l.NextFollowUpDate })
	return entries, total > len(leads), nil
}

// AssessmentAgenda lists leads with an assessment session, optionally one category.
func (s *Service) AssessmentAgenda(ctx context.Context, category *domain.ScheduleCategory) (entries []AgendaEntry, truncated bool, err error) {
	leads, total, err := s.repo.List(ctx, repository.ListParams{HasAssessment: true, Limit: repository.MaxListLimit})
	if err != nil {
		return nil, false, repository.MapError("scheduling.AssessmentAgenda", err)
	}
	entries = s.agenda(leads, category, domain.CategorizeAssessment, func(l domain.Lead) *time.Time { return l.LevelAssessmentStart })
	return entries, total > len(leads), nil
}

func (s *Service) agenda(
	leads []domain.Lead,
	category *domain.ScheduleCategory,
	categorize func(time.Time, domain.Lead, *time.Location) domain.ScheduleCategory,
	instant func(domain.Lead) *time.Time,
) []AgendaEntry {
	now := s.now()
	entries := make([]AgendaEntry, 0, len(leads))
	for _, lead := range leads {
		c := categorize(now, lead, s.loc)
		if category != nil && c != *category {
			continue
		}
		entries = append(entries, AgendaEntry{Lead: lead, Category: c})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return instant(entries[i].Lead).Before(*instant(entries[j].Lead))
	})
	return entries
}
