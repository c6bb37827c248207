// Package workflow moves leads along the contact pipeline and records the
// escalation disposition for leads that exhausted their call attempts.
package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/phone"
	"leadflow_backend/platform/sanitize"
)

// Disposition is the agent's answer to an escalation prompt.
type Disposition string

const (
	DispositionResponsive    Disposition = "responsive"
	DispositionLost          Disposition = "lost"
	DispositionResetAttempts Disposition = "reset_attempts"
)

// Valid reports whether d is a known disposition.
func (d Disposition) Valid() bool {
	switch d {
	case DispositionResponsive, DispositionLost, DispositionResetAttempts:
		return true
	}
	return false
}

// CreateParams are the intake fields of a new lead.
type CreateParams struct {
	FirstName string
	LastName  string
	Phone     string
	Email     *string
	Priority  domain.Priority
	Notes     string
}

// Repository defines the data access interface needed by the workflow service.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.ActivityLogger
}

// Service exposes workflow operations.
type Service struct {
	store     Repository
	bus       events.Bus
	log       *logger.Logger
	threshold int
	region    string
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a workflow service.
func New(store Repository, bus events.Bus, cfg config.WorkflowConfig, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		bus:       bus,
		log:       log,
		threshold: cfg.GetEscalationThreshold(),
		region:    cfg.GetDefaultPhoneRegion(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create takes in a new lead at contact_desk.
func (s *Service) Create(ctx context.Context, params CreateParams, actor *uuid.UUID) (domain.Lead, error) {
	if !phone.IsValid(params.Phone, s.region) {
		return domain.Lead{}, apperr.Validation("phone number is not valid").
			WithDetails(map[string]string{"phone": "e164"})
	}
	if params.Email != nil && strings.TrimSpace(*params.Email) == "" {
		params.Email = nil
	}

	now := s.now()
	lead := domain.NewLead(
		sanitize.Line(params.FirstName),
		sanitize.Line(params.LastName),
		phone.NormalizeE164In(params.Phone, s.region),
		params.Email,
		params.Priority,
		now,
	)
	lead.AppendNote(now, sanitize.Text(params.Notes))

	created, err := s.store.Create(ctx, lead, &repository.Activity{
		ActorID:   actor,
		Action:    repository.ActionCreated,
		Meta:      map[string]any{"priority": string(lead.Priority)},
		CreatedAt: now,
	})
	if err != nil {
		return domain.Lead{}, repository.MapError("workflow.Create", err)
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.BaseEventAt(now),
		LeadID:    created.ID,
		ActorID:   actor,
		Priority:  string(created.Priority),
	})
	return created, nil
}

// Get returns a single lead.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.Lead{}, repository.MapError("workflow.Get", err)
	}
	return lead, nil
}

// List returns leads, optionally restricted to one stage.
func (s *Service) List(ctx context.Context, stage *domain.Stage, limit, offset int) ([]domain.Lead, int, error) {
	leads, total, err := s.store.List(ctx, repository.ListParams{Stage: stage, Limit: limit, Offset: offset})
	if err != nil {
		return nil, 0, repository.MapError("workflow.List", err)
	}
	return leads, total, nil
}

// Transition moves a lead to target along a permitted edge.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, target domain.Stage, actor *uuid.UUID) (domain.Lead, error) {
	now := s.now()
	var from domain.Stage

	lead, err := s.store.Update(ctx, id, func(l *domain.Lead) (*repository.Activity, error) {
		from = l.WorkflowStatus
		if err := domain.Transition(l, target, now); err != nil {
			return nil, err
		}
		return stageActivity(actor, from, *l, now, ""), nil
	})
	if err != nil {
		return domain.Lead{}, repository.MapError("workflow.Transition", err)
	}

	s.stageChanged(ctx, lead, from, actor, now)
	return lead, nil
}

// Dispose resolves an escalation prompt. Only escalated no_response leads
// accept a disposition.
func (s *Service) Dispose(ctx context.Context, id uuid.UUID, action Disposition, actor *uuid.UUID) (domain.Lead, error) {
	if !action.Valid() {
		return domain.Lead{}, apperr.Validation("unknown disposition").
			WithDetails(map[string]string{"action": string(action)})
	}

	now := s.now()
	var from domain.Stage

	lead, err := s.store.Update(ctx, id, func(l *domain.Lead) (*repository.Activity, error) {
		from = l.WorkflowStatus
		if err := s.requireEscalated(*l, now); err != nil {
			return nil, err
		}

		switch action {
		case DispositionResetAttempts:
			previous := l.CallCount
			if err := domain.ResetAttempts(l, now, s.threshold); err != nil {
				return nil, err
			}
			return &repository.Activity{
				ActorID:   actor,
				Action:    repository.ActionAttemptsReset,
				Meta:      map[string]any{"previousCallCount": previous},
				CreatedAt: now,
			}, nil
		case DispositionResponsive:
			if err := domain.Transition(l, domain.StageFollowUp, now); err != nil {
				return nil, err
			}
		case DispositionLost:
			if err := domain.Transition(l, domain.StageWithdrawal, now); err != nil {
				return nil, err
			}
		}
		return stageActivity(actor, from, *l, now, string(action)), nil
	})
	if err != nil {
		return domain.Lead{}, repository.MapError("workflow.Dispose", err)
	}

	if action == DispositionResetAttempts {
		s.bus.Publish(ctx, events.AttemptsReset{
			BaseEvent: events.BaseEventAt(now),
			LeadID:    lead.ID,
			ActorID:   actor,
		})
		return lead, nil
	}
	s.stageChanged(ctx, lead, from, actor, now)
	return lead, nil
}

// ListActivity returns the audit trail of a lead, newest first.
func (s *Service) ListActivity(ctx context.Context, id uuid.UUID, limit int) ([]repository.Activity, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, repository.MapError("workflow.ListActivity", err)
	}
	items, err := s.store.ListActivity(ctx, id, limit)
	if err != nil {
		return nil, repository.MapError("workflow.ListActivity", err)
	}
	return items, nil
}

// Threshold returns the configured escalation threshold.
func (s *Service) Threshold() int {
	return s.threshold
}

// requireEscalated accepts only leads whose escalation prompt is showing:
// no_response, at the threshold, and past the retry window.
func (s *Service) requireEscalated(l domain.Lead, now time.Time) error {
	if l.IsTerminal() || l.WorkflowStatus != domain.StageNoResponse || !domain.NeedsEscalation(now, l, s.threshold) {
		return apperr.InvalidTransition("lead is not awaiting an escalation disposition").
			WithDetails(domain.TransitionDetails{
				CurrentStage:   l.WorkflowStatus,
				CurrentStatus:  l.Status,
				AllowedTargets: domain.AllowedTargets(l),
				Terminal:       l.IsTerminal(),
			})
	}
	return nil
}

func (s *Service) stageChanged(ctx context.Context, lead domain.Lead, from domain.Stage, actor *uuid.UUID, now time.Time) {
	s.log.WithContext(ctx).LeadTransition(lead.ID.String(), string(from), string(lead.WorkflowStatus))
	s.bus.Publish(ctx, events.LeadStageChanged{
		BaseEvent: events.BaseEventAt(now),
		LeadID:    lead.ID,
		ActorID:   actor,
		OldStage:  string(from),
		NewStage:  string(lead.WorkflowStatus),
		NewStatus: string(lead.Status),
	})
}

func stageActivity(actor *uuid.UUID, from domain.Stage, l domain.Lead, now time.Time, disposition string) *repository.Activity {
	meta := map[string]any{
		"from":   string(from),
		"to":     string(l.WorkflowStatus),
		"status": string(l.Status),
	}
	if disposition != "" {
		meta["disposition"] = disposition
	}
	return &repository.Activity{
		ActorID:   actor,
		Action:    repository.ActionStageChanged,
		Meta:      meta,
		CreatedAt: now,
	}
}
