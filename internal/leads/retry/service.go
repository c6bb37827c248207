// Package retry records call attempts on non-responsive leads and serves the
// retry queue with per-lead eligibility.
package retry

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/sanitize"
)


// QueueFilter narrows the retry queue. Zero value returns every entry.
type QueueFilter struct {
	DueOnly       bool
	EscalatedOnly bool
}

// QueueEntry is a no_response lead with its eligibility at read time.
type QueueEntry struct {
	Lead        domain.Lead
	Eligibility domain.Eligibility
}

// Repository defines the data access interface needed by the retry service.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
}

type Service struct {
	store     Repository
	bus       events.Bus
	log       *logger.Logger
	policy    domain.BackoffPolicy
	threshold int
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPolicy overrides the backoff policy built from configuration.
func WithPolicy(policy domain.BackoffPolicy) Option {
	return func(s *Service) { s.policy = policy }
}

// New creates a retry service. The backoff policy is taken from cfg.
func New(store Repository, bus events.Bus, cfg config.WorkflowConfig, log *logger.Logger, opts ...Option) (*Service, error) {
	policy, err := domain.NewBackoffPolicy(cfg.GetBackoffPolicy(), cfg.GetBackoffBase(), cfg.GetBackoffFactor(), cfg.GetBackoffMax())
	if err != nil {
		return nil, err
	}
	s := &Service{
		store:     store,
		bus:       bus,
		log:       log,
		policy:    policy,
		threshold: cfg.GetEscalationThreshold(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RecordAttempt applies one call attempt. override bypasses the retry window
// and is stored on the audit trail.
func (s *Service) RecordAttempt(ctx context.Context, id uuid.UUID, notes string, override bool, actor *uuid.UUID) (domain.Lead, error) {
	now := s.now()
	var bypassed bool

	lead, err := s.store.Update(ctx, id, func(l *domain.Lead) (*repository.Activity, error) {
		bypassed = override && !domain.IsDue(now, *l)
		if err := domain.RecordAttempt(l, now, s.policy, sanitize.Text(notes), override); err != nil {
			return nil, err
		}

		action := repository.ActionCallAttempt
		if override {
			action = repository.ActionCallAttemptOverride
		}
		return &repository.Activity{
			ActorID: actor,
			Action:  action,
			Meta: map[string]any{
				"callCount":   l.CallCount,
				"nextRetryAt": l.NextRetryAt.UTC().Format(time.RFC3339),
				"override":    override,
				"bypassed":    bypassed,
			},
			CreatedAt: now,
		}, nil
	})
	if err != nil {
		return domain.Lead{}, repository.MapError("retry.RecordAttempt", err)
	}

	if bypassed {
		s.log.WithContext(ctx).Info("retry window overridden",
			"lead_id", lead.ID.String(),
			"call_count", lead.CallCount,
		)
	}
	s.bus.Publish(ctx, events.CallAttemptRecorded{
		BaseEvent:   events.BaseEventAt(now),
		LeadID:      lead.ID,
		ActorID:     actor,
		CallCount:   lead.CallCount,
		NextRetryAt: *lead.NextRetryAt,
		Override:    override,
	})
	return lead, nil
}

// Queue lists no_response leads ordered by priority, then by eligibility.
// One read loads at most repository.MaxListLimit leads; truncated reports
// that more no_response leads exist than were considered.
func (s *Service) Queue(ctx context.Context, filter QueueFilter) (entries []QueueEntry, truncated bool, err error) {
	stage := domain.StageNoResponse
	leads, total, err := s.store.List(ctx, repository.ListParams{Stage: &stage, Limit: repository.MaxListLimit})
	if err != nil {
		return nil, false, repository.MapError("retry.Queue", err)
	}

	now := s.now()
	entries = make([]QueueEntry, 0, len(leads))
	for _, lead := range leads {
		e := domain.EligibilityAt(now, lead, s.threshold)
		if filter.DueOnly && !e.IsDue {
			continue
		}
		if filter.EscalatedOnly && !e.NeedsEscalation {
			continue
		}
		entries = append(entries, QueueEntry{Lead: lead, Eligibility: e})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if ra, rb := a.Lead.Priority.Rank(), b.Lead.Priority.Rank(); ra != rb {
			return ra > rb
		}
		return eligibleAt(a, now).Before(eligibleAt(b, now))
	})
	return entries, total > len(leads), nil
}

// Threshold returns the configured escalation threshold.
func (s *Service) Threshold() int {
	return s.threshold
}

func eligibleAt(e QueueEntry, now time.Time) time.Time {
	if e.Eligibility.EligibleAt == nil {
		return now
	}
	return *e.Eligibility.EligibleAt
}
