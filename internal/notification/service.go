package notification

import (
	"context"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Repository is the lead access the notification layer needs. It never
// writes workflow fields.
type Repository interface {
	repository.LeadReader
	repository.ActivityLogger
}

// Service sends reminders to leads on demand.
type Service struct {
	store      Repository
	dispatcher Dispatcher
	bus        events.Bus
	log        *logger.Logger
	now        func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Repository, dispatcher Dispatcher, bus events.Bus, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		store:      store,
		dispatcher: dispatcher,
		bus:        bus,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendReminder dispatches message to the lead's phone and records a
// reminder_sent activity on success.
func (s *Service) SendReminder(ctx context.Context, leadID uuid.UUID, message string, actor *uuid.UUID) error {
	lead, err := s.store.GetByID(ctx, leadID)
	if err != nil {
		return repository.MapError("send reminder", err)
	}
	return s.deliver(ctx, lead, sanitize.Line(message), actor, map[string]any{"trigger": "manual"})
}

func (s *Service) deliver(ctx context.Context, lead domain.Lead, message string, actor *uuid.UUID, meta map[string]any) error {
	if err := s.dispatcher.SendReminder(ctx, lead, message); err != nil {
		s.log.DispatchFailure(lead.ID.String(), ChannelSMS, err)
		return apperr.DispatchFailure("reminder could not be delivered", err).WithOp("send reminder")
	}

	now := s.now().UTC()
	if meta == nil {
		meta = map[string]any{}
	}
	meta["channel"] = ChannelSMS
	meta["length"] = len([]rune(message))

	err := s.store.AddActivity(ctx, repository.Activity{
		ID:        uuid.New(),
		LeadID:    lead.ID,
		ActorID:   actor,
		Action:    repository.ActionReminderSent,
		Meta:      meta,
		CreatedAt: now,
	})
	if err != nil {
		// The message already left.
		s.log.DatabaseError("record reminder activity", err)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.ReminderSent{
			BaseEvent: events.BaseEventAt(now),
			LeadID:    lead.ID,
			Channel:   ChannelSMS,
		})
	}
	return nil
}
