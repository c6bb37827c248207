// Package notification sends lead reminders and confirmations in response to
// workflow events. Lead modules publish events and never talk to SMS or email
// providers directly.
package notification

import (
	"context"
	"errors"
	"time"

	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/scheduler"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

const ChannelEmail = "email"

// Module subscribes to lead events and performs the side effects. Failures are
// logged and never touch the lead record.
type Module struct {
	service   *Service
	store     repository.LeadReader
	mailer    email.Sender
	reminders scheduler.ReminderScheduler
	leadTime  time.Duration
	loc       *time.Location
	log       *logger.Logger
	now       func() time.Time
}

func New(service *Service, store repository.LeadReader, mailer email.Sender, loc *time.Location, log *logger.Logger) *Module {
	if mailer == nil {
		mailer = email.NoopSender{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Module{
		service: service,
		store:   store,
		mailer:  mailer,
		loc:     loc,
		log:     log,
		now:     time.Now,
	}
}

// SetReminderScheduler enables delayed follow-up reminders, fired leadTime
// before the follow-up starts.
func (m *Module) SetReminderScheduler(reminders scheduler.ReminderScheduler, leadTime time.Duration) {
	m.reminders = reminders
	m.leadTime = leadTime
}

func (m *Module) SetClock(now func() time.Time) {
	m.now = now
}

func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.FollowUpScheduled{}.EventName(), m)
	bus.Subscribe(events.AssessmentScheduled{}.EventName(), m)
	bus.Subscribe(events.FollowUpReminderDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.FollowUpScheduled:
		return m.handleFollowUpScheduled(ctx, e)
	case events.AssessmentScheduled:
		return m.handleAssessmentScheduled(ctx, e)
	case events.FollowUpReminderDue:
		return m.handleFollowUpReminderDue(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handleFollowUpScheduled(ctx context.Context, e events.FollowUpScheduled) error {
	if !e.SMSReminderEnabled {
		return nil
	}

	runAt := e.FollowUpStart.Add(-m.leadTime)
	if runAt.After(m.now()) {
		if m.reminders == nil {
			m.log.Warn("follow-up reminder skipped, scheduler not configured", "leadId", e.LeadID)
			return nil
		}
		payload := scheduler.FollowUpReminderPayload{
			LeadID:       e.LeadID.String(),
			ScheduledFor: e.FollowUpStart,
		}
		if err := m.reminders.ScheduleFollowUpReminder(ctx, payload, runAt); err != nil {
			m.log.DispatchFailure(e.LeadID.String(), ChannelSMS, err)
			return nil
		}
		m.log.Info("follow-up reminder scheduled", "leadId", e.LeadID, "runAt", runAt)
		return nil
	}

	if err := m.sendFollowUpReminder(ctx, e.LeadID, e.FollowUpStart); err != nil {
		m.log.DispatchFailure(e.LeadID.String(), ChannelSMS, err)
	}
	return nil
}

// handleFollowUpReminderDue returns delivery errors so the task queue can retry.
func (m *Module) handleFollowUpReminderDue(ctx context.Context, e events.FollowUpReminderDue) error {
	return m.sendFollowUpReminder(ctx, e.LeadID, e.ScheduledFor)
}

func (m *Module) sendFollowUpReminder(ctx context.Context, leadID uuid.UUID, scheduledFor time.Time) error {
	lead, err := m.store.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if reason := staleReminderReason(lead, scheduledFor); reason != "" {
		m.log.Info("dropping follow-up reminder", "leadId", leadID, "reason", reason)
		return nil
	}

	return m.service.deliver(ctx, lead, followUpReminderMessage(lead, m.loc), nil, map[string]any{
		"trigger":      "follow_up_reminder",
		"scheduledFor": scheduledFor.UTC(),
	})
}

// staleReminderReason explains why a reminder no longer applies, or returns "".
// A later booking wins over a reminder enqueued for an earlier one.
func staleReminderReason(lead domain.Lead, scheduledFor time.Time) string {
	switch {
	case lead.IsTerminal():
		return "lead_terminal"
	case !lead.SMSReminderEnabled:
		return "reminder_disabled"
	case lead.FollowUpStart == nil || !lead.FollowUpStart.Equal(scheduledFor):
		return "rescheduled"
	}
	return ""
}

func (m *Module) handleAssessmentScheduled(ctx context.Context, e events.AssessmentScheduled) error {
	lead, err := m.store.GetByID(ctx, e.LeadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if lead.Email == nil || *lead.Email == "" {
		return nil
	}

	err = m.mailer.SendAssessmentConfirmation(ctx, *lead.Email, email.AssessmentConfirmation{
		LeadName: lead.FullName(),
		Start:    e.StartAt,
		End:      e.EndAt,
		Location: m.loc,
	})
	if err != nil {
		m.log.DispatchFailure(e.LeadID.String(), ChannelEmail, err)
	}
	return nil
}
