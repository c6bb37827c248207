// Package events defines the lead workflow events and re-exports the
// platform bus so modules import a single package.
package events

import (
	"time"

	"leadflow_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// BaseEventAt returns a base event stamped with the given instant.
func BaseEventAt(t time.Time) BaseEvent {
	return BaseEvent{Timestamp: t.UTC()}
}

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead is taken in.
type LeadCreated struct {
	BaseEvent
	LeadID   uuid.UUID  `json:"leadId"`
	ActorID  *uuid.UUID `json:"actorId,omitempty"`
	Priority string     `json:"priority"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadStageChanged is published after a workflow transition commits.
type LeadStageChanged struct {
	BaseEvent
	LeadID    uuid.UUID  `json:"leadId"`
	ActorID   *uuid.UUID `json:"actorId,omitempty"`
	OldStage  string     `json:"oldStage"`
	NewStage  string     `json:"newStage"`
	NewStatus string     `json:"newStatus"`
}

func (e LeadStageChanged) EventName() string { return "leads.stage.changed" }

// CallAttemptRecorded is published after a call attempt is accepted.
type CallAttemptRecorded struct {
	BaseEvent
	LeadID      uuid.UUID  `json:"leadId"`
	ActorID     *uuid.UUID `json:"actorId,omitempty"`
	CallCount   int        `json:"callCount"`
	NextRetryAt time.Time  `json:"nextRetryAt"`
	Override    bool       `json:"override"`
}

func (e CallAttemptRecorded) EventName() string { return "leads.call_attempt.recorded" }

// AttemptsReset is published when an escalated lead's counter is cleared.
type AttemptsReset struct {
	BaseEvent
	LeadID  uuid.UUID  `json:"leadId"`
	ActorID *uuid.UUID `json:"actorId,omitempty"`
}

func (e AttemptsReset) EventName() string { return "leads.attempts.reset" }

// FollowUpScheduled is published when a follow-up window is booked.
type FollowUpScheduled struct {
	BaseEvent
	LeadID             uuid.UUID  `json:"leadId"`
	ActorID            *uuid.UUID `json:"actorId,omitempty"`
	FollowUpStart      time.Time  `json:"followUpStart"`
	FollowUpEnd        time.Time  `json:"followUpEnd"`
	SMSReminderEnabled bool       `json:"smsReminderEnabled"`
}

func (e FollowUpScheduled) EventName() string { return "leads.follow_up.scheduled" }

// AssessmentScheduled is published when a level-assessment session is booked.
type AssessmentScheduled struct {
	BaseEvent
	LeadID  uuid.UUID  `json:"leadId"`
	ActorID *uuid.UUID `json:"actorId,omitempty"`
	StartAt time.Time  `json:"startAt"`
	EndAt   time.Time  `json:"endAt"`
}

func (e AssessmentScheduled) EventName() string { return "leads.assessment.scheduled" }

// AssessmentCompleted is published when a lead converts.
type AssessmentCompleted struct {
	BaseEvent
	LeadID          uuid.UUID  `json:"leadId"`
	ActorID         *uuid.UUID `json:"actorId,omitempty"`
	InterestedLevel string     `json:"interestedLevel"`
}

func (e AssessmentCompleted) EventName() string { return "leads.assessment.completed" }

// =============================================================================
// Notification Events
// =============================================================================

// ReminderSent is published after a reminder was handed to a channel.
type ReminderSent struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	Channel string    `json:"channel"`
}

func (e ReminderSent) EventName() string { return "notification.reminder.sent" }

// FollowUpReminderDue is published by the scheduler worker when a delayed
// reminder task fires. ScheduledFor is the followUpStart it was enqueued for.
type FollowUpReminderDue struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	ScheduledFor time.Time `json:"scheduledFor"`
}

func (e FollowUpReminderDue) EventName() string { return "notification.follow_up_reminder.due" }
