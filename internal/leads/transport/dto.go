package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs
type CreateLeadRequest struct {
	FirstName string `json:"firstName" validate:"required,min=1,max=100"`
	LastName  string `json:"lastName" validate:"required,min=1,max=100"`
	Phone     string `json:"phone" validate:"required,min=5,max=20"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Priority  string `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Notes     string `json:"notes,omitempty" validate:"max=2000"`
}

type TransitionRequest struct {
	TargetStage string `json:"targetStage" validate:"required,workflow_stage"`
}

type DispositionRequest struct {
	Action string `json:"action" validate:"required,disposition"`
}

// RecordAttemptRequest requires override to be sent explicitly, true or false.
type RecordAttemptRequest struct {
	Notes    string `json:"notes,omitempty" validate:"max=2000"`
	Override *bool  `json:"override" validate:"required"`
}

// ScheduleRequest takes a business-timezone date and time, or an absolute instant.
type ScheduleRequest struct {
	Date string `json:"date,omitempty" validate:"required_without=At"`
	Time string `json:"time,omitempty" validate:"required_without=At"`
	At   string `json:"at,omitempty"`
}

type ScheduleFollowUpRequest struct {
	ScheduleRequest
	Notes              string `json:"notes,omitempty" validate:"max=2000"`
	SMSReminderEnabled bool   `json:"smsReminderEnabled"`
}

type ScheduleAssessmentRequest struct {
	ScheduleRequest
}

type CompleteAssessmentRequest struct {
	InterestedLevel string `json:"interestedLevel" validate:"required,min=1,max=50"`
}

type SendReminderRequest struct {
	Message string `json:"message" validate:"required,min=1,max=480"`
}

// Query DTOs
type ListLeadsQuery struct {
	WorkflowStatus string `form:"workflowStatus" validate:"omitempty,workflow_stage"`
	Limit          int    `form:"limit" validate:"omitempty,min=1,max=500"`
	Offset         int    `form:"offset" validate:"omitempty,min=0"`
}

type RetryQueueQuery struct {
	Due       bool `form:"due"`
	Escalated bool `form:"escalated"`
}

type AgendaQuery struct {
	Category string `form:"category" validate:"omitempty,schedule_category"`
}

// Response DTOs
type RetryResponse struct {
	IsDue           bool       `json:"isDue"`
	EligibleAt      *time.Time `json:"eligibleAt,omitempty"`
	RetryInSeconds  int64      `json:"retryInSeconds"`
	NeedsEscalation bool       `json:"needsEscalation"`
}

type LeadResponse struct {
	ID                   uuid.UUID      `json:"id"`
	FirstName            string         `json:"firstName"`
	LastName             string         `json:"lastName"`
	Phone                string         `json:"phone"`
	Email                *string        `json:"email,omitempty"`
	WorkflowStatus       string         `json:"workflowStatus"`
	Status               string         `json:"status"`
	Priority             string         `json:"priority"`
	CallCount            int            `json:"callCount"`
	LastAttemptAt        *time.Time     `json:"lastAttemptAt,omitempty"`
	NextRetryAt          *time.Time     `json:"nextRetryAt,omitempty"`
	NextFollowUpDate     *time.Time     `json:"nextFollowUpDate,omitempty"`
	FollowUpStart        *time.Time     `json:"followUpStart,omitempty"`
	FollowUpEnd          *time.Time     `json:"followUpEnd,omitempty"`
	LevelAssessmentStart *time.Time     `json:"levelAssessmentStart,omitempty"`
	LevelAssessmentEnd   *time.Time     `json:"levelAssessmentEnd,omitempty"`
	InterestedLevel      *string        `json:"interestedLevel,omitempty"`
	ConversionDate       *time.Time     `json:"conversionDate,omitempty"`
	Notes                string         `json:"notes"`
	SMSReminderEnabled   bool           `json:"smsReminderEnabled"`
	Version              int64          `json:"version"`
	AllowedTargets       []string       `json:"allowedTargets"`
	Retry                *RetryResponse `json:"retry,omitempty"`
	FollowUpCategory     string         `json:"followUpCategory"`
	AssessmentCategory   string         `json:"assessmentCategory"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

type LeadListResponse struct {
	Items  []LeadResponse `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// Truncated is set when more leads matched than a single read loads.
type RetryQueueResponse struct {
	Items               []LeadResponse `json:"items"`
	EscalationThreshold int            `json:"escalationThreshold"`
	Truncated           bool           `json:"truncated"`
}

type AgendaResponse struct {
	Items     []LeadResponse `json:"items"`
	Truncated bool           `json:"truncated"`
}

type ActivityResponse struct {
	ID        uuid.UUID      `json:"id"`
	ActorID   *uuid.UUID     `json:"actorId,omitempty"`
	Action    string         `json:"action"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

type ActivityListResponse struct {
	Items []ActivityResponse `json:"items"`
}

type StatsResponse struct {
	PerStage   map[string]int `json:"perStage"`
	Total      int            `json:"total"`
	ComputedAt time.Time      `json:"computedAt"`
}

type ReminderResponse struct {
	LeadID uuid.UUID `json:"leadId"`
	Sent   bool      `json:"sent"`
}
