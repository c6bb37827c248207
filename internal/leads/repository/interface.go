package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/internal/leads/domain"
)

var (
	ErrNotFound        = errors.New("lead not found")
	ErrVersionConflict = errors.New("lead was modified concurrently")
)

// Activity actions recorded on the audit trail.
const (
	ActionCreated             = "created"
	ActionStageChanged        = "stage_changed"
	ActionCallAttempt         = "call_attempt"
	ActionCallAttemptOverride = "call_attempt_override"
	ActionFollowUpScheduled   = "follow_up_scheduled"
	ActionAssessmentScheduled = "assessment_scheduled"
	ActionAssessmentCompleted = "assessment_completed"
	ActionAttemptsReset       = "attempts_reset"
	ActionReminderSent        = "reminder_sent"
)

// Activity is one audit trail entry for a lead.
type Activity struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	ActorID   *uuid.UUID
	Action    string
	Meta      map[string]any
	CreatedAt time.Time
}

// ListParams filters lead listings. Nil fields do not filter.
type ListParams struct {
	Stage         *domain.Stage
	HasFollowUp   bool
	HasAssessment bool
	Offset        int
	Limit         int
}

// MutateFunc applies a rule to the locked copy of a lead. Returning an error
// aborts the write; a non-nil Activity is stored in the same transaction.
type MutateFunc func(lead *domain.Lead) (*Activity, error)

// =====================================
// Segregated Interfaces
// =====================================

// LeadReader provides read-only snapshot access to leads.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	List(ctx context.Context, params ListParams) ([]domain.Lead, int, error)
}

// LeadWriter provides serialized per-lead writes.
type LeadWriter interface {
	Create(ctx context.Context, lead domain.Lead, activity *Activity) (domain.Lead, error)
	Update(ctx context.Context, id uuid.UUID, fn MutateFunc) (domain.Lead, error)
}

// ActivityLogger records and lists the audit trail.
type ActivityLogger interface {
	AddActivity(ctx context.Context, activity Activity) error
	ListActivity(ctx context.Context, leadID uuid.UUID, limit int) ([]Activity, error)
}

// StatsReader provides the per-stage projection.
type StatsReader interface {
	CountByStage(ctx context.Context) (map[domain.Stage]int, error)
}

// LeadStore is the complete lead persistence contract.
type LeadStore interface {
	LeadReader
	LeadWriter
	ActivityLogger
	StatsReader
}

var (
	_ LeadStore = (*Repository)(nil)
	_ LeadStore = (*MemoryStore)(nil)
)

// List page sizes. Larger requests are clamped to MaxListLimit.
const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}
