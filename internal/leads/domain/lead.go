// Package domain provides core business rules for the lead workflow:
// pipeline stages and their edges, retry eligibility, and schedule windows.
// Everything here is pure and takes "now" explicitly.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Stage is a workflow pipeline bucket.
type Stage string

const (
	StageContactDesk     Stage = "contact_desk"
	StageNewIntake       Stage = "new_intake"
	StageNoResponse      Stage = "no_response"
	StageFollowUp        Stage = "follow_up"
	StageLevelAssessment Stage = "level_assessment"
	StageWithdrawal      Stage = "withdrawal"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{
	StageContactDesk,
	StageNewIntake,
	StageNoResponse,
	StageFollowUp,
	StageLevelAssessment,
	StageWithdrawal,
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, known := range Stages {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStage parses a stage name, case-insensitively.
func ParseStage(raw string) (Stage, bool) {
	s := Stage(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// Status is the business classification of a lead.
type Status string

const (
	StatusNew        Status = "new"
	StatusContacted  Status = "contacted"
	StatusInterested Status = "interested"
	StatusQualified  Status = "qualified"
	StatusConverted  Status = "converted"
	StatusLost       Status = "lost"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusInterested, StatusQualified, StatusConverted, StatusLost:
		return true
	}
	return false
}

// Priority is set at intake and never changed by the schedulers.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Rank orders priorities; urgent is highest. Unknown priorities rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

// Lead is the persisted call-center lead.
type Lead struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Phone     string
	Email     *string

	WorkflowStatus Stage
	Status         Status
	Priority       Priority

	CallCount     int
	LastAttemptAt *time.Time
	NextRetryAt   *time.Time

	NextFollowUpDate *time.Time
	FollowUpStart    *time.Time
	FollowUpEnd      *time.Time

	LevelAssessmentStart *time.Time
	LevelAssessmentEnd   *time.Time

	InterestedLevel *string
	ConversionDate  *time.Time

	Notes              string
	SMSReminderEnabled bool

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewLead returns a lead in its intake state.
func NewLead(firstName, lastName, phone string, email *string, priority Priority, now time.Time) Lead {
	if !priority.Valid() {
		priority = PriorityMedium
	}
	return Lead{
		ID:             uuid.New(),
		FirstName:      firstName,
		LastName:       lastName,
		Phone:          phone,
		Email:          email,
		WorkflowStatus: StageContactDesk,
		Status:         StatusNew,
		Priority:       priority,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// FullName joins first and last name.
func (l Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// IsTerminal reports whether the lead accepts no further stage-advancing writes.
func (l Lead) IsTerminal() bool {
	return l.WorkflowStatus == StageWithdrawal || l.Status == StatusConverted
}

// AppendNote adds a timestamped line to the notes. Blank text is ignored.
func (l *Lead) AppendNote(now time.Time, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	line := "[" + now.UTC().Format(time.RFC3339) + "] " + text
	if l.Notes == "" {
		l.Notes = line
		return
	}
	l.Notes += "\n" + line
}

// Clone returns a deep copy so callers can mutate without aliasing pointers.
func (l Lead) Clone() Lead {
	out := l
	out.Email = clonePtr(l.Email)
	out.LastAttemptAt = clonePtr(l.LastAttemptAt)
	out.NextRetryAt = clonePtr(l.NextRetryAt)
	out.NextFollowUpDate = clonePtr(l.NextFollowUpDate)
	out.FollowUpStart = clonePtr(l.FollowUpStart)
	out.FollowUpEnd = clonePtr(l.FollowUpEnd)
	out.LevelAssessmentStart = clonePtr(l.LevelAssessmentStart)
	out.LevelAssessmentEnd = clonePtr(l.LevelAssessmentEnd)
	out.InterestedLevel = clonePtr(l.InterestedLevel)
	out.ConversionDate = clonePtr(l.ConversionDate)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
