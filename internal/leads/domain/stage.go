package domain

import (
	"fmt"
	"time"

	"leadflow_backend/platform/apperr"
)

// edges lists the permitted stage transitions. Withdrawal is reachable from
// every non-terminal stage; converted leads are handled by IsTerminal.
var edges = map[Stage][]Stage{
	StageContactDesk:     {StageNewIntake, StageWithdrawal},
	StageNewIntake:       {StageNoResponse, StageWithdrawal},
	StageNoResponse:      {StageFollowUp, StageWithdrawal},
	StageFollowUp:        {StageLevelAssessment, StageWithdrawal},
	StageLevelAssessment: {StageWithdrawal},
	StageWithdrawal:      {},
}

// entryStatus is the business status a lead takes on entering a stage.
// Stages absent from the map leave the status untouched.
var entryStatus = map[Stage]Status{
	StageNoResponse:      StatusContacted,
	StageFollowUp:        StatusInterested,
	StageLevelAssessment: StatusQualified,
	StageWithdrawal:      StatusLost,
}

// TransitionDetails is attached to InvalidTransition errors.
type TransitionDetails struct {
	CurrentStage   Stage   `json:"currentStage"`
	CurrentStatus  Status  `json:"currentStatus"`
	TargetStage    Stage   `json:"targetStage,omitempty"`
	AllowedTargets []Stage `json:"allowedTargets"`
	Terminal       bool    `json:"terminal"`
}

// AllowedTargets returns the stages the lead may move to next.
func AllowedTargets(l Lead) []Stage {
	if l.IsTerminal() {
		return []Stage{}
	}
	targets := edges[l.WorkflowStatus]
	out := make([]Stage, len(targets))
	copy(out, targets)
	return out
}

// CanTransition reports whether the lead may move to target.
func CanTransition(l Lead, target Stage) bool {
	for _, allowed := range AllowedTargets(l) {
		if allowed == target {
			return true
		}
	}
	return false
}

// Transition moves the lead to target and applies stage-entry side effects.
// On error the lead is untouched.
func Transition(l *Lead, target Stage, now time.Time) error {
	if !target.Valid() {
		return invalidTransition(*l, target, fmt.Sprintf("unknown stage %q", target))
	}
	if !CanTransition(*l, target) {
		return invalidTransition(*l, target, fmt.Sprintf("invalid transition from %s to %s", l.WorkflowStatus, target))
	}

	from := l.WorkflowStatus
	l.WorkflowStatus = target
	if from == StageNoResponse || target == StageNoResponse {
		l.NextRetryAt = nil
	}
	if status, ok := entryStatus[target]; ok {
		l.Status = status
	}
	l.UpdatedAt = now
	return nil
}

// CompleteAssessment records the assessment outcome and converts the lead.
func CompleteAssessment(l *Lead, level string, now time.Time) error {
	if l.WorkflowStatus != StageLevelAssessment || l.IsTerminal() {
		return invalidTransition(*l, "", fmt.Sprintf("assessment can only be completed from %s, lead is in %s", StageLevelAssessment, describe(*l)))
	}
	lvl := level
	at := now
	l.InterestedLevel = &lvl
	l.Status = StatusConverted
	l.ConversionDate = &at
	l.UpdatedAt = now
	return nil
}

func describe(l Lead) string {
	if l.Status == StatusConverted {
		return string(l.WorkflowStatus) + " (converted)"
	}
	return string(l.WorkflowStatus)
}

func invalidTransition(l Lead, target Stage, message string) *apperr.Error {
	return apperr.InvalidTransition(message).WithDetails(TransitionDetails{
		CurrentStage:   l.WorkflowStatus,
		CurrentStatus:  l.Status,
		TargetStage:    target,
		AllowedTargets: AllowedTargets(l),
		Terminal:       l.IsTerminal(),
	})
}
