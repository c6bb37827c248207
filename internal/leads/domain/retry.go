package domain

import (
	"fmt"
	"time"

	"leadflow_backend/platform/apperr"
)

// DefaultEscalationThreshold is the attempt count at which a due lead is
// flagged for manual disposition.
const DefaultEscalationThreshold = 5

// Eligibility is the read-time retry view of a lead.
type Eligibility struct {
	IsDue           bool
	EligibleAt      *time.Time
	RetryIn         time.Duration
	NeedsEscalation bool
}

// NotDueDetails is attached to NotDue errors.
type NotDueDetails struct {
	EligibleAt     time.Time `json:"eligibleAt"`
	RetryInSeconds int64     `json:"retryInSeconds"`
	CallCount      int       `json:"callCount"`
}

// IsDue reports whether the lead may be called again without override.
func IsDue(now time.Time, l Lead) bool {
	return l.NextRetryAt == nil || !now.Before(*l.NextRetryAt)
}

// CanAttempt reports whether a call attempt is accepted. override must be
// supplied explicitly by the caller and is recorded on the activity trail.
func CanAttempt(now time.Time, l Lead, override bool) bool {
	return IsDue(now, l) || override
}

// NeedsEscalation reports whether the lead should be surfaced for disposition.
func NeedsEscalation(now time.Time, l Lead, threshold int) bool {
	if threshold < 1 {
		threshold = DefaultEscalationThreshold
	}
	return l.CallCount >= threshold && IsDue(now, l)
}

// EligibilityAt computes the full retry view for a lead.
func EligibilityAt(now time.Time, l Lead, threshold int) Eligibility {
	e := Eligibility{
		IsDue:           IsDue(now, l),
		NeedsEscalation: NeedsEscalation(now, l, threshold),
	}
	if l.NextRetryAt != nil {
		at := *l.NextRetryAt
		e.EligibleAt = &at
		if !e.IsDue {
			e.RetryIn = at.Sub(now)
		}
	}
	return e
}

// RecordAttempt applies an accepted call attempt. On error the lead is untouched.
func RecordAttempt(l *Lead, now time.Time, policy BackoffPolicy, notes string, override bool) error {
	if l.IsTerminal() || l.WorkflowStatus != StageNoResponse {
		return invalidTransition(*l, "", fmt.Sprintf("call attempts are only recorded in %s, lead is in %s", StageNoResponse, describe(*l)))
	}
	if !CanAttempt(now, *l, override) {
		return notDue(now, *l)
	}

	l.CallCount++
	attemptAt := now
	l.LastAttemptAt = &attemptAt
	next := now.Add(policy.Delay(l.CallCount))
	l.NextRetryAt = &next
	l.AppendNote(now, notes)
	l.UpdatedAt = now
	return nil
}

// ResetAttempts is the explicit disposition that clears the attempt counter of
// an escalated lead so it re-enters the retry cycle.
func ResetAttempts(l *Lead, now time.Time, threshold int) error {
	if threshold < 1 {
		threshold = DefaultEscalationThreshold
	}
	if l.IsTerminal() || l.WorkflowStatus != StageNoResponse {
		return invalidTransition(*l, "", fmt.Sprintf("attempts can only be reset in %s, lead is in %s", StageNoResponse, describe(*l)))
	}
	if l.CallCount < threshold {
		return invalidTransition(*l, "", fmt.Sprintf("lead has %d of %d attempts and is not escalated", l.CallCount, threshold))
	}
	l.CallCount = 0
	l.NextRetryAt = nil
	l.UpdatedAt = now
	return nil
}

func notDue(now time.Time, l Lead) *apperr.Error {
	eligibleAt := *l.NextRetryAt
	wait := eligibleAt.Sub(now)
	return apperr.NotDue(fmt.Sprintf("lead is not due for another call; available in %s", humanizeWait(wait))).
		WithDetails(NotDueDetails{
			EligibleAt:     eligibleAt,
			RetryInSeconds: int64(wait.Round(time.Second) / time.Second),
			CallCount:      l.CallCount,
		})
}

func humanizeWait(d time.Duration) string {
	switch {
	case d >= 48*time.Hour:
		return fmt.Sprintf("%d days", int(d.Hours()/24))
	case d >= 2*time.Hour:
		return fmt.Sprintf("%d hours", int(d.Hours()))
	case d >= time.Hour:
		return "1 hour"
	case d >= 2*time.Minute:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	default:
		return "a minute"
	}
}
