package domain

import (
	"fmt"
	"strings"
	"time"

	"leadflow_backend/platform/apperr"
)

const (
	// FollowUpWindow is the fixed length of a follow-up window.
	FollowUpWindow = 7 * 24 * time.Hour
	// AssessmentDuration is the fixed length of a level-assessment session.
	AssessmentDuration = time.Hour
)

var clockLayouts = []string{"15:04", "15:04:05"}

// ScheduleInput is either a date + time-of-day pair in the business timezone
// or an absolute RFC 3339 instant.
type ScheduleInput struct {
	Date string
	Time string
	At   string
}

// ScheduleDetails is attached to InvalidSchedule errors.
type ScheduleDetails struct {
	Reason string    `json:"reason"`
	Date   string    `json:"date,omitempty"`
	Time   string    `json:"time,omitempty"`
	At     string    `json:"at,omitempty"`
	Now    time.Time `json:"now"`
}

// ResolveSchedule turns in into an instant strictly after now.
func ResolveSchedule(in ScheduleInput, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	var at time.Time
	switch {
	case strings.TrimSpace(in.At) != "":
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(in.At))
		if err != nil {
			return time.Time{}, invalidSchedule("malformed", in, now,
				fmt.Sprintf("invalid instant %q, expected RFC 3339 with offset", in.At))
		}
		at = parsed
	default:
		parsed, ok := parseDateTime(in.Date, in.Time, loc)
		if !ok {
			return time.Time{}, invalidSchedule("malformed", in, now,
				fmt.Sprintf("invalid date/time %q %q, expected YYYY-MM-DD and HH:MM", in.Date, in.Time))
		}
		at = parsed
	}

	// Stored timestamps carry microsecond precision.
	at = at.Truncate(time.Microsecond)
	if !at.After(now) {
		return time.Time{}, invalidSchedule("not_in_future", in, now, "schedule must be strictly in the future")
	}
	return at, nil
}

// ScheduleFollowUp books a follow-up window starting at at.
func ScheduleFollowUp(l *Lead, at time.Time, notes string, smsReminderEnabled bool, now time.Time) error {
	if l.IsTerminal() {
		return invalidTransition(*l, "", fmt.Sprintf("cannot book a follow-up for a lead in %s", describe(*l)))
	}
	start := at
	end := at.Add(FollowUpWindow)
	next := at
	l.NextFollowUpDate = &next
	l.FollowUpStart = &start
	l.FollowUpEnd = &end
	l.SMSReminderEnabled = smsReminderEnabled
	l.AppendNote(now, notes)
	l.UpdatedAt = now
	return nil
}

// ScheduleAssessment books a level-assessment session starting at at.
// The workflow stage is not changed.
func ScheduleAssessment(l *Lead, at time.Time, now time.Time) error {
	if l.IsTerminal() {
		return invalidTransition(*l, "", fmt.Sprintf("cannot book an assessment for a lead in %s", describe(*l)))
	}
	start := at
	end := at.Add(AssessmentDuration)
	l.LevelAssessmentStart = &start
	l.LevelAssessmentEnd = &end
	l.UpdatedAt = now
	return nil
}

func parseDateTime(date, clock string, loc *time.Location) (time.Time, bool) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, false
	}
	for _, layout := range clockLayouts {
		t, err := time.ParseInLocation("2006-01-02 "+layout, date+" "+clock, loc)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func invalidSchedule(reason string, in ScheduleInput, now time.Time, message string) *apperr.Error {
	return apperr.InvalidSchedule(message).WithDetails(ScheduleDetails{
		Reason: reason,
		Date:   in.Date,
		Time:   in.Time,
		At:     in.At,
		Now:    now,
	})
}
