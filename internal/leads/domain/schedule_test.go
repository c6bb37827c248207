package domain

import (
	"testing"
	"time"

	"leadflow_backend/platform/apperr"
)

func TestResolveSchedule(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, loc)
	past := now.Add(-time.Minute).Format(time.RFC3339)
	exact := now.Format(time.RFC3339)

	cases := []struct {
		name   string
		in     ScheduleInput
		reason string
		want   time.Time
	}{
		{"date and time", ScheduleInput{Date: "2026-03-11", Time: "10:00"}, "", time.Date(2026, time.March, 11, 10, 0, 0, 0, loc)},
		{"with seconds", ScheduleInput{Date: "2026-03-10", Time: "12:00:01"}, "", now.Add(time.Second)},
		{"bad date", ScheduleInput{Date: "11-03-2026", Time: "10:00"}, "malformed", time.Time{}},
		{"bad time", ScheduleInput{Date: "2026-03-11", Time: "25:00"}, "malformed", time.Time{}},
		{"missing time", ScheduleInput{Date: "2026-03-11"}, "malformed", time.Time{}},
		{"instant", ScheduleInput{At: "2026-03-11T09:00:00Z"}, "", time.Date(2026, time.March, 11, 10, 0, 0, 0, loc)},
		{"instant without offset", ScheduleInput{At: "2026-03-11 10:00"}, "malformed", time.Time{}},
		{"garbage instant", ScheduleInput{At: "tomorrow"}, "malformed", time.Time{}},
		{"past", ScheduleInput{At: past}, "not_in_future", time.Time{}},
		{"exactly now", ScheduleInput{At: exact}, "not_in_future", time.Time{}},
	}

	for _, tc := range cases {
		got, err := ResolveSchedule(tc.in, now, loc)
		if tc.reason == "" {
			if err != nil {
				t.Errorf("%s: unexpected error %v", tc.name, err)
			} else if !got.Equal(tc.want) {
				t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
			}
			continue
		}
		if !apperr.Is(err, apperr.KindInvalidSchedule) {
			t.Errorf("%s: expected InvalidSchedule, got %v", tc.name, err)
			continue
		}
		details := err.(*apperr.Error).Details.(ScheduleDetails)
		if details.Reason != tc.reason {
			t.Errorf("%s: reason %q, want %q", tc.name, details.Reason, tc.reason)
		}
	}
}

func TestScheduleFollowUpWindow(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// The window crosses the spring-forward change on 2026-03-29.
	now := time.Date(2026, time.March, 25, 9, 0, 0, 0, loc)
	at := time.Date(2026, time.March, 26, 10, 0, 0, 0, loc)

	l := leadAt(StageNoResponse)
	if err := ScheduleFollowUp(&l, at, "call back after exams", true, now); err != nil {
		t.Fatalf("ScheduleFollowUp: %v", err)
	}
	if got := l.FollowUpEnd.Sub(*l.FollowUpStart); got != 7*24*time.Hour {
		t.Fatalf("follow-up window = %s, want 168h", got)
	}
	if !l.NextFollowUpDate.Equal(at) || !l.SMSReminderEnabled {
		t.Fatalf("unexpected follow-up state: next=%v sms=%v", l.NextFollowUpDate, l.SMSReminderEnabled)
	}
	if l.WorkflowStatus != StageNoResponse {
		t.Fatalf("booking must not change stage, got %s", l.WorkflowStatus)
	}
	if l.Notes == "" {
		t.Fatal("expected notes to be appended")
	}
}

func TestScheduleAssessmentSession(t *testing.T) {
	l := leadAt(StageFollowUp)
	at := testNow.Add(26 * time.Hour)
	if err := ScheduleAssessment(&l, at, testNow); err != nil {
		t.Fatalf("ScheduleAssessment: %v", err)
	}
	if got := l.LevelAssessmentEnd.Sub(*l.LevelAssessmentStart); got != time.Hour {
		t.Fatalf("assessment session = %s, want 1h", got)
	}
	if l.WorkflowStatus != StageFollowUp {
		t.Fatalf("booking must not change stage, got %s", l.WorkflowStatus)
	}

	withdrawn := leadAt(StageWithdrawal)
	if err := ScheduleAssessment(&withdrawn, at, testNow); !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected terminal booking to fail, got %v", err)
	}
	if withdrawn.LevelAssessmentStart != nil {
		t.Fatal("rejected booking mutated the lead")
	}
}

func TestAppendNote(t *testing.T) {
	l := leadAt(StageNoResponse)
	l.AppendNote(testNow, "  first  ")
	l.AppendNote(testNow, "   ")
	l.AppendNote(testNow.Add(time.Minute), "second")

	want := "[2026-03-10T09:30:00Z] first\n[2026-03-10T09:31:00Z] second"
	if l.Notes != want {
		t.Fatalf("notes = %q, want %q", l.Notes, want)
	}
}
