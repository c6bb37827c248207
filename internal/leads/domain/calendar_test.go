package domain

import (
	"testing"
	"time"
)

func TestCategorizeRelativeToToday(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2026, time.March, 10, 15, 0, 0, 0, loc)
	ptr := func(t time.Time) *time.Time { return &t }

	cases := []struct {
		name string
		at   *time.Time
		want ScheduleCategory
	}{
		{"unset", nil, CategoryUnscheduled},
		{"yesterday", ptr(now.AddDate(0, 0, -1)), CategoryOverdue},
		{"earlier today", ptr(time.Date(2026, time.March, 10, 0, 5, 0, 0, loc)), CategoryToday},
		{"later today", ptr(time.Date(2026, time.March, 10, 23, 59, 0, 0, loc)), CategoryToday},
		{"tomorrow", ptr(time.Date(2026, time.March, 11, 10, 0, 0, 0, loc)), CategoryUpcoming},
	}
	for _, tc := range cases {
		if got := Categorize(now, tc.at, loc); got != tc.want {
			t.Errorf("%s: Categorize = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestCategorizeUsesBusinessTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// 02:00 UTC on the 11th is 22:00 on the 10th in New York.
	now := time.Date(2026, time.March, 11, 2, 0, 0, 0, time.UTC)
	at := time.Date(2026, time.March, 10, 18, 0, 0, 0, loc)

	if got := Categorize(now, &at, loc); got != CategoryToday {
		t.Fatalf("Categorize in New York = %s, want today", got)
	}
	if got := Categorize(now, &at, time.UTC); got != CategoryOverdue {
		t.Fatalf("Categorize in UTC = %s, want overdue", got)
	}
}

func TestFollowUpCategoryMovesWithClock(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, loc)
	l := leadAt(StageNoResponse)

	at, err := ResolveSchedule(ScheduleInput{Date: "2026-03-11", Time: "10:00"}, now, loc)
	if err != nil {
		t.Fatalf("ResolveSchedule: %v", err)
	}
	if err := ScheduleFollowUp(&l, at, "", false, now); err != nil {
		t.Fatalf("ScheduleFollowUp: %v", err)
	}

	if got := CategorizeFollowUp(now, l, loc); got != CategoryUpcoming {
		t.Fatalf("before the day: %s, want upcoming", got)
	}
	if got := CategorizeFollowUp(at.Add(-9*time.Hour), l, loc); got != CategoryToday {
		t.Fatalf("on the day: %s, want today", got)
	}
	if got := CategorizeFollowUp(at.AddDate(0, 0, 1), l, loc); got != CategoryOverdue {
		t.Fatalf("after the day: %s, want overdue", got)
	}
}
