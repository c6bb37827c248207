package domain

import "time"

// ScheduleCategory buckets a scheduled instant relative to today.
type ScheduleCategory string

const (
	CategoryUnscheduled ScheduleCategory = "unscheduled"
	CategoryOverdue     ScheduleCategory = "overdue"
	CategoryToday       ScheduleCategory = "today"
	CategoryUpcoming    ScheduleCategory = "upcoming"
)

// Valid reports whether c is a known category.
func (c ScheduleCategory) Valid() bool {
	switch c {
	case CategoryUnscheduled, CategoryOverdue, CategoryToday, CategoryUpcoming:
		return true
	}
	return false
}

// Categorize compares the calendar day of at with the calendar day of now,
// both taken in loc. It is recomputed on every read and never stored.
func Categorize(now time.Time, at *time.Time, loc *time.Location) ScheduleCategory {
	if at == nil {
		return CategoryUnscheduled
	}
	if loc == nil {
		loc = time.UTC
	}
	today := dayKey(now.In(loc))
	day := dayKey(at.In(loc))
	switch {
	case day < today:
		return CategoryOverdue
	case day == today:
		return CategoryToday
	default:
		return CategoryUpcoming
	}
}

// CategorizeFollowUp categorizes the lead's next follow-up date.
func CategorizeFollowUp(now time.Time, l Lead, loc *time.Location) ScheduleCategory {
	return Categorize(now, l.NextFollowUpDate, loc)
}

// CategorizeAssessment categorizes the lead's assessment session start.
func CategorizeAssessment(now time.Time, l Lead, loc *time.Location) ScheduleCategory {
	return Categorize(now, l.LevelAssessmentStart, loc)
}

func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
