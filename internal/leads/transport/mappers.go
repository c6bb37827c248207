package transport

import (
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/stats"
)

// Presenter renders leads with their derived read-time fields. Eligibility
// and calendar categories are recomputed on every call and never stored.
type Presenter struct {
	Now       func() time.Time
	Location  *time.Location
	Threshold int
}

func (p Presenter) loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

func (p Presenter) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// Lead maps a single lead.
func (p Presenter) Lead(l domain.Lead) LeadResponse {
	return p.leadAt(p.now(), l)
}

// Leads maps a slice of leads against one clock reading.
func (p Presenter) Leads(leads []domain.Lead) []LeadResponse {
	now := p.now()
	out := make([]LeadResponse, len(leads))
	for i, l := range leads {
		out[i] = p.leadAt(now, l)
	}
	return out
}

func (p Presenter) leadAt(now time.Time, l domain.Lead) LeadResponse {
	loc := p.loc()
	resp := LeadResponse{
		ID:                   l.ID,
		FirstName:            l.FirstName,
		LastName:             l.LastName,
		Phone:                l.Phone,
		Email:                l.Email,
		WorkflowStatus:       string(l.WorkflowStatus),
		Status:               string(l.Status),
		Priority:             string(l.Priority),
		CallCount:            l.CallCount,
		LastAttemptAt:        inLoc(l.LastAttemptAt, loc),
		NextRetryAt:          inLoc(l.NextRetryAt, loc),
		NextFollowUpDate:     inLoc(l.NextFollowUpDate, loc),
		FollowUpStart:        inLoc(l.FollowUpStart, loc),
		FollowUpEnd:          inLoc(l.FollowUpEnd, loc),
		LevelAssessmentStart: inLoc(l.LevelAssessmentStart, loc),
		LevelAssessmentEnd:   inLoc(l.LevelAssessmentEnd, loc),
		InterestedLevel:      l.InterestedLevel,
		ConversionDate:       inLoc(l.ConversionDate, loc),
		Notes:                l.Notes,
		SMSReminderEnabled:   l.SMSReminderEnabled,
		Version:              l.Version,
		AllowedTargets:       stageNames(domain.AllowedTargets(l)),
		FollowUpCategory:     string(domain.CategorizeFollowUp(now, l, loc)),
		AssessmentCategory:   string(domain.CategorizeAssessment(now, l, loc)),
		CreatedAt:            l.CreatedAt.In(loc),
		UpdatedAt:            l.UpdatedAt.In(loc),
	}

	if l.WorkflowStatus == domain.StageNoResponse {
		e := domain.EligibilityAt(now, l, p.Threshold)
		resp.Retry = &RetryResponse{
			IsDue:           e.IsDue,
			EligibleAt:      inLoc(e.EligibleAt, loc),
			RetryInSeconds:  int64(e.RetryIn.Round(time.Second) / time.Second),
			NeedsEscalation: e.NeedsEscalation,
		}
	}
	return resp
}

// Activity maps audit trail entries.
func (p Presenter) Activity(items []repository.Activity) ActivityListResponse {
	loc := p.loc()
	out := make([]ActivityResponse, len(items))
	for i, a := range items {
		out[i] = ActivityResponse{
			ID:        a.ID,
			ActorID:   a.ActorID,
			Action:    a.Action,
			Meta:      a.Meta,
			CreatedAt: a.CreatedAt.In(loc),
		}
	}
	return ActivityListResponse{Items: out}
}

// Stats maps the workflow projection.
func (p Presenter) Stats(snap stats.Snapshot) StatsResponse {
	perStage := make(map[string]int, len(snap.PerStage))
	for stage, n := range snap.PerStage {
		perStage[string(stage)] = n
	}
	return StatsResponse{
		PerStage:   perStage,
		Total:      snap.Total,
		ComputedAt: snap.ComputedAt.In(p.loc()),
	}
}

// Schedule converts the request to the domain input.
func (r ScheduleRequest) Schedule() domain.ScheduleInput {
	return domain.ScheduleInput{Date: r.Date, Time: r.Time, At: r.At}
}

func stageNames(stages []domain.Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = string(s)
	}
	return out
}

func inLoc(t *time.Time, loc *time.Location) *time.Time {
	if t == nil {
		return nil
	}
	v := t.In(loc)
	return &v
}
