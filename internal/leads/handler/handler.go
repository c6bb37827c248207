package handler

import (
	"context"
	"net/http"
	"strconv"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/retry"
	"leadflow_backend/internal/leads/scheduling"
	"leadflow_backend/internal/leads/stats"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/internal/leads/workflow"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"
)

// ReminderSender delivers an on-demand reminder to a lead.
type ReminderSender interface {
	SendReminder(ctx context.Context, leadID uuid.UUID, message string, actor *uuid.UUID) error
}

type Handler struct {
	workflow   *workflow.Service
	retry      *retry.Service
	scheduling *scheduling.Service
	stats      *stats.Service
	reminders  ReminderSender
	presenter  transport.Presenter
	val        *validator.Validator
}

func New(
	workflowSvc *workflow.Service,
	retrySvc *retry.Service,
	schedulingSvc *scheduling.Service,
	statsSvc *stats.Service,
	reminders ReminderSender,
	presenter transport.Presenter,
	val *validator.Validator,
) *Handler {
	return &Handler{
		workflow:   workflowSvc,
		retry:      retrySvc,
		scheduling: schedulingSvc,
		stats:      statsSvc,
		reminders:  reminders,
		presenter:  presenter,
		val:        val,
	}
}

// RegisterRoutes mounts the lead routes. Static paths come before /:id.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/retry-queue", h.RetryQueue)
	rg.GET("/follow-ups", h.FollowUpAgenda)
	rg.GET("/assessments", h.AssessmentAgenda)
	rg.GET("/stats", h.Stats)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/activity", h.ListActivity)
	rg.POST("/:id/transition", h.Transition)
	rg.POST("/:id/disposition", h.Dispose)
	rg.POST("/:id/attempts", h.RecordAttempt)
	rg.POST("/:id/follow-up", h.ScheduleFollowUp)
	rg.POST("/:id/assessment", h.ScheduleAssessment)
	rg.POST("/:id/assessment/complete", h.CompleteAssessment)
	rg.POST("/:id/reminders", h.SendReminder)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	params := workflow.CreateParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Priority:  domain.Priority(req.Priority),
		Notes:     req.Notes,
	}
	if req.Email != "" {
		params.Email = &req.Email
	}

	lead, err := h.workflow.Create(c.Request.Context(), params, httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, h.presenter.Lead(lead))
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	lead, err := h.workflow.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, h.presenter.Lead(lead))
}

func (h *Handler) List(c *gin.Context) {
	var q transport.ListLeadsQuery
	if !h.bindQuery(c, &q) {
		return
	}

	var stage *domain.Stage
	if q.WorkflowStatus != "" {
		parsed, _ := domain.ParseStage(q.WorkflowStatus)
		stage = &parsed
	}

	leads, total, err := h.workflow.List(c.Request.Context(), stage, q.Limit, q.Offset)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.LeadListResponse{
		Items:  h.presenter.Leads(leads),
		Total:  total,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
}

func (h *Handler) Transition(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}
	var req transport.TransitionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	target, _ := domain.ParseStage(req.TargetStage)
	lead, err := h.workflow.Transition(c.Request.Context(), id, target, httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, h.presenter.Lead(lead))
}

func (h *Handler) Dispose(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}
	var req transport.DispositionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.workflow.Dispose(c.Request.Context(), id, workflow.Disposition(req.Action), httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, h.presenter.Lead(lead))
}

func (h *Handler) RecordAttempt(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}
	var req transport.RecordAttemptRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.retry.RecordAttempt(c.Request.Context(), id, req.Notes, *req.Override, httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, h.presenter.Lead(lead))
}

func (h *Handler) RetryQueue(c *gin.Context) {
	var q transport.RetryQueueQuery
	if !h.bindQuery(c, &q) {
		return
	}

	entries, truncated, err := h.retry.Queue(c.Request.Context(), retry.QueueFilter{DueOnly: q.Due, EscalatedOnly: q.Escalated})
	if httpkit.HandleError(c, err) {
		return
	}

	leads := make([]domain.Lead, len(entries))
	for i, e := range entries {
		leads[i] = e.Lead
	}
	httpkit.OK(c, transport.RetryQueueResponse{
		Items:               h.presenter.Leads(leads),
		EscalationThreshold: h.retry.Threshold(),
		Truncated:           truncated,
	})
}

func (h *Handler) ScheduleFollowUp(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}
	var req transport.ScheduleFollowUpRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.scheduling.ScheduleFollowUp(c.Request.Context(), id, scheduling.FollowUpParams{
		When:               req.Schedule(),
		Notes:              req.Notes,
		SMSReminderEnabled: req.SMSReminderEnabled,
	}, httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, h.presenter.Lead(lead))
}

func (h *Handler) ScheduleAssessment(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}
	var req transport.ScheduleAssessmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.scheduling.ScheduleAssessment(c.Request.Context(), id, req.Schedule(), httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, h.presenter.Lead(lead))
}

func (h *Handler) CompleteAssessment(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}
	var req transport.CompleteAssessmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.scheduling.CompleteAssessment(c.Request.Context(), id, req.InterestedLevel, httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, h.presenter.Lead(lead))
}

func (h *Handler) FollowUpAgenda(c *gin.Context) {
	h.agenda(c, h.scheduling.FollowUpAgenda)
}

func (h *Handler) AssessmentAgenda(c *gin.Context) {
	h.agenda(c, h.scheduling.AssessmentAgenda)
}

func (h *Handler) agenda(c *gin.Context, load func(context.Context, *domain.ScheduleCategory) ([]scheduling.AgendaEntry, bool, error)) {
	var q transport.AgendaQuery
	if !h.bindQuery(c, &q) {
		return
	}

	var category *domain.ScheduleCategory
	if q.Category != "" {
		cat := domain.ScheduleCategory(q.Category)
		category = &cat
	}

	entries, truncated, err := load(c.Request.Context(), category)
	if httpkit.HandleError(c, err) {
		return
	}

	leads := make([]domain.Lead, len(entries))
	for i, e := range entries {
		leads[i] = e.Lead
	}
	httpkit.OK(c, transport.AgendaResponse{Items: h.presenter.Leads(leads), Truncated: truncated})
}

func (h *Handler) SendReminder(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}
	var req transport.SendReminderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.reminders.SendReminder(c.Request.Context(), id, req.Message, httpkit.ActorID(c)); httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusAccepted, transport.ReminderResponse{LeadID: id, Sent: true})
}

func (h *Handler) ListActivity(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(map[string]string{"limit": "min"}))
			return
		}
		limit = parsed
	}

	items, err := h.workflow.ListActivity(c.Request.Context(), id, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, h.presenter.Activity(items))
}

func (h *Handler) Stats(c *gin.Context) {
	snap, err := h.stats.Stats(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, h.presenter.Stats(snap))
}

func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgInvalidRequest))
		return false
	}
	return h.validate(c, req)
}

func (h *Handler) bindQuery(c *gin.Context, q any) bool {
	if err := c.ShouldBindQuery(q); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgInvalidRequest))
		return false
	}
	return h.validate(c, q)
}

func (h *Handler) validate(c *gin.Context, v any) bool {
	if err := h.val.Struct(v); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(validator.Fields(err)))
		return false
	}
	return true
}

func parseLeadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.Validation(msgInvalidLeadID))
		return uuid.Nil, false
	}
	return id, true
}
