// Package leads provides the lead workflow bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/leads/handler"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/retry"
	"leadflow_backend/internal/leads/scheduling"
	"leadflow_backend/internal/leads/stats"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/internal/leads/workflow"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/redis/go-redis/v9"
)

// ModuleConfig combines the config interfaces the leads module reads.
type ModuleConfig interface {
	config.WorkflowConfig
	config.CacheConfig
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates and initializes the leads module with all its dependencies.
// cache may be nil, in which case stats are computed on every read.
func NewModule(
	store repository.LeadStore,
	eventBus events.Bus,
	val *validator.Validator,
	cfg ModuleConfig,
	reminders handler.ReminderSender,
	cache redis.UniversalClient,
	log *logger.Logger,
) (*Module, error) {
	if err := transport.RegisterValidations(val); err != nil {
		return nil, err
	}

	workflowSvc := workflow.New(store, eventBus, cfg, log)
	retrySvc, err := retry.New(store, eventBus, cfg, log)
	if err != nil {
		return nil, err
	}
	schedulingSvc := scheduling.New(store, eventBus, cfg)

	statsSvc := stats.New(store, log, stats.WithCache(cache, cfg.GetStatsCacheTTL()))
	statsSvc.RegisterHandlers(eventBus)

	presenter := transport.Presenter{
		Location:  cfg.GetBusinessLocation(),
		Threshold: cfg.GetEscalationThreshold(),
	}
	h := handler.New(workflowSvc, retrySvc, schedulingSvc, statsSvc, reminders, presenter, val)

	return &Module{handler: h}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// All leads routes require authentication
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
