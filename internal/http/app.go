// Package http holds the pieces the router is assembled from: the
// dependencies built in main and the contract each route-owning module
// implements.
package http

import (
	"context"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// RouterConfig is the slice of configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs GET /api/health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Module mounts one bounded context's routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the groups a module may mount on. Protected
// sits under V1 behind the JWT gate.
type RouterContext struct {
	V1        *gin.RouterGroup
	Protected *gin.RouterGroup
}

// App is populated by cmd/api and handed to router.New.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker // nil skips the database ping
	Modules []Module
}
