package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type testConfig struct{}

func (testConfig) GetHTTPAddr() string        { return ":0" }
func (testConfig) GetCORSAllowAll() bool      { return false }
func (testConfig) GetCORSOrigins() []string   { return []string{"http://localhost:4200"} }
func (testConfig) GetCORSAllowCreds() bool    { return true }
func (testConfig) GetJWTAccessSecret() string { return "test-secret" }

type testHealth struct{ err error }

func (h testHealth) Ping(context.Context) error { return h.err }

type testModule struct{}

func (testModule) Name() string { return "ping" }

func (testModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

func newEngine(health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  testConfig{},
		Logger:  logger.Nop(),
		Health:  health,
		Modules: []apphttp.Module{testModule{}},
	})
}

func TestHealthReportsDatabaseState(t *testing.T) {
	tests := []struct {
		name   string
		health testHealth
		want   int
	}{
		{name: "up", health: testHealth{}, want: http.StatusOK},
		{name: "down", health: testHealth{err: errors.New("connection refused")}, want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newEngine(tt.health).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Fatal("expected request id header")
			}
		})
	}
}

func TestModuleRoutesRequireAuth(t *testing.T) {
	rec := httptest.NewRecorder()
	newEngine(testHealth{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
