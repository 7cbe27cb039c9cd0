package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "studio_portal_backend/internal/http"
	"studio_portal_backend/platform/httpkit"
	"studio_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testConfig struct{}

func (testConfig) GetHTTPAddr() string      { return ":0" }
func (testConfig) GetCORSAllowAll() bool    { return false }
func (testConfig) GetCORSOrigins() []string { return nil }
func (testConfig) GetCORSAllowCreds() bool  { return false }
func (testConfig) GetRateLimitRPS() float64 { return 100 }
func (testConfig) GetRateLimitBurst() int   { return 100 }

type pingModule struct{}

func (pingModule) Name() string { return "ping" }

func (pingModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

type downHealth struct{}

func (downHealth) Ping(context.Context) error { return errors.New("down") }

func TestRouterScopesModuleRoutes(t *testing.T) {
	engine := New(&apphttp.App{Config: testConfig{}, Logger: logger.Discard(), Modules: []apphttp.Module{pingModule{}}})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set(httpkit.HeaderStudioID, uuid.NewString())
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get(httpkit.HeaderRequestID))
}

func TestReadinessReflectsHealth(t *testing.T) {
	engine := New(&apphttp.App{Config: testConfig{}, Logger: logger.Discard(), Health: downHealth{}})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
