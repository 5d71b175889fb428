package router

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noah-isme/institute-fee-api/internal/handler"
	"github.com/noah-isme/institute-fee-api/internal/service"
	"github.com/noah-isme/institute-fee-api/pkg/config"
)

func routerForTest() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(Dependencies{
		Config:        &config.Config{Env: config.EnvDevelopment, APIPrefix: "/api/v1"},
		Logger:        zap.NewNop(),
		Metrics:       service.NewMetricsService(),
		Families:      handler.NewFamilyHandler(nil, nil, nil),
		Students:      handler.NewStudentHandler(nil, nil),
		Catalog:       handler.NewCatalogHandler(nil),
		Subscriptions: handler.NewSubscriptionHandler(nil),
		Allocations:   handler.NewAllocationHandler(nil),
		Payments:      handler.NewPaymentHandler(nil),
		Statements:    handler.NewStatementHandler(nil),
		AuthHandler:   handler.NewAuthHandler(nil),
	})
}

func routeSet(r *gin.Engine) map[string]bool {
	set := make(map[string]bool)
	for _, rt := range r.Routes() {
		set[rt.Method+" "+rt.Path] = true
	}
	return set
}

func TestRouterRegistersAPIRoutes(t *testing.T) {
	routes := routeSet(routerForTest())

	for _, want := range []string{
		"POST /api/v1/auth/login",
		"GET /api/v1/families",
		"GET /api/v1/families/:id/fees",
		"GET /api/v1/families/:id/statement",
		"GET /api/v1/students/:id/fees",
		"PUT /api/v1/courses/:id/fee-structure",
		"POST /api/v1/subscriptions",
		"PATCH /api/v1/subscriptions/:id/end",
		"POST /api/v1/allocations/materialize",
		"POST /api/v1/allocations/materialize/async",
		"GET /api/v1/allocations/summary",
		"POST /api/v1/payments",
		"GET /api/v1/statements/:token",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
}

func TestStatementRouteIsGetOnly(t *testing.T) {
	routes := routeSet(routerForTest())

	assert.True(t, routes["GET /api/v1/families/:id/statement"])
	assert.False(t, routes["POST /api/v1/families/:id/statement"])
}

func TestOperationalEndpointsRegistered(t *testing.T) {
	routes := routeSet(routerForTest())

	assert.True(t, routes["GET /health"])
	assert.True(t, routes["GET /ready"])
	assert.True(t, routes["GET /metrics"])
}
