package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stitts-dev/squad-optimizer/internal/api/handlers"
	"github.com/stitts-dev/squad-optimizer/internal/api/middleware"
)

// Handlers groups everything the router mounts. Hub is optional.
type Handlers struct {
	Optimization *handlers.OptimizationHandler
	Enumeration  *handlers.EnumerationHandler
	Runs         *handlers.RunsHandler
	Health       *handlers.HealthHandler
	WebSocket    gin.HandlerFunc
}

// NewRouter builds the gin engine with every route.
func NewRouter(h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/optimize", h.Optimization.Optimize)
		apiV1.POST("/optimize/formation", h.Optimization.OptimizeFormation)
		apiV1.POST("/enumerate", h.Enumeration.Enumerate)
		apiV1.GET("/runs", h.Runs.ListRuns)
	}

	if h.WebSocket != nil {
		router.GET("/ws/runs/:run_id", h.WebSocket)
	}

	router.GET("/health", h.Health.GetHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
