package main

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mettagrid/internal/controlapi"
	"mettagrid/internal/events"
	"mettagrid/internal/logger"
	"mettagrid/internal/middleware"
)

// main wires the control HTTP API named in SPEC_FULL.md §6, grounded on
// the teacher's cmd/server/main.go: a gin router, a repository-style
// manager, and handlers registered under /api/v1. Dropped relative to the
// teacher: CORS (gin-contrib/cors) and swagger (swaggo) generation, since
// neither is part of this module's wired dependency set.
func main() {
	logLevel := os.Getenv("SIMCORE_LOG_LEVEL")
	var logLevelPtr *string
	if logLevel != "" {
		logLevelPtr = &logLevel
	}
	if err := logger.Init(logLevelPtr); err != nil {
		panic(err)
	}
	defer logger.Sync()

	bus := events.NewInMemoryEventBus()
	defer bus.Close()

	manager := controlapi.NewManager(bus)
	handler := controlapi.NewHandler(manager)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.ZapLogger())
	r.Use(middleware.ZapRecovery())

	r.GET("/health", handler.HealthCheck)

	api := r.Group("/api/v1")
	{
		api.POST("/episodes", handler.CreateEpisode)
		api.GET("/episodes/:id/stats", handler.GetStats)
		api.GET("/episodes/:id/objects", handler.GetObjects)
		api.DELETE("/episodes/:id", handler.DeleteEpisode)
		api.GET("/episodes/:id/stream", handler.StreamEpisode)
		api.GET("/episodes/:id/events", handler.StreamEvents)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Get().Info("simcore control API starting", zap.String("port", port))
	if err := r.Run(":" + port); err != nil && err != http.ErrServerClosed {
		logger.Get().Fatal("server failed to start", zap.Error(err))
	}
}
