package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/squad-optimizer/internal/api"
	"github.com/stitts-dev/squad-optimizer/internal/api/handlers"
	"github.com/stitts-dev/squad-optimizer/internal/optimizer"
	"github.com/stitts-dev/squad-optimizer/internal/services"
	"github.com/stitts-dev/squad-optimizer/internal/solver"
	"github.com/stitts-dev/squad-optimizer/internal/websocket"
	"github.com/stitts-dev/squad-optimizer/pkg/cache"
	"github.com/stitts-dev/squad-optimizer/pkg/config"
	"github.com/stitts-dev/squad-optimizer/pkg/database"
	"github.com/stitts-dev/squad-optimizer/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	log := logger.WithService("squad-optimizer")
	log.WithFields(logrus.Fields{
		"environment": cfg.Env,
		"port":        cfg.Port,
		"engine":      cfg.SolverEngine,
	}).Info("Starting squad optimizer")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if _, err := optimizer.ParseFormations(cfg.Formations); err != nil {
		log.Fatalf("Invalid FORMATIONS: %v", err)
	}

	engine, err := solver.NewEngine(cfg.SolverEngine, cfg.CBCPath)
	if err != nil {
		log.Fatalf("Failed to create solver engine: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Run history and cache are optional; a nil interface disables them.
	var (
		history  handlers.RunStore
		store    handlers.ResultStore
		dbPing   handlers.Pinger
		cachePin handlers.Pinger
	)

	if cfg.DatabaseURL != "" {
		db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		runHistory := services.NewRunHistory(db, logger.WithComponent("run_history"))
		if err := runHistory.Migrate(); err != nil {
			log.Fatalf("Failed to migrate run history: %v", err)
		}
		history = runHistory
		dbPing = db
	} else {
		log.Info("DATABASE_URL not set, run history disabled")
	}

	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, result cache disabled")
		} else {
			defer client.Close()
			resultCache := cache.NewResultCache(client, cfg.CacheTTL, logger.WithComponent("result_cache"))
			store = resultCache
			cachePin = resultCache
		}
	}

	hub := websocket.NewHub(logger.WithComponent("websocket_hub"))
	go hub.Run(ctx)

	router := api.NewRouter(api.Handlers{
		Optimization: handlers.NewOptimizationHandler(engine, store, history, hub, cfg, logger.WithComponent("optimization_handler")),
		Enumeration:  handlers.NewEnumerationHandler(store, cfg, logger.WithComponent("enumeration_handler")),
		Runs:         handlers.NewRunsHandler(history, logger.WithComponent("runs_handler")),
		Health:       handlers.NewHealthHandler(engine.Name(), dbPing, cachePin),
		WebSocket:    hub.HandleWebSocket,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down squad optimizer...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Forced shutdown: %v", err)
	}
	log.Info("Squad optimizer exited")
}
