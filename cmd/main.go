package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcs-service/mcs_service/internal/api/routes"
	"github.com/mcs-service/mcs_service/internal/infrastructure/config"
	"github.com/mcs-service/mcs_service/internal/infrastructure/di"
	"github.com/mcs-service/mcs_service/internal/workers/platform_monitor"
	"github.com/mcs-service/mcs_service/pkg/logger"
	"github.com/mcs-service/mcs_service/pkg/tracing"
	"github.com/mcs-service/mcs_service/pkg/version"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	info := version.Get()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRate:  cfg.Tracing.SampleRate,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Environment,
		Version:     info.Version,
	}, log.Zap())
	if err != nil {
		log.Fatal("Failed to initialize tracing", "error", err)
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Build dependency injection container
	container, err := di.NewContainer(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to create DI container", "error", err)
	}

	router := routes.SetupRoutes(container)

	var monitor *platform_monitor.Monitor
	if cfg.Monitor.Enabled {
		monitorCfg := platform_monitor.DefaultConfig()
		monitorCfg.Schedule = cfg.Monitor.Schedule
		var sweeper platform_monitor.Sweeper
		if container.MemoryCache != nil {
			sweeper = container.MemoryCache
		}
		monitor = platform_monitor.NewMonitor(container.Aggregator, sweeper, monitorCfg, log.Zap())
		if err := monitor.Start(); err != nil {
			log.Fatal("Failed to start platform monitor", "error", err)
		}
	}

	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Infow("Starting server",
			"addr", server.Addr,
			"environment", cfg.Environment,
			"version", info.Short(),
			"cache_backend", cfg.Scoring.CacheBackend,
			"platform_mode", cfg.Scoring.PlatformMode,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if monitor != nil {
		if err := monitor.Stop(shutdownCtx); err != nil {
			log.Warnw("Error stopping platform monitor", "error", err)
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server forced to shutdown", "error", err)
	}

	if err := container.Close(); err != nil {
		log.Warnw("Error closing backends", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warnw("Error flushing traces", "error", err)
	}

	log.Info("Server exited")
}
