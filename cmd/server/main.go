package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/site-sync/internal/api"
	"github.com/Kamar-Folarin/site-sync/internal/app"
	"github.com/Kamar-Folarin/site-sync/internal/config"
	"github.com/Kamar-Folarin/site-sync/internal/observability"
)

// @title Site Sync API
// @version 1.0
// @description Control API for the WordPress/WooCommerce cache sync and content batch processor
// @contact.name API Support
// @contact.url http://github.com/Kamar-Folarin
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /api/v1
func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	logger.SetOutput(os.Stdout)

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found")
	}

	// Load configuration with defaults
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatalf("Invalid log level %q: %v", cfg.LogLevel, err)
	}
	logger.SetLevel(level)
	if level < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	if len(cfg.Sites) == 0 {
		logger.Warn("No sites configured")
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}

	observability.StartMetricsServer(cfg.MetricsAddr)

	handler := api.NewHandler(application.Sites, application.Syncer, application.Store, application.Batch, application.Fetcher, logger)
	router := api.SetupRouter(handler, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Event streams and waited syncs outlive a normal write timeout
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Start background sync of the active site
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if application.Scheduler != nil {
		if err := application.Scheduler.Start(ctx); err != nil {
			logger.Fatalf("Failed to start scheduler: %v", err)
		}
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if application.Syncer.CancelSync() {
		logger.Info("Cancelled running sync")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	if err := observability.StopMetricsServer(shutdownCtx); err != nil {
		logger.Errorf("Metrics server shutdown failed: %v", err)
	}
	cancel()
	if err := application.Close(); err != nil {
		logger.Errorf("Failed to close resources: %v", err)
	}
	logger.Info("Server exited properly")
}
