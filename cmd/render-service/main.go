package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jitenkr2030/VisualVerse-sub004/internal/api/handler"
	"github.com/jitenkr2030/VisualVerse-sub004/internal/api/router"
	"github.com/jitenkr2030/VisualVerse-sub004/internal/config"
	"github.com/jitenkr2030/VisualVerse-sub004/internal/engine"
	"github.com/jitenkr2030/VisualVerse-sub004/internal/events"
	"github.com/jitenkr2030/VisualVerse-sub004/internal/history"
	"github.com/jitenkr2030/VisualVerse-sub004/internal/renderer"
	"github.com/jitenkr2030/VisualVerse-sub004/shared/logger"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("RENDER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/render-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting render service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Terminal-job sinks: history archive and event publisher, both optional
	var sinks []engine.Sink

	var historyStore *history.Store
	if cfg.Database.Enabled {
		historyStore, err = history.Connect(&history.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Database,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize job history store: %w", err)
		}
		sinks = append(sinks, historyStore)
		appLogger.Info("Job history archive enabled")
	}

	var eventPublisher *events.Publisher
	if cfg.RabbitMQ.Enabled {
		eventPublisher, err = events.NewPublisher(&events.Config{
			Host:          cfg.RabbitMQ.Host,
			Port:          cfg.RabbitMQ.Port,
			User:          cfg.RabbitMQ.User,
			Password:      cfg.RabbitMQ.Password,
			VHost:         cfg.RabbitMQ.VHost,
			Exchange:      cfg.RabbitMQ.Exchange,
			RoutingPrefix: cfg.RabbitMQ.RoutingPrefix,
			RetryAttempts: cfg.RabbitMQ.RetryAttempts,
			RetryInterval: cfg.RabbitMQ.RetryInterval,
		}, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize event publisher: %w", err)
		}
		sinks = append(sinks, eventPublisher)
		appLogger.Info("Job event publisher enabled",
			slog.String("exchange", cfg.RabbitMQ.Exchange),
		)
	}

	// Render backend client
	sceneRenderer := renderer.NewHTTPRenderer(&renderer.HTTPConfig{
		BaseURL: cfg.Renderer.BaseURL,
		Timeout: cfg.Renderer.Timeout,
	})

	// Render engine
	renderEngine, err := engine.New(engine.Config{
		Logger:            appLogger.Logger,
		Renderer:          sceneRenderer,
		MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
		PollInterval:      cfg.Scheduler.PollInterval,
		WaitPollInterval:  cfg.Scheduler.WaitPollInterval,
		Sinks:             sinks,
	})
	if err != nil {
		return fmt.Errorf("failed to create render engine: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := renderEngine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start render engine: %w", err)
	}

	// Periodic cleanup of old terminal jobs
	if cfg.Scheduler.CompletedJobTTL > 0 {
		go runCleanupLoop(ctx, renderEngine, cfg.Scheduler, appLogger.Logger)
	}

	// Initialize router
	r := initRouter(cfg.App.Environment, appLogger.Logger, renderEngine)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Render service is running",
		slog.String("address", addr),
		slog.Int("max_concurrent_jobs", cfg.Scheduler.MaxConcurrentJobs),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down render service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
	}

	// Stop the engine after the HTTP surface is gone
	cancel()
	renderEngine.Stop()

	if historyStore != nil {
		if err := historyStore.Close(); err != nil {
			appLogger.Error("Failed to close history store", slog.Any("error", err))
		}
	}
	if eventPublisher != nil {
		if err := eventPublisher.Close(); err != nil {
			appLogger.Error("Failed to close event publisher", slog.Any("error", err))
		}
	}

	appLogger.Info("Render service shutdown complete")
	return nil
}

// runCleanupLoop periodically purges terminal jobs older than the TTL.
func runCleanupLoop(ctx context.Context, renderEngine *engine.Engine, cfg config.SchedulerConfig, logger *slog.Logger) {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Cleanup loop started",
		slog.Duration("interval", interval),
		slog.Duration("completed_job_ttl", cfg.CompletedJobTTL),
	)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Cleanup loop stopped")
			return
		case <-ticker.C:
			renderEngine.CleanupOldJobs(cfg.CompletedJobTTL)
		}
	}
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, logger *slog.Logger, renderEngine *engine.Engine) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(&handler.Dependencies{
		Logger: logger,
		Engine: renderEngine,
	})
}
