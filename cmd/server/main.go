package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shoe-uugan/ai-chat/internal/chat"
	"github.com/shoe-uugan/ai-chat/internal/models"
	"github.com/shoe-uugan/ai-chat/pkg/config"
	"github.com/shoe-uugan/ai-chat/pkg/di"
	"github.com/shoe-uugan/ai-chat/pkg/logger"
	"github.com/shoe-uugan/ai-chat/pkg/observability"
	"github.com/shoe-uugan/ai-chat/pkg/router"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg := config.Get()

	// Initialize database
	db, err := config.NewDB()
	if err != nil {
		log.Fatalf("Failed to setup database: %v", err)
	}

	// Run migrations
	if err := db.AutoMigrate(&models.User{}, &models.Character{}, &models.Message{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Set up tracing and metrics
	tracerShutdown := observability.SetupTracing("ai-chat")
	observability.SetupPrometheusMetrics()

	// Build the dependency container
	container, err := di.New(db, &di.Config{
		LoggerConfig: logger.Config{
			Level:     cfg.Logging.Level,
			JSON:      cfg.Logging.Format == "json",
			Output:    os.Stdout,
			AddSource: false,
		},
		JWTSecret: cfg.JWT.Secret,
		JWTExpiry: cfg.JWT.Expiry,
	})
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}

	// Set up the router and routes
	r := router.New(container)
	r.SetupRoutes()

	if schemaPath := os.Getenv("OPENAPI_SCHEMA_PATH"); schemaPath != "" {
		r.AddOpenAPIValidation(schemaPath)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r.Engine,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		container.Logger.Info("Server starting", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	container.Logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server forced to shutdown", "error", err)
	}

	if client, ok := container.Generator.(*chat.GeminiClient); ok {
		if err := client.Close(); err != nil {
			container.Logger.Error("Failed to close generation client", "error", err)
		}
	}
	if tracerShutdown != nil {
		tracerShutdown()
	}

	container.Logger.Info("Server exited")
}
