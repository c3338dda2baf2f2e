package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notigate/internal/config"
	"notigate/internal/domain/notification"
	"notigate/internal/infra/email"
	"notigate/internal/infra/ratelimit"
	tmpl "notigate/internal/infra/template"
	"notigate/internal/infra/workflow"
	"notigate/internal/router"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded", "port", cfg.Server.Port, "mode", cfg.Server.Mode)

	// ==========================================
	// Dependency Injection (Manual Wiring)
	// ==========================================

	// Template Engine
	engine, err := tmpl.NewEngine()
	if err != nil {
		slog.Error("failed to initialize template engine", "error", err)
		os.Exit(1)
	}
	slog.Info("template engine initialized", "templates", engine.Names())

	// Direct email provider (Resend)
	emailProvider := email.NewResendProvider(cfg.Resend.APIKey, cfg.Resend.FromName)
	if !emailProvider.Configured() {
		slog.Warn("resend API key not set, direct email dispatch will fail with provider_not_configured")
	}

	// Workflow provider (Novu)
	workflowProvider := workflow.NewNovuProvider(cfg.Novu.SecretKey, cfg.Novu.BaseURL)
	if !workflowProvider.Configured() {
		slog.Warn("novu secret key not set, push and workflow email dispatch will fail with provider_not_configured")
	}

	// Recipient rate limiter (optional; requires Redis)
	var limiter notification.RecipientRateLimiter
	if cfg.RecipientRateLimit.MaxPerHour > 0 {
		redisLimiter := ratelimit.NewRedisRecipientLimiter(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.RecipientRateLimit.MaxPerHour,
		)
		defer redisLimiter.Close()
		limiter = redisLimiter
		slog.Info("recipient rate limiter initialized", "max_per_hour", cfg.RecipientRateLimit.MaxPerHour)
	}

	// Push token registry
	tokens := notification.NewTokenRegistry()

	// Dispatcher
	dispatcher := notification.NewDispatcher(
		notification.DispatcherConfig{
			FromAddress: cfg.Resend.FromAddress,
			Workflows: notification.WorkflowIDs{
				Email:        cfg.Novu.EmailWorkflow,
				DelayedEmail: cfg.Novu.DelayedEmailWorkflow,
				Push:         cfg.Novu.PushWorkflow,
			},
		},
		engine,
		emailProvider,
		workflowProvider,
		tokens,
		limiter,
	)

	// Handler
	handler := notification.NewHandler(dispatcher, engine, tokens, notification.ProviderStatus{
		ResendConfigured: emailProvider.Configured(),
		NovuConfigured:   workflowProvider.Configured(),
		FromAddress:      cfg.Resend.FromAddress,
	})

	// Router
	r := router.New(cfg, handler)

	// ==========================================
	// HTTP Server with Graceful Shutdown
	// ==========================================

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Give outstanding requests 10 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}
