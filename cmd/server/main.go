// Package main runs the dashboard as a plain HTTP server: the same routes
// and handlers as the desktop app, without the window.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/api"
	"portfolio-tracker/internal/app"
	"portfolio-tracker/observability"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("invalid configuration", "error", err)
	}

	observability.InitLoggerWithLevel(cfg.Log.Format == "json", observability.ParseLevel(cfg.Log.Level))
	observability.InitMetrics()
	if envErr != nil {
		observability.Debug("no .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.Open(ctx, cfg)
	application.Startup(ctx)

	handler := api.NewHandler(application, cfg)
	router := api.NewRouter(handler, cfg)

	timeout := time.Duration(cfg.HTTP.RequestTimeoutSeconds) * time.Second
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout + 5*time.Second,
	}

	go func() {
		observability.Info("starting server", "port", cfg.HTTP.Port, "url", fmt.Sprintf("http://localhost:%d", cfg.HTTP.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observability.Fatal("server error", "error", err)
		}
	}()

	<-ctx.Done()
	observability.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Error("server forced to shutdown", "error", err)
	}

	application.Shutdown(shutdownCtx)
	observability.Info("server stopped")
}
