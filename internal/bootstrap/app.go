package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/timkado/api/forum-service/pkg/safego"
)

// Run starts the application, listens for HTTP requests, and handles graceful shutdown.
// It returns once the server has stopped after SIGINT, SIGTERM or ctx cancellation.
func (a *App) Run(ctx context.Context) error {
	appCfg := a.configProvider.Get()
	a.logger.Info(ctx, "Starting application", "service_name", appCfg.App.ServiceName, "version", appCfg.App.Version)

	a.registerRoutes(ctx)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownDone := safego.Go(ctx, a.logger, "SignalListenerAndGracefulShutdown", func(ctx context.Context) {
		<-ctx.Done()
		a.logger.Info(context.WithoutCancel(ctx), "Shutdown requested, initiating graceful shutdown...")

		shutdownTimeout := 30 * time.Second
		if secs := a.configProvider.Get().App.ShutdownTimeoutSeconds; secs > 0 {
			shutdownTimeout = time.Duration(secs) * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error(shutdownCtx, "HTTP server graceful shutdown failed", "error", err.Error())
		}
		a.logger.Info(shutdownCtx, "HTTP server shut down.")
	})

	a.logger.Info(ctx, fmt.Sprintf("HTTP server listening on port %d", appCfg.Server.HTTPPort))
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error(ctx, "HTTP server ListenAndServe error", "error", err.Error())
		stop()
		<-shutdownDone
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-shutdownDone
	a.logger.Info(context.WithoutCancel(ctx), "Application shut down gracefully.")
	return nil
}

func (a *App) registerRoutes(ctx context.Context) {
	a.httpServeMux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		a.logger.Debug(r.Context(), "Health check endpoint hit")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"OK"}`)
	})
	a.httpServeMux.HandleFunc("GET /ready", a.ready)

	a.httpServeMux.Handle("GET /metrics", promhttp.Handler())
	a.logger.Info(ctx, "Prometheus metrics endpoint registered at /metrics")

	a.handlers.Register(a.httpServeMux)
	a.logger.Info(ctx, "Forum routes registered")
}

func (a *App) ready(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ready := true
	dependenciesStatus := make(map[string]string, len(a.readiness))
	for _, c := range a.readiness {
		if err := c.Check(r.Context()); err != nil {
			dependenciesStatus[c.Name] = "unavailable"
			ready = false
			a.logger.Warn(r.Context(), "Readiness check failed", "dependency", c.Name, "error", err.Error())
			continue
		}
		dependenciesStatus[c.Name] = "connected"
	}

	response := struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}{
		Dependencies: dependenciesStatus,
	}

	if ready {
		response.Status = "READY"
		w.WriteHeader(http.StatusOK)
	} else {
		response.Status = "NOT_READY"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		a.logger.Error(r.Context(), "Failed to encode readiness response", "error", err.Error())
	}
}
