// Package app assembles the HTTP server and background scheduler and runs
// them until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/chatlens/chatlens/internal/config"
	"github.com/chatlens/chatlens/internal/jobs"
)

// App owns the long-running components of the service.
type App struct {
	logger       *slog.Logger
	cfg          *config.Config
	server       *http.Server
	scheduler    *Scheduler
	orchestrator *jobs.Orchestrator
}

// New creates an App serving handler on the configured listen address.
func New(cfg *config.Config, handler http.Handler, scheduler *Scheduler, orchestrator *jobs.Orchestrator, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		logger: logger.With("component", "app"),
		cfg:    cfg,
		server: &http.Server{
			Addr:         cfg.Server.ListenAddr,
			Handler:      handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		scheduler:    scheduler,
		orchestrator: orchestrator,
	}
}

// Run starts the scheduler and the HTTP server and blocks until ctx is
// cancelled or a component fails. Shutdown drains in-flight requests within
// the configured timeout and waits for running jobs and tasks to finish.
func (a *App) Run(ctx context.Context) error {
	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("HTTP server shutdown failed", "error", err)
		}
		if err := a.scheduler.Stop(); err != nil {
			a.logger.Error("Scheduler shutdown failed", "error", err)
		}

		// Let in-flight analyses reach a terminal state so no job is
		// stranded in running.
		a.orchestrator.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	a.logger.Info("Shutdown complete")
	return nil
}
