// Package main contains the entrypoint for the chatlens analysis service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chatlens/chatlens/internal/analysis"
	"github.com/chatlens/chatlens/internal/api"
	"github.com/chatlens/chatlens/internal/app"
	"github.com/chatlens/chatlens/internal/app/tasks"
	"github.com/chatlens/chatlens/internal/config"
	"github.com/chatlens/chatlens/internal/database"
	"github.com/chatlens/chatlens/internal/jobs"
	"github.com/chatlens/chatlens/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all application components (config, logger, store,
// pipeline, orchestrator, HTTP server, scheduler), handles graceful shutdown,
// and returns an exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.Format == "json")
	log.Info("Logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	var store database.Store
	switch cfg.Database.Backend {
	case "sqlite":
		db, err := database.NewDB(cfg.Database.Path)
		if err != nil {
			log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
			return 1
		}
		defer database.CloseDB(db)
		store = database.NewStore(db, log)
	case "memory":
		store = database.NewMemoryStore()
	default:
		log.Error("Unknown database backend", "backend", cfg.Database.Backend)
		return 1
	}

	pipeline := analysis.NewPipeline(analysis.Options{
		KeywordTopK:       cfg.Analysis.KeywordTopK,
		TopSenders:        cfg.Analysis.TopSenders,
		TopEmojis:         cfg.Analysis.TopEmojis,
		DefaultLanguage:   cfg.Analysis.DefaultLanguage,
		MinDetectLength:   cfg.Analysis.MinDetectLength,
		MinMatchRatio:     cfg.Analysis.MinMatchRatio,
		FailedLineSample:  cfg.Jobs.FailedLineSample,
		VaderWeight:       cfg.Sentiment.VaderWeight,
		PolarityWeight:    cfg.Sentiment.PolarityWeight,
		PositiveThreshold: cfg.Sentiment.PositiveThreshold,
		NegativeThreshold: cfg.Sentiment.NegativeThreshold,
	}, log)

	orchestrator := jobs.NewOrchestrator(store, pipeline, log)
	handler := api.NewHandler(orchestrator, store, cfg.Server.MaxBodyBytes, log)
	router := api.NewRouter(handler, log)

	sched, err := app.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	service := app.New(cfg, router, sched, orchestrator, log)

	log.Info("Starting chatlens", "addr", cfg.Server.ListenAddr, "backend", cfg.Database.Backend)
	runErr := service.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Service stopped due to error", "error", runErr)
		return 1
	}

	log.Info("Service stopped gracefully")
	return 0
}
