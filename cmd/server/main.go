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

	"github.com/chorushq/chorus/internal/adapters"
	"github.com/chorushq/chorus/internal/api"
	"github.com/chorushq/chorus/internal/config"
	"github.com/chorushq/chorus/internal/database"
	"github.com/chorushq/chorus/internal/pipeline"
	"github.com/chorushq/chorus/internal/store"
	"github.com/chorushq/chorus/internal/streams"
	"github.com/chorushq/chorus/internal/summarizer"
	"github.com/chorushq/chorus/internal/worker"
)

func main() {
	cfg := config.Load()
	logger := worker.NewLogger(cfg.LogLevel, cfg.LogFormat, "api")

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err.Error())
		os.Exit(1)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		logger.Error("Failed to run migrations", "error", err.Error())
		os.Exit(1)
	}

	if cfg.Env == "development" {
		if err := database.SeedDevData(db); err != nil {
			logger.Warn("Failed to seed dev data", "error", err.Error())
		}
	}

	if err := worker.InitClient(cfg.RedisURL); err != nil {
		logger.Error("Failed to initialize task client", "error", err.Error())
		os.Exit(1)
	}
	defer worker.CloseClient()

	// Summary events are best effort; without a publisher the pipelines
	// simply skip them.
	publisher, err := streams.NewPublisher(cfg.RedisURL)
	if err != nil {
		logger.Warn("Streams publisher unavailable, summary events disabled", "error", err.Error())
		publisher = nil
	} else {
		defer publisher.Close()
	}

	stopWorker, err := worker.Start(cfg, db, publisher)
	if err != nil {
		logger.Error("Failed to start worker", "error", err.Error())
		os.Exit(1)
	}
	defer stopWorker()

	stopScheduler, err := worker.StartScheduler(cfg)
	if err != nil {
		logger.Error("Failed to start scheduler", "error", err.Error())
		os.Exit(1)
	}
	defer stopScheduler()

	var events pipeline.EventPublisher
	if publisher != nil {
		events = publisher
	}
	sum := summarizer.New(summarizer.NewGenerator(cfg, logger), logger)

	router := api.NewRouter(api.Deps{
		DB:          db,
		Feedback:    store.NewFeedbackStore(db),
		Summaries:   store.NewSummaryStore(db),
		Runs:        store.NewRunStore(db),
		Registry:    adapters.NewRegistry(),
		Aggregation: pipeline.NewAggregationPipeline(store.NewSummaryStore(db), sum, events, logger),
		Dispatch:    worker.EnqueueProcessFeedback,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// POST /api/aggregate runs the aggregation pipeline in-request.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server listening", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err.Error())
	}
}
