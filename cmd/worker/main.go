package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/config"
	"github.com/yukikurage/workspace-api/internal/database"
	"github.com/yukikurage/workspace-api/internal/logging"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/services"
	"github.com/yukikurage/workspace-api/internal/webhooks"
)

// The worker generates tasks from due recurring schedules and sends queued
// webhook deliveries, once per WORKER_INTERVAL.
func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.GinMode != gin.ReleaseMode)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	dispatcher := webhooks.NewDispatcher(
		repository.NewWebhookRepository(db),
		&http.Client{Timeout: cfg.WebhookTimeout},
		cfg.WebhookBatch,
	)
	activity := services.NewActivityService(
		repository.NewStore[models.ActivityLog](db),
		repository.NewStore[models.AuditLog](db),
		dispatcher,
	)
	recurring := services.NewRecurringService(
		repository.NewRecurringRepository(db),
		repository.NewTaskRepository(db),
		activity,
		authz.NewEvaluator(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Dur("interval", cfg.WorkerInterval).Msg("worker starting")

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		tick(ctx, recurring, dispatcher, cfg.RecurringBatch)

		select {
		case <-ctx.Done():
			log.Info().Msg("worker stopped")
			return
		case <-ticker.C:
		}
	}
}

func tick(ctx context.Context, recurring *services.RecurringService, dispatcher *webhooks.Dispatcher, batch int) {
	res, err := recurring.RunDue(ctx, time.Now(), batch)
	if err != nil {
		log.Error().Err(err).Msg("recurring run failed")
	} else if res.Generated+res.Deactivated+res.Failed > 0 {
		log.Info().
			Int("generated", res.Generated).
			Int("deactivated", res.Deactivated).
			Int("failed", res.Failed).
			Msg("recurring tasks processed")
	}

	sent, err := dispatcher.ProcessDue(ctx)
	if err != nil {
		log.Error().Err(err).Msg("webhook dispatch failed")
	} else if sent.Delivered+sent.Retrying+sent.Failed > 0 {
		log.Info().
			Int("delivered", sent.Delivered).
			Int("retrying", sent.Retrying).
			Int("failed", sent.Failed).
			Msg("webhook deliveries processed")
	}
}
