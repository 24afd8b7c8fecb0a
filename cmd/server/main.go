package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/cache"
	"github.com/yukikurage/workspace-api/internal/config"
	"github.com/yukikurage/workspace-api/internal/constants"
	"github.com/yukikurage/workspace-api/internal/database"
	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/handlers"
	"github.com/yukikurage/workspace-api/internal/logging"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/services"
	"github.com/yukikurage/workspace-api/internal/storage"
	"github.com/yukikurage/workspace-api/internal/webhooks"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.GinMode != gin.ReleaseMode)

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Initialize Gin router
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinLogger(logger))

	// Setup session middleware with Redis
	store, err := redisStore.NewStore(
		10,    // Redis pool size
		"tcp", // network type
		cfg.RedisAddr(),
		"", // username (empty for default user)
		"", // password (empty = no password)
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create redis session store")
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   constants.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	ctx := context.Background()

	// Role snapshots are cached in Redis; the API still works without it
	var actorCache services.ActorCache
	if cfg.ActorCacheTTL > 0 {
		membership, err := cache.Connect(ctx, cfg.RedisConnURL(), cfg.ActorCacheTTL)
		if err != nil {
			log.Warn().Err(err).Msg("actor cache disabled")
		} else {
			defer membership.Close()
			actorCache = membership
		}
	}

	var blobs storage.BlobStore
	minioStore, err := storage.New(cfg)
	switch {
	case errors.Is(err, storage.ErrDisabled):
		log.Info().Msg("object storage not configured, attachments disabled")
	case err != nil:
		log.Fatal().Err(err).Msg("failed to create object storage client")
	default:
		if err := minioStore.EnsureBucket(ctx); err != nil {
			log.Fatal().Err(err).Str("bucket", cfg.StorageBucket).Msg("failed to prepare bucket")
		}
		blobs = minioStore
	}

	// Initialize AI service
	var generator services.TaskGenerator
	if cfg.OpenAIAPIKey != "" {
		generator = services.NewAIService(cfg.OpenAIAPIKey)
	}

	eval := authz.NewEvaluator()
	resolver := graph.NewResolver(db)

	users := repository.NewUserRepository(db)
	workspaces := repository.NewWorkspaceRepository(db)
	tasks := repository.NewTaskRepository(db)
	mentions := repository.NewStore[models.Mention](db)
	webhookRepo := repository.NewWebhookRepository(db)

	// Deliveries are queued here and sent by cmd/worker
	dispatcher := webhooks.NewDispatcher(webhookRepo, nil, cfg.WebhookBatch)
	activity := services.NewActivityService(
		repository.NewStore[models.ActivityLog](db),
		repository.NewStore[models.AuditLog](db),
		dispatcher,
	)
	actors := services.NewActorService(users, workspaces, actorCache)
	taskService := services.NewTaskService(tasks, repository.NewStore[models.Tag](db), resolver, activity, eval, generator)

	// Initialize handlers
	h := handlers.Handlers{
		Auth:      handlers.NewAuthHandler(services.NewAuthService(users)),
		Workspace: handlers.NewWorkspaceHandler(services.NewWorkspaceService(workspaces, repository.NewStore[models.Project](db), actors, activity, eval), eval),
		Task:      handlers.NewTaskHandler(taskService, eval),
		Pipeline: handlers.NewPipelineHandler(services.NewPipelineService(
			repository.NewStore[models.Pipeline](db),
			repository.NewStore[models.PipelineStatus](db),
			repository.NewStore[models.TaskPipeline](db),
			tasks, activity, eval,
		)),
		Wiki: handlers.NewWikiHandler(services.NewWikiService(repository.NewWikiRepository(db), resolver, activity, eval), eval),
		Goal: handlers.NewGoalHandler(services.NewGoalService(repository.NewStore[models.Goal](db), workspaces, activity, eval), eval),
		Comment: handlers.NewCommentHandler(services.NewCommentService(
			repository.NewCommentRepository(db),
			repository.NewStore[models.Reaction](db),
			mentions, users, workspaces, resolver, activity, eval,
		), eval),
		Conversation: handlers.NewConversationHandler(services.NewConversationService(
			repository.NewConversationRepository(db),
			repository.NewStore[models.Message](db),
			mentions, users, workspaces, activity, eval,
		), eval),
		Billing:    handlers.NewBillingHandler(services.NewBillingService(repository.NewStore[models.Invoice](db), activity, eval), eval),
		Setting:    handlers.NewSettingHandler(services.NewSettingService(repository.NewStore[models.Setting](db), activity, eval), eval),
		Webhook:    handlers.NewWebhookHandler(services.NewWebhookService(webhookRepo, activity, eval), eval),
		Recurring:  handlers.NewRecurringHandler(services.NewRecurringService(repository.NewRecurringRepository(db), tasks, activity, eval), eval),
		Preference: handlers.NewPreferenceHandler(services.NewPreferenceService(repository.NewStore[models.UserPreference](db))),
		Attachment: handlers.NewAttachmentHandler(services.NewAttachmentService(repository.NewStore[models.Attachment](db), blobs, resolver, activity, eval)),
		Activity:   handlers.NewActivityHandler(activity, eval),
		Entity:     handlers.NewEntityHandler(services.NewEntityService(resolver, eval)),
	}

	handlers.RegisterRoutes(r, h, actors)

	// Start server
	log.Info().Str("addr", cfg.Addr).Msg("server starting")
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
