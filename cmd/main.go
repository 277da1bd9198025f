package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/courseloom/scorm-backend/internal/db"
	"github.com/courseloom/scorm-backend/internal/handlers"
	"github.com/courseloom/scorm-backend/internal/logger"
	"github.com/courseloom/scorm-backend/internal/middleware"
	"github.com/courseloom/scorm-backend/internal/observability"
	"github.com/courseloom/scorm-backend/internal/realtime"
	"github.com/courseloom/scorm-backend/internal/realtime/bus"
	"github.com/courseloom/scorm-backend/internal/repos"
	"github.com/courseloom/scorm-backend/internal/server"
	"github.com/courseloom/scorm-backend/internal/services"
	"github.com/courseloom/scorm-backend/internal/storage"
	"github.com/courseloom/scorm-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Tracing
	ctx := context.Background()
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "scorm-backend",
		Environment: utils.GetEnv("ENVIRONMENT", "development", log),
		Version:     utils.GetEnv("SERVICE_VERSION", "dev", log),
	})
	if otelShutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	contentRoot := utils.GetEnv("CONTENT_ROOT", "./data/content", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Content store
	log.Info("Setting up content store from main...")
	store, err := storage.NewLocalStore(contentRoot, log)
	if err != nil {
		log.Fatal("Could not init content store", "error", err)
	}

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	packageRepo := repos.NewScormPackageRepo(thePG, log)
	scoRepo := repos.NewScormScoRepo(thePG, log)
	trackingRepo := repos.NewScormTrackingRepo(thePG, log)
	interactionRepo := repos.NewScormInteractionRepo(thePG, log)

	// Progress bus: Redis when configured, otherwise in-process only.
	log.Info("Setting up progress bus from main...")
	var progressBus bus.Bus
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		progressBus, err = bus.NewRedisBus(log)
		if err != nil {
			log.Warn("Redis progress bus unavailable, falling back to local bus", "error", err)
			progressBus = bus.NewLocalBus()
		}
	} else {
		progressBus = bus.NewLocalBus()
	}
	defer progressBus.Close()

	// Forward bus events into the hub feeding SSE progress streams.
	progressHub := realtime.NewHub()
	if err := progressBus.StartForwarder(ctx, progressHub.Broadcast); err != nil {
		log.Warn("Progress forwarder unavailable, streams disabled", "error", err)
	}

	// Services
	log.Info("Setting up Services from main...")
	avatarService, err := services.NewAvatarService(log, store)
	if err != nil {
		log.Warn("Could not init AvatarService, avatars disabled", "error", err)
		avatarService = nil
	}
	authService := services.NewAuthService(thePG, log, userRepo, avatarService, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second)
	importService := services.NewPackageImportService(thePG, log, store, packageRepo, scoRepo)
	packageService := services.NewPackageService(thePG, log, store, packageRepo, scoRepo)
	trackingService := services.NewTrackingService(thePG, log, scoRepo, packageRepo, trackingRepo, progressBus)
	interactionService := services.NewInteractionService(thePG, log, scoRepo, trackingRepo, interactionRepo, progressBus)
	progressService := services.NewProgressService(thePG, log, packageRepo, scoRepo, trackingRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	packageHandler := handlers.NewPackageHandler(log, importService, packageService, progressService)
	trackingHandler := handlers.NewTrackingHandler(log, trackingService, interactionService)
	progressHandler := handlers.NewProgressHandler(log, progressHub)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	var origins []string
	if raw := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	router := server.NewRouter(server.RouterConfig{
		ServiceName:     "scorm-backend",
		AllowedOrigins:  origins,
		AuthHandler:     authHandler,
		AuthMiddleware:  authMiddleware,
		PackageHandler:  packageHandler,
		TrackingHandler: trackingHandler,
		ProgressHandler: progressHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server failed", "error", err)
	}
}
