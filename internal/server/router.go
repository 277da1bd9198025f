package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/courseloom/scorm-backend/internal/handlers"
	"github.com/courseloom/scorm-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName     string
	AllowedOrigins  []string
	AuthHandler     *handlers.AuthHandler
	AuthMiddleware  *middleware.AuthMiddleware
	PackageHandler  *handlers.PackageHandler
	TrackingHandler *handlers.TrackingHandler
	ProgressHandler *handlers.ProgressHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "scorm-backend"
	}
	router.Use(otelgin.Middleware(serviceName))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Packages
	api.POST("/packages", cfg.PackageHandler.Upload)
	api.GET("/packages", cfg.PackageHandler.List)
	api.GET("/packages/:id", cfg.PackageHandler.Outline)
	api.DELETE("/packages/:id", cfg.PackageHandler.Delete)
	api.GET("/packages/:id/content/*filepath", cfg.PackageHandler.Content)
	api.GET("/packages/:id/progress", cfg.PackageHandler.Progress)
	api.GET("/progress/stream", cfg.ProgressHandler.Stream)

	// Runtime
	scorm := api.Group("/scorm/:sco")
	scorm.POST("/initialize", cfg.TrackingHandler.Initialize)
	scorm.GET("/value", cfg.TrackingHandler.GetValue)
	scorm.POST("/value", cfg.TrackingHandler.SetValue)
	scorm.POST("/commit", cfg.TrackingHandler.Commit)
	scorm.POST("/terminate", cfg.TrackingHandler.Terminate)
	scorm.POST("/interactions", cfg.TrackingHandler.RecordInteraction)
	scorm.GET("/interactions", cfg.TrackingHandler.ListInteractions)

	return router
}
