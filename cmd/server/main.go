package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Anshuhim02/student-result-api/api/swagger"
	"github.com/Anshuhim02/student-result-api/internal/handler"
	"github.com/Anshuhim02/student-result-api/internal/middleware"
	"github.com/Anshuhim02/student-result-api/internal/repository"
	"github.com/Anshuhim02/student-result-api/internal/service"
	"github.com/Anshuhim02/student-result-api/pkg/cache"
	"github.com/Anshuhim02/student-result-api/pkg/config"
	"github.com/Anshuhim02/student-result-api/pkg/database"
	"github.com/Anshuhim02/student-result-api/pkg/jobs"
	"github.com/Anshuhim02/student-result-api/pkg/logger"
	corsmiddleware "github.com/Anshuhim02/student-result-api/pkg/middleware/cors"
	reqidmiddleware "github.com/Anshuhim02/student-result-api/pkg/middleware/requestid"
	"github.com/Anshuhim02/student-result-api/pkg/storage"
)

// @title Student Result API
// @version 1.0.0
// @description Record, edit, view and export academic exam results
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	uploads, err := storage.NewUploadStorage(cfg.Uploads.Dir, cfg.Uploads.MaxFileSizeBytes, cfg.Uploads.AllowedExtensions)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	userRepo := repository.NewUserRepository(db)
	resultRepo := repository.NewResultRepository(db)

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, dashboard cache disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "student-result-api",
	})

	cleaner := jobs.NewFileCleaner(uploads.Delete, jobs.CleanerConfig{Logger: logr})
	cleaner.Start(context.Background())
	defer cleaner.Stop()

	resultSvc := service.NewResultService(resultRepo, uploads, cacheRepo, cleaner, service.ResultServiceConfig{
		CacheEnabled: cfg.Cache.Enabled && cacheRepo != nil,
		CacheTTL:     cfg.Cache.StatsTTL,
	}, logr)

	exportSvc := service.NewExportService(resultRepo, nil, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	resultHandler := handler.NewResultHandler(resultSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Metrics)
	r.Static("/uploads", uploads.Dir())

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
		}

		protected := api.Group("")
		protected.Use(middleware.JWT(authSvc))
		{
			protected.POST("/auth/logout", authHandler.Logout)
			protected.GET("/auth/me", authHandler.Me)
			protected.PUT("/auth/profile", authHandler.UpdateProfile)

			protected.GET("/results", resultHandler.List)
			protected.POST("/results", resultHandler.Create)
			protected.GET("/results/export/csv", exportHandler.ExportCSV)
			protected.GET("/results/:id", resultHandler.Get)
			protected.PUT("/results/:id", resultHandler.Update)
			protected.DELETE("/results/:id", resultHandler.Delete)
			protected.GET("/results/:id/pdf", exportHandler.ExportPDF)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
