package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AnTengye/brdlayout/config"
	"github.com/AnTengye/brdlayout/handler"
	"github.com/AnTengye/brdlayout/middleware"
	"github.com/AnTengye/brdlayout/pkg/logger"
	"github.com/AnTengye/brdlayout/service"
	"github.com/gin-gonic/gin"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("configuration loaded successfully", "path", configPath)

	// Cancelled on SIGINT/SIGTERM; running pipelines observe it.
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	minioSvc, err := service.NewMinioService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize MINIO service", "error", err)
		os.Exit(1)
	}
	if err := minioSvc.EnsureBucket(rootCtx); err != nil {
		slog.Error("failed to ensure MINIO bucket", "bucket", cfg.Minio.Bucket, "error", err)
		os.Exit(1)
	}

	openaiClient := service.NewOpenAIClient(&cfg.OpenAI)
	store := service.NewJobStore(cfg.Store.MaxJobs)
	store.SetEvictHandler(func(id string) {
		go func() {
			if err := minioSvc.RemovePrefix(rootCtx, service.MockupPrefix(id)); err != nil {
				slog.Warn("failed to remove mockups of evicted job", "job_id", id, "error", err)
			}
		}()
	})

	pipeline := service.NewPipeline(
		service.NewExtractor(),
		service.NewLayoutGenerator(openaiClient, &cfg.OpenAI),
		service.NewImageRenderer(openaiClient, &cfg.OpenAI),
		service.NewImageFetcher(cfg.Render.FetchTimeout),
		minioSvc,
		store,
		cfg.Render.Concurrency,
	)

	authHandler := handler.NewAuthHandler(&cfg.Auth)
	jobHandler := handler.NewJobHandler(rootCtx, store, pipeline, minioSvc)

	gin.SetMode(gin.ReleaseMode)
	router := newRouter(cfg, authHandler, jobHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	<-rootCtx.Done()
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

func newRouter(cfg *config.Config, authHandler *handler.AuthHandler, jobHandler *handler.JobHandler) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = cfg.Server.MaxUploadMB << 20

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger("/health"))
	router.Use(middleware.CORS())
	router.Use(middleware.CacheControl())
	router.Use(middleware.RateLimit(cfg.Server.RateLimit, time.Minute))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api")
	api.POST("/auth/token", authHandler.IssueToken)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.Me)
		protected.POST("/jobs", jobHandler.Upload)
		protected.GET("/jobs", jobHandler.List)
		protected.GET("/jobs/:id", jobHandler.Get)
		protected.GET("/jobs/:id/status", jobHandler.GetStatus)
		protected.GET("/jobs/:id/layouts/:n/image", jobHandler.DownloadImage)
		protected.DELETE("/jobs/:id", jobHandler.Delete)
	}

	return router
}
