package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"plantdoctor/internal/app"
	"plantdoctor/internal/config"
	"plantdoctor/internal/handler"
	"plantdoctor/internal/logging"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Plant Doctor diagnosis service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	gin.SetMode(cfg.Server.GinMode)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	application, err := app.New(startCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}

	diagnosisHandler := handler.NewDiagnosisHandler(application.Diagnosis)
	catalogHandler := handler.NewCatalogHandler(application.Catalog)
	embeddingHandler := handler.NewEmbeddingHandler(application.Backfill)
	feedbackHandler := handler.NewFeedbackHandler(application.Diagnosis)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitList(cfg.Server.AllowedOrigins)
	corsConfig.AllowMethods = splitList(cfg.Server.AllowedMethods)
	corsConfig.AllowHeaders = splitList(cfg.Server.AllowedHeaders)
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if err := application.Repo.Ping(c.Request.Context()); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":        status,
			"service":       "plantdoctor",
			"version":       Version,
			"model_enabled": application.Vision.IsEnabled(),
		})
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		// Diagnosis endpoints
		apiV1.POST("/diagnose", diagnosisHandler.Diagnose)
		apiV1.POST("/diagnose/stream", diagnosisHandler.DiagnoseStream)
		apiV1.POST("/symptoms/extract", diagnosisHandler.ExtractSymptoms)

		// Catalogue
		apiV1.GET("/symptoms", catalogHandler.ListSymptoms)
		apiV1.GET("/plant-types", catalogHandler.ListPlantTypes)
		apiV1.GET("/diseases", catalogHandler.ListDiseases)
		apiV1.GET("/diseases/:id", catalogHandler.GetDisease)

		// Cache maintenance
		apiV1.POST("/cache/cleanup", diagnosisHandler.CleanupCache)
		apiV1.POST("/cache/embeddings", embeddingHandler.Backfill)
		apiV1.POST("/feedback", feedbackHandler.Submit)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	if err := application.Close(shutdownCtx); err != nil {
		logger.Error("Failed to close application", zap.Error(err))
	}
	logger.Info("Server stopped")
}

// requestLogger logs one line per request
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
