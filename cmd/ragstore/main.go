package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/aqstack/ragstore/internal/ai"
	"github.com/aqstack/ragstore/internal/config"
	"github.com/aqstack/ragstore/internal/embedcache"
	"github.com/aqstack/ragstore/internal/filestore"
	"github.com/aqstack/ragstore/internal/handler"
	"github.com/aqstack/ragstore/internal/job"
	"github.com/aqstack/ragstore/internal/middleware"
	"github.com/aqstack/ragstore/internal/repo"
	"github.com/aqstack/ragstore/internal/schedule"
	"github.com/aqstack/ragstore/internal/service"
	"github.com/aqstack/ragstore/internal/store"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "ragstore",
		Short: "ragstore document ingestion and retrieval server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run ragstore server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			db, err := repo.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := repo.ApplyMigrations(db); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, db)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, db *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
	)

	docRepo := repo.NewDocumentRepo(db)
	chunkRepo := repo.NewChunkRepo(db)
	cacheRepo := repo.NewEmbeddingCacheRepo(db)
	docStore := store.New(db, docRepo, chunkRepo)

	files, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	providerArgs := cfg.Embedding.Data
	provider, err := ai.NewProvider(cfg.Embedding.Provider, providerArgs)
	if err != nil {
		return fmt.Errorf("init embedding provider: %w", err)
	}
	embedder := ai.NewEmbedder(provider, ai.Options{
		Model:       cfg.Embedding.Model,
		Dimensions:  cfg.Embedding.Dimensions,
		Timeout:     time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
		MaxAttempts: cfg.Embedding.MaxAttempts,
		RetryDelay:  time.Duration(cfg.Embedding.RetryDelaySeconds) * time.Second,
	})
	embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)
	if cfg.Embedding.CacheSize > 0 {
		ttl := time.Duration(cfg.Embedding.CacheTTLHours) * time.Hour
		embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.Embedding.CacheSize, ttl)
	}

	ingestService := service.NewIngestService(docStore, files, embedder, cfg.Ingest)
	retrievalService := service.NewRetrievalService(docStore, embedder, cfg.Retrieval)
	contextAssembler := service.NewContextAssembler(retrievalService, cfg.Retrieval)

	deps := handler.RouterDeps{
		Documents:     handler.NewDocumentHandler(ingestService, files, cfg.Ingest),
		Search:        handler.NewSearchHandler(retrievalService, contextAssembler),
		AdmitInterval: time.Duration(cfg.Ingest.AdmitIntervalSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ingestService.Start(ctx)

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewRequeueJob(ingestService), "*/5 * * * *"); err != nil {
		return fmt.Errorf("schedule requeue job: %w", err)
	}
	if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(cacheRepo, cfg.Embedding.CacheMaxAgeDays), "0 3 * * *"); err != nil {
		return fmt.Errorf("schedule cache cleanup job: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	if err := ingestService.Wait(); err != nil {
		logutil.GetLogger(context.Background()).Error("ingest workers stopped with error", zap.Error(err))
	}
	return nil
}
