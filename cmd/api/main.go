package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/edstack/storacct/internal/account"
	"github.com/edstack/storacct/internal/cleanup"
	"github.com/edstack/storacct/internal/config"
	"github.com/edstack/storacct/internal/ledger"
	"github.com/edstack/storacct/internal/library"
	"github.com/edstack/storacct/internal/logger"
	"github.com/edstack/storacct/internal/objstore"
	"github.com/edstack/storacct/internal/server"
	"github.com/edstack/storacct/internal/storage"
	"github.com/edstack/storacct/internal/upload"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logg, err := logger.Init()
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer logg.Sync()

	cfg, err := config.Load()
	if err != nil {
		logg.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logg.Fatal("connect postgres", zap.Error(err))
	}
	defer dbPool.Close()

	minioClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		logg.Fatal("connect minio", zap.Error(err))
	}

	for _, bucket := range []string{cfg.MinIO.PersistentBucket, cfg.MinIO.TemporalBucket} {
		if err := storage.EnsureBucket(ctx, minioClient, bucket, cfg.MinIO.Region); err != nil {
			logg.Fatal("ensure bucket", zap.String("bucket", bucket), zap.Error(err))
		}
	}

	backend := objstore.NewBackend(minioClient)
	accountRepo := account.NewRepository(dbPool)
	ledgerRepo := ledger.NewRepository(dbPool)
	libraryRepo := library.NewRepository(dbPool)

	uploadService := upload.NewService(
		accountRepo,
		ledgerRepo,
		backend,
		upload.Buckets{Persistent: cfg.MinIO.PersistentBucket, Temporal: cfg.MinIO.TemporalBucket},
		cfg.Upload.PresignTTL,
		cfg.Upload.MaxDeclaredSize,
		logg,
	)
	cleanupService := cleanup.NewService(backend, ledgerRepo, accountRepo, cfg.MinIO.PersistentBucket, logg)
	libraryService := library.NewService(libraryRepo, cleanupService, backend, cfg.MinIO.PersistentBucket, cfg.Upload.PresignTTL)

	router := server.NewRouter(server.Dependencies{
		Config:         cfg,
		Logger:         logg,
		DB:             dbPool,
		ObjectStore:    minioClient,
		AccountRepo:    accountRepo,
		UploadService:  uploadService,
		LibraryService: libraryService,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logg.Info("storacct API listening", zap.String("address", cfg.Server.Address()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logg.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("shutdown error", zap.Error(err))
	}
}
