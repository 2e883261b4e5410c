package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"standarr/api"
	"standarr/config"
	"standarr/providers"
	"standarr/providers/registry"
	"standarr/services"
	"standarr/storage"
)

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Datenbank
	db, err := storage.OpenDB(cfg)
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Running database auto-migration...")
	if err := storage.Migrate(db); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Provider
	var source providers.Source
	if cfg.ProviderFixturesDir != "" {
		source = providers.FileSource{Dir: cfg.ProviderFixturesDir}
		logging.Info("Using provider fixture files", zap.String("dir", cfg.ProviderFixturesDir))
	}
	providerRegistry := registry.New(source, logging)
	for _, name := range cfg.ProviderNames() {
		if _, err := providerRegistry.Lookup(name); err != nil {
			logging.Fatal("Invalid ENABLED_PROVIDERS", zap.Error(err))
		}
	}
	logging.Info("Active providers loaded", zap.Strings("providers", cfg.ProviderNames()))

	rules, err := services.LoadRules(cfg.ClassificationRulesFile)
	if err != nil {
		logging.Fatal("Classification rules could not be loaded", zap.Error(err))
	}

	// Anhänge
	var blobs storage.BlobStore
	switch cfg.AttachmentBackend {
	case "s3":
		client, err := storage.NewS3Client(ctx, cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		blobs = storage.NewS3Store(client, cfg.S3Bucket)
	default:
		disk, err := storage.NewDiskStore(cfg.AttachmentsDir)
		if err != nil {
			logging.Fatal("Attachment directory unavailable", zap.Error(err))
		}
		blobs = disk
	}

	// Services
	lists := services.NewListService(db, logging)
	ingestion := services.NewIngestionService(db, providerRegistry, rules, logging)
	if cfg.AutoRegenerateDynamicLists {
		ingestion.Lists = lists
	}
	server := &api.Server{
		Catalog:     services.NewCatalogService(db, logging),
		Lists:       lists,
		Ingestion:   ingestion,
		Exporter:    services.NewExporter(db, cfg.CatalogName),
		Attachments: services.NewAttachmentService(db, blobs, logging),
		Logger:      logging,
	}
	router := api.NewRouter(server)

	// Cron
	cronScheduler := cron.New()
	if _, err := cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled ingestion...", zap.Strings("providers", cfg.ProviderNames()))
		failed := ingestion.RunProviders(ctx, cfg.ProviderNames())
		logging.Info("Scheduled ingestion finished", zap.Int("failed_runs", failed))
	}); err != nil {
		logging.Fatal("Invalid CRON_SCHEDULE", zap.String("schedule", cfg.CronSchedule), zap.Error(err))
	}
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down...")
	<-cronScheduler.Stop().Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server shutdown failed", zap.Error(err))
	}
}
