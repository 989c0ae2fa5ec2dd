package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"genmedia/internal/adapter/repo"
	"genmedia/internal/http/handlers"
	"genmedia/internal/http/httpapi"
	"genmedia/internal/infra"
	"genmedia/internal/infra/firebase"
	"genmedia/internal/middleware"
	"genmedia/internal/providers/vertex"
	"genmedia/internal/service"
	"genmedia/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	if err := repo.EnsureSchema(ctx, dbpool); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}

	var blobs storage.BlobStore
	if cfg.StoragePath != "" {
		blobs, err = storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init filesystem storage")
		}
		logger.Info().Str("path", cfg.StoragePath).Msg("using filesystem blob storage")
	} else {
		gcs, err := storage.NewGCSStore(ctx, cfg.GCSBucket)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init GCS storage")
		}
		defer gcs.Close()
		blobs = gcs
	}

	provider, err := vertex.NewClient(ctx, vertex.Options{
		ProjectID:    cfg.ProjectID,
		Location:     cfg.Location,
		ImageModel:   cfg.GeminiImageModel,
		TextModel:    cfg.GeminiTextModel,
		VideoModel:   cfg.VeoModel,
		UpscaleModel: cfg.UpscaleModel,
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init vertex client")
	}

	assetRepo := repo.NewAssetRepository(dbpool)
	workflowRepo := repo.NewWorkflowRepository(dbpool)

	assets := service.NewAssetService(assetRepo, blobs, logger)
	workflows := service.NewWorkflowService(workflowRepo, assets, logger)
	generation := service.NewGenerationService(provider, assets, logger)

	app := handlers.NewApp(cfg, logger, assets, workflows, generation)

	verifier := firebase.NewVerifier(cfg.FirebaseProjectID)
	allowed := middleware.AllowList(cfg.AllowedEmails)

	router := httpapi.NewRouter(app, verifier, allowed)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
