package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"studio/internal/events"
	"studio/internal/export"
	"studio/internal/http/handlers"
	httpapi "studio/internal/http"
	"studio/internal/infra"
	"studio/internal/infra/credentials"
	"studio/internal/providers/genai"
	"studio/internal/providers/media"
	"studio/internal/storage"
	"studio/internal/studio"
)

func main() {
	// Muat .env (opsional)
	_ = godotenv.Load()

	// Konfigurasi & logger
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	// Database opsional: tanpa DATABASE_URL kunci hanya dari env atau runtime.
	var keyStore credentials.KeyStore
	dbpool, err := infra.NewDBPool(ctx, cfg)
	switch {
	case errors.Is(err, infra.ErrNoDatabase):
		logger.Warn().Msg("DATABASE_URL not set; selected api keys are kept in memory")
	case err != nil:
		logger.Fatal().Err(err).Msg("failed to connect database")
	default:
		defer dbpool.Close()
		if err := infra.Migrate(dbpool, logger); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
		keyStore = credentials.NewStore(infra.NewSQLRunner(dbpool, logger))
	}

	selector := credentials.NewSelector(keyStore, cfg.GeminiAPIKey, logger)

	client, err := genai.NewClient(genai.Options{
		Keys:         selector,
		BaseURL:      cfg.GeminiBaseURL,
		TextModel:    cfg.GeminiTextModel,
		ImageModel:   cfg.GeminiImageModel,
		VideoModel:   cfg.GeminiVideoModel,
		PollInterval: cfg.VideoPollInterval,
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init gemini client")
	}

	files, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init storage")
	}
	generator, err := media.NewGenerator(client, files, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init generator")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing asset events")
	}
	defer publisher.Close()

	sessions := studio.NewRegistry(studio.Options{
		Generator:   generator,
		Analyzer:    generator,
		Credentials: selector,
		Publisher:   publisher,
		Logger:      logger,
		CallTimeout: cfg.GenerationTimeout,
	})

	exporter := export.NewExporter(export.NewFetcher(files, nil, cfg.ImageSourceAllowlist), &logger)
	app := handlers.NewApp(*cfg, logger, sessions, selector, exporter)
	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	evictCtx, stopEvict := context.WithCancel(ctx)
	go evictIdle(evictCtx, sessions, cfg.SessionIdleTTL, logger)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	stopEvict()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if err := sessions.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("generation still running at shutdown")
	}
	logger.Info().Msg("server stopped")
}

func evictIdle(ctx context.Context, sessions *studio.Registry, ttl time.Duration, logger infra.Logger) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Evict(ttl); n > 0 {
				logger.Info().Int("evicted", n).Int("remaining", sessions.Len()).Msg("idle sessions evicted")
			}
		}
	}
}
