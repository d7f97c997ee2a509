// Package main is the entry point for the jewellery bill and gold rate tracker API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"gitlab.com/yelinaung/jewellery-tracker/internal/api"
	"gitlab.com/yelinaung/jewellery-tracker/internal/bills"
	"gitlab.com/yelinaung/jewellery-tracker/internal/config"
	"gitlab.com/yelinaung/jewellery-tracker/internal/database"
	"gitlab.com/yelinaung/jewellery-tracker/internal/filestore"
	"gitlab.com/yelinaung/jewellery-tracker/internal/goldrate"
	"gitlab.com/yelinaung/jewellery-tracker/internal/investments"
	"gitlab.com/yelinaung/jewellery-tracker/internal/logger"
	"gitlab.com/yelinaung/jewellery-tracker/internal/notify"
	"gitlab.com/yelinaung/jewellery-tracker/internal/pdfrender"
	"gitlab.com/yelinaung/jewellery-tracker/internal/repository"
	"gitlab.com/yelinaung/jewellery-tracker/internal/telemetry"
	"gitlab.com/yelinaung/jewellery-tracker/internal/vision"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("jewellery-tracker %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Configure(cfg.LogLevel, cfg.LogFormat)

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.OTelExporter, "jewellery-tracker", version)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to set up telemetry")
	}
	defer func() {
		if err := shutdownTelemetry(context.WithoutCancel(ctx)); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Log.Info().Msg("Database initialized successfully")

	store, err := newFileStore(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to set up bill storage")
	}

	pipeline := bills.NewPipeline(store, pdfrender.NewFitzRenderer(), newExtractor(ctx, cfg))

	investmentSvc := investments.NewService(
		repository.NewInvestmentRepository(pool),
		investments.PgxTx(pool),
		store,
	)

	source, sourceName := newRateSource(cfg)
	rateSvc := goldrate.NewService(repository.NewRateRepository(pool), source, sourceName)

	if cfg.RateSchedulerEnabled {
		scheduler := goldrate.NewScheduler(rateSvc, newNotifier(cfg), cfg.RateSnapshotHour, cfg.RateSnapshotMinute)
		go scheduler.Run(ctx)
	} else {
		logger.Log.Info().Msg("Gold rate scheduler is disabled")
	}

	server := api.NewServer(pipeline, investmentSvc, rateSvc, api.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		UploadRatePerMin:   cfg.UploadRatePerMin,
		MaxUploadBytes:     cfg.MaxUploadBytes,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Log.Info().Msg("Shutting down...")
		shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer done()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	logger.Log.Info().Str("addr", cfg.HTTPAddr).Str("version", version).Msg("HTTP server started")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Error().Err(err).Msg("HTTP server failed")
		return
	}
	logger.Log.Info().Msg("HTTP server stopped")
}

func newFileStore(ctx context.Context, cfg *config.Config) (filestore.Store, error) {
	switch cfg.StorageBackend {
	case config.StorageGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		logger.Log.Info().Str("bucket", cfg.GCSBucket).Msg("Using GCS bill storage")
		return filestore.NewGCSStore(client, cfg.GCSBucket), nil
	default:
		logger.Log.Info().Str("dir", cfg.BillsDir).Msg("Using local bill storage")
		return filestore.NewLocalStore(cfg.BillsDir)
	}
}

// newExtractor builds the configured vision client. A missing credential does
// not stop the server; uploads report it instead.
func newExtractor(ctx context.Context, cfg *config.Config) vision.Extractor {
	var (
		extractor vision.Extractor
		err       error
	)
	switch cfg.VisionProvider {
	case config.VisionProviderGemini:
		extractor, err = vision.NewGeminiClient(ctx, vision.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.VisionTimeout,
		})
	default:
		extractor, err = vision.NewOpenAIClient(vision.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.VisionTimeout,
		})
	}
	if err != nil {
		logger.Log.Warn().Err(err).Str("provider", cfg.VisionProvider).Msg("Vision model unavailable, bill uploads will fail")
		return vision.Unconfigured{Err: err}
	}
	return extractor
}

func newRateSource(cfg *config.Config) (goldrate.Source, string) {
	if cfg.RateSource == config.RateSourceFX {
		return goldrate.NewFXSource(cfg.FXBaseURL, cfg.RateFetchTimeout), config.RateSourceFX
	}
	return goldrate.NewGoodreturnsScraper(cfg.GoodreturnsURL, cfg.RateFetchTimeout), config.RateSourceGoodreturns
}

func newNotifier(cfg *config.Config) goldrate.Notifier {
	if !cfg.TelegramEnabled() {
		return notify.Noop{}
	}
	n, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Telegram notifier unavailable")
		return notify.Noop{}
	}
	logger.Log.Info().Str("chat_hash", logger.HashChatID(cfg.TelegramChatID)).Msg("Telegram rate notifications enabled")
	return n
}
