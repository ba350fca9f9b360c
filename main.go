package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	database "github.com/zOOGal/Routed/app/db"
	appLogger "github.com/zOOGal/Routed/app/logger"
	"github.com/zOOGal/Routed/app/tracer"
	"github.com/zOOGal/Routed/config"
	"github.com/zOOGal/Routed/internal/api/canonical"
	"github.com/zOOGal/Routed/internal/api/detours"
	"github.com/zOOGal/Routed/internal/api/social"
	"github.com/zOOGal/Routed/internal/memory"
	"github.com/zOOGal/Routed/internal/places"
	"github.com/zOOGal/Routed/internal/router"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metricsHandler := tracer.InitTracingAndMetrics()

	// --- Database Setup ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	// Run migrations before initializing the main pool
	err = database.RunMigrations(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- Collaborator clients ---
	placesClient := places.NewGoogleClient(os.Getenv("GOOGLE_PLACES_API_KEY"), logger)
	cachedDetailer := places.NewCachedDetailer(placesClient)
	retriever := memory.NewPGRetriever(pool, logger)

	extractor, err := social.NewGeminiExtractor(ctx, os.Getenv("GOOGLE_GEMINI_API_KEY"), cfg.Extraction.Model, logger)
	if err != nil {
		logger.Error("Failed to initialize extraction client", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Feature wiring ---
	canonicalRepo := canonical.NewRepository(pool, logger)
	canonicalService := canonical.NewService(canonicalRepo, placesClient, logger)
	canonicalHandler := canonical.NewHandler(canonicalService, logger)

	socialRepo := social.NewRepository(pool, logger)
	socialService := social.NewService(socialRepo, extractor, canonicalService, logger)
	socialHandler := social.NewHandler(socialService, logger)

	bufferKm := cfg.Detours.CorridorBufferKm
	if bufferKm <= 0 {
		bufferKm = 2.0
	}
	detoursRepo := detours.NewRepository(pool, logger)
	detoursService := detours.NewService(detoursRepo, cachedDetailer, retriever, bufferKm, logger)
	detoursHandler := detours.NewHandler(detoursService, logger)

	// --- Router Setup ---
	apiRouter := router.SetupRouter(&router.Config{
		SocialHandler:    socialHandler,
		CanonicalHandler: canonicalHandler,
		DetoursHandler:   detoursHandler,
		Pool:             pool,
	})

	r := chi.NewMux()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5, "application/json"))
	r.Mount("/", apiRouter)

	srv := &http.Server{
		Addr:         cfg.Server.HTTPPort,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metricsHandler)
	metricsSrv := &http.Server{
		Addr:    cfg.Handlers.Prometheus.Port,
		Handler: metricsMux,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", srv.Addr))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting metrics server", slog.String("address", metricsSrv.Addr))
		err := metricsSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()

		logger.Info("Shutdown signal received, starting graceful shutdown...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
		}
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server graceful shutdown failed", slog.Any("error", err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger() *slog.Logger {
	var logger *slog.Logger
	env := os.Getenv("APP_ENV")

	if env == "development" || env == "" {
		// Colored logs for development
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		// JSON logs for production or other environments
		jsonOpts := &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: false,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
