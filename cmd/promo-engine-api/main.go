package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/scandelicious/promo-engine/cmd/promo-engine-api/handlers"
	"github.com/scandelicious/promo-engine/internal/config"
	"github.com/scandelicious/promo-engine/internal/genai"
	"github.com/scandelicious/promo-engine/internal/matching"
	"github.com/scandelicious/promo-engine/internal/observability"
	"github.com/scandelicious/promo-engine/internal/profile"
	"github.com/scandelicious/promo-engine/internal/promoindex"
	"github.com/scandelicious/promo-engine/internal/ratelimit"
	"github.com/scandelicious/promo-engine/internal/recommend"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("index_host", cfg.PromoIndex.Host).
		Float64("score_threshold", cfg.Matching.ScoreThreshold).
		Msg("Starting promo engine API")

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	defer db.Close()

	indexClient, err := promoindex.NewClient(promoindex.Config{
		Host:        cfg.PromoIndex.Host,
		APIKey:      cfg.PromoIndex.APIKey,
		Namespace:   cfg.PromoIndex.Namespace,
		RerankModel: cfg.PromoIndex.RerankModel,
		Timeout:     cfg.PromoIndex.Timeout,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create promo index client")
	}

	generator, err := genai.NewClient(genai.Config{
		APIKey:      cfg.Generation.APIKey,
		Model:       cfg.Generation.Model,
		BaseURL:     cfg.Generation.BaseURL,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
		Timeout:     cfg.Generation.Timeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create generation client")
	}

	matcher := matching.NewMatcher(indexClient, matching.Config{
		SearchTopK:     cfg.Matching.SearchTopK,
		RerankTopN:     cfg.Matching.RerankTopN,
		ScoreThreshold: cfg.Matching.ScoreThreshold,
		ItemDelay:      cfg.Matching.ItemDelay,
	}, logger)

	profiles := profile.NewRepository(db)
	orchestrator := matching.NewOrchestrator(profiles, matcher, logger)
	service := recommend.NewService(orchestrator, generator, logger)

	var quota handlers.Quota
	if cfg.RateLimit.Enabled {
		limiter, err := ratelimit.NewLimiter(ratelimit.Config{
			Addr:             cfg.Redis.Addr,
			Password:         cfg.Redis.Password,
			DB:               cfg.Redis.DB,
			RequestsPerMonth: cfg.RateLimit.RequestsPerMonth,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer limiter.Close()
		quota = limiter
	}

	promoHandler := handlers.NewPromoHandler(logger, service, quota)
	router := NewRouter(logger, cfg, promoHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
}
