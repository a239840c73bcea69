package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/navikt/helse-spokelse-sub000/internal/auth"
	"github.com/navikt/helse-spokelse-sub000/internal/config"
	"github.com/navikt/helse-spokelse-sub000/internal/handler"
	"github.com/navikt/helse-spokelse-sub000/internal/repository"
	"github.com/navikt/helse-spokelse-sub000/internal/service"
	"github.com/navikt/helse-spokelse-sub000/internal/source"
	"github.com/navikt/helse-spokelse-sub000/pkg/response"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg, "spokelse-server")

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	vedtakRepo := repository.NewVedtakRepository(db, repository.GenerationCutoffs{
		OldEnd:          config.GetCutoffDate(cfg.Cutoff.OldGenerationEnd),
		IntermediateEnd: config.GetCutoffDate(cfg.Cutoff.IntermediateGenerationEnd),
	})
	settlementRepo := repository.NewSettlementRepository(db)

	// Initialize sources
	tokens := auth.NewTokenCache(cfg.Auth.TokenEndpoint, cfg.Auth.ClientID, cfg.Auth.ClientSecret, nil)
	legacySource := source.NewLegacySource(cfg.Legacy.BaseURL, cfg.Legacy.Scope, tokens, cfg.GetLegacyTimeout(), logger)
	sources := []source.Source{
		legacySource,
		source.NewGenerationSource(vedtakRepo),
		source.NewEventSource(settlementRepo, config.GetCutoffDate(cfg.Cutoff.EventStoreTrustedAfter)),
	}

	// Initialize service and handlers
	aggregationService := service.NewAggregationService(sources, legacySource, vedtakRepo, settlementRepo, logger)
	payoutHandler := handler.NewPayoutHandler(aggregationService, logger)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Setup routes
	router := setupRoutes(payoutHandler, healthHandler, cfg, logger)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}

func newLogger(cfg *config.Config, app string) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", app).Logger().Level(level)
	if cfg.Logging.Format == "console" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.GetConnMaxLifetime())

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(payoutHandler *handler.PayoutHandler, healthHandler *handler.HealthHandler, cfg *config.Config, logger zerolog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.RequestIDMiddleware)
	router.Use(response.LoggingMiddleware(logger))
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "no such endpoint")
	})

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes; every endpoint maps to exactly one required role
	api := router.PathPrefix("/api/v1").Subrouter()
	secret := cfg.Auth.JWTSecret

	api.Handle("/payout-periods",
		auth.Require(secret, auth.RoleReadPayouts)(http.HandlerFunc(payoutHandler.PayoutPeriods))).Methods("POST")
	api.Handle("/payouts",
		auth.Require(secret, auth.RoleReadPayouts)(http.HandlerFunc(payoutHandler.Payouts))).Methods("POST")
	api.Handle("/basis",
		auth.Require(secret, auth.RoleReadBasis)(http.HandlerFunc(payoutHandler.Basis))).Methods("GET")

	return router
}
