package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/navikt/helse-spokelse-sub000/internal/auth"
	"github.com/navikt/helse-spokelse-sub000/internal/config"
	"github.com/navikt/helse-spokelse-sub000/internal/listener"
	"github.com/navikt/helse-spokelse-sub000/internal/repository"
	"github.com/navikt/helse-spokelse-sub000/internal/service"
	"github.com/navikt/helse-spokelse-sub000/internal/source"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg, "spokelse-listener")

	db, err := initDB(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	redisClient := initRedis(cfg)
	defer redisClient.Close()

	vedtakRepo := repository.NewVedtakRepository(db, repository.GenerationCutoffs{
		OldEnd:          config.GetCutoffDate(cfg.Cutoff.OldGenerationEnd),
		IntermediateEnd: config.GetCutoffDate(cfg.Cutoff.IntermediateGenerationEnd),
	})
	settlementRepo := repository.NewSettlementRepository(db)

	tokens := auth.NewTokenCache(cfg.Auth.TokenEndpoint, cfg.Auth.ClientID, cfg.Auth.ClientSecret, nil)
	legacySource := source.NewLegacySource(cfg.Legacy.BaseURL, cfg.Legacy.Scope, tokens, cfg.GetLegacyTimeout(), logger)
	sources := []source.Source{
		legacySource,
		source.NewGenerationSource(vedtakRepo),
		source.NewEventSource(settlementRepo, config.GetCutoffDate(cfg.Cutoff.EventStoreTrustedAfter)),
	}

	aggregationService := service.NewAggregationService(sources, legacySource, vedtakRepo, settlementRepo, logger)
	reconcilerService := service.NewReconcilerService(settlementRepo, vedtakRepo, logger)
	healthCheckService := service.NewHealthCheckService(
		settlementRepo,
		cfg.HealthCheck.Hour,
		cfg.HealthCheck.Minute,
		time.Weekday(cfg.HealthCheck.ReportDay),
		logger,
	)

	consumer := listener.New(redisClient, cfg.Stream, reconcilerService, aggregationService, healthCheckService, logger)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info().Msg("shutting down listener")
		cancel()
	}()

	logger.Info().Str("stream", cfg.Stream.Inbound).Str("group", cfg.Stream.ConsumerGroup).Msg("listener starting")
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("listener stopped")
	}

	logger.Info().Msg("listener exited")
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
