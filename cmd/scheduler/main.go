package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/navikt/helse-spokelse-sub000/internal/config"
	"github.com/navikt/helse-spokelse-sub000/internal/domain"
)

// The scheduler publishes one tick per minute; the health-check engine in the
// listener reads the tick's own timestamp and self-filters to its configured
// daily firing time.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg, "spokelse-scheduler")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds())

	_, err = c.AddFunc("0 * * * * *", func() {
		if err := publishTick(context.Background(), redisClient, cfg.Stream.Inbound, time.Now()); err != nil {
			logger.Error().Err(err).Msg("tick publish failed")
		}
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule tick job")
	}

	c.Start()
	logger.Info().Str("stream", cfg.Stream.Inbound).Msg("scheduler started")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down scheduler")
	c.Stop()
	logger.Info().Msg("scheduler stopped")
}

func publishTick(ctx context.Context, rdb *redis.Client, stream string, now time.Time) error {
	payload, err := json.Marshal(domain.TickEvent{Timestamp: now})
	if err != nil {
		return err
	}
	return rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"type": domain.EventTypeTick,
			"data": string(payload),
		},
	}).Err()
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
