package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "interview-question-bank/internal/api"
	"interview-question-bank/internal/bootstrap"
	"interview-question-bank/internal/config"
	"interview-question-bank/internal/logging"
	"interview-question-bank/internal/producer"
	"interview-question-bank/internal/queue"
	"interview-question-bank/internal/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "json")
		boot.Fatal().Err(err).Msg("load config")
	}
	logger := logging.Component(logging.New(cfg.LogLevel, cfg.LogFormat), "api")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open store")
	}
	defer st.Close()

	q := queue.NewRedisQueue(cfg)
	defer q.Close()
	if err := q.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("connect redis")
	}

	var limiter api.Limiter
	if cfg.RateLimitCapacity > 0 {
		limiter = ratelimit.NewTokenBucket(q.Client(), cfg.RateLimitCapacity, cfg.RateLimitRefill, time.Hour)
	}

	prod := producer.NewService(st, st, q, producer.Options{
		QueueName:    cfg.QueueName,
		DefaultLimit: cfg.DefaultQuestionLimit,
	}, logging.Component(logger, "producer"))

	auth := api.NewAuthenticator(cfg.AuthJWTSecret)
	if auth == nil {
		logger.Warn().Msg("AUTH_JWT_SECRET not set, API is unauthenticated")
	}

	server := api.New(cfg, st, q, prod, limiter, auth, logger)
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().Str("port", cfg.HTTPPort).Str("store", cfg.StoreDriver).Msg("api listening")
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}
