package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"interview-question-bank/internal/audit"
	"interview-question-bank/internal/bootstrap"
	"interview-question-bank/internal/config"
	"interview-question-bank/internal/generator"
	"interview-question-bank/internal/logging"
	"interview-question-bank/internal/models"
	"interview-question-bank/internal/queue"
	"interview-question-bank/internal/telemetry"
	workerproc "interview-question-bank/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "json")
		boot.Fatal().Err(err).Msg("load config")
	}
	logger := logging.Component(logging.New(cfg.LogLevel, cfg.LogFormat), "worker")

	ctx, cancel := context.WithCancel(context.Background())
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

	llm, err := bootstrap.NewLLM(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("init ai provider")
	}
	gen := generator.NewService(llm, st, logging.Component(logger, "generator"))

	sink, closeAudit, err := bootstrap.AuditSinks(ctx, cfg, st)
	if err != nil {
		logger.Fatal().Err(err).Msg("init audit sinks")
	}
	defer func() { _ = closeAudit() }()
	recorder := audit.NewBestEffort(sink, logging.Component(logger, "audit"))

	processor := workerproc.NewProcessor(st, q, logger)
	processor.SetHandlerTimeout(cfg.JobHandlerTimeout)
	handler := workerproc.NewQuestionRequestHandler(st, gen, recorder, logger)
	if err := processor.RegisterHandler(models.JobTypeQuestionRequest, handler.Handle); err != nil {
		logger.Fatal().Err(err).Msg("register handler")
	}

	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: telemetry.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	defer metricsServer.Close()

	ctrl := processor.Start(ctx, workerproc.Options{
		QueueName:    cfg.QueueName,
		PollInterval: cfg.WorkerPollInterval,
		Blocking:     cfg.WorkerBlockingPop,
	})
	logger.Info().
		Str("provider", llm.Name()).
		Str("store", cfg.StoreDriver).
		Dur("handler_timeout", cfg.JobHandlerTimeout).
		Msg("worker started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("stopping, waiting for in-flight job")
		ctrl.Stop()
		ctrl.Wait()
	case <-ctrl.Done():
	}
}
