package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/contentloop/contentloop/internal/adapters/database"
	"github.com/contentloop/contentloop/internal/adapters/queue"
	"github.com/contentloop/contentloop/internal/application/services"
	"github.com/contentloop/contentloop/internal/infrastructure/clients/postgres"
	"github.com/contentloop/contentloop/internal/infrastructure/clients/redis"
	"github.com/contentloop/contentloop/internal/infrastructure/observability"
	"github.com/contentloop/contentloop/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName+"-worker", cfg.Server.Env)
	logger := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName+"-worker", cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			if err := runtime.Start(); err != nil {
				logger.Warn().Err(err).Msg("failed to start runtime instrumentation")
			}
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	if err := pgClient.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure database schema")
	}

	// The worker requires Redis; without the shared queue there is nothing
	// to consume.
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize Redis client")
	}
	defer redisClient.Close()

	analysisQueue := queue.NewRedisQueue(redisClient, cfg.Routing.AnalysisQueue)
	defer analysisQueue.Close()

	runRepo := database.NewGenerationRunAdapter(pgClient)
	feedbackRepo := database.NewFeedbackAdapter(pgClient)
	signalRepo := database.NewSignalAdapter(pgClient)
	promptRepo := database.NewPromptEffectivenessAdapter(pgClient)
	decisionRepo := database.NewRouteDecisionAdapter(pgClient)

	evaluator := services.NewOutcomeEvaluator()
	analyzer := services.NewPatternAnalyzerService(
		runRepo, feedbackRepo, signalRepo, promptRepo, decisionRepo, evaluator, metrics,
	)

	worker := services.NewAnalysisWorker(
		analysisQueue, analyzer, signalRepo,
		cfg.Routing.SignalRetention, cfg.Routing.WorkerCount, *logger,
	)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		logger.Info().Msg("shutting down worker")
		cancel()
	}()

	logger.Info().Int("workers", cfg.Routing.WorkerCount).Msg("starting analysis worker")
	worker.Run(ctx)
}
