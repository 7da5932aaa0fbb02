package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/contentloop/contentloop/internal/adapters/cache"
	"github.com/contentloop/contentloop/internal/adapters/database"
	"github.com/contentloop/contentloop/internal/adapters/queue"
	"github.com/contentloop/contentloop/internal/api/handlers"
	"github.com/contentloop/contentloop/internal/api/routes"
	"github.com/contentloop/contentloop/internal/application/services"
	"github.com/contentloop/contentloop/internal/domain/providers"
	"github.com/contentloop/contentloop/internal/domain/repositories"
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

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)
	logger := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
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
			logger.Info().Msg("OpenTelemetry initialized")
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
	logger.Info().Msg("PostgreSQL client initialized")

	// Continue without Redis if unavailable; caching and background analysis
	// degrade rather than block startup.
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize Redis client, running degraded")
		redisClient = nil
	} else {
		defer redisClient.Close()
		logger.Info().Msg("Redis client initialized")
	}

	var cacheProvider providers.CacheProvider
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	// Wrap the signal store with caching when Redis is available
	var signalRepo repositories.SignalRepository = database.NewSignalAdapter(pgClient)
	if cacheProvider != nil {
		signalRepo = database.NewCachedSignalAdapter(signalRepo, cacheProvider, cfg.Routing.SignalCacheTTLSeconds)
	}

	runRepo := database.NewGenerationRunAdapter(pgClient)
	feedbackRepo := database.NewFeedbackAdapter(pgClient)
	decisionRepo := database.NewRouteDecisionAdapter(pgClient)

	evaluator := services.NewOutcomeEvaluator()

	// Without Redis the queue is process-local, so analysis has to run inside
	// this process too or queued tasks would never be picked up.
	var analysisQueue providers.AnalysisQueue
	if redisClient != nil {
		analysisQueue = queue.NewRedisQueue(redisClient, cfg.Routing.AnalysisQueue)
	} else {
		analysisQueue = queue.NewMemoryQueue(0)
		promptRepo := database.NewPromptEffectivenessAdapter(pgClient)
		analyzer := services.NewPatternAnalyzerService(runRepo, feedbackRepo, signalRepo, promptRepo, decisionRepo, evaluator, metrics)
		worker := services.NewAnalysisWorker(analysisQueue, analyzer, signalRepo, cfg.Routing.SignalRetention, 1, *logger)
		go worker.Run(ctx)
		logger.Warn().Msg("analysis queue running in-memory with an in-process worker, queued tasks are lost on restart")
	}
	defer analysisQueue.Close()

	policy := services.NewRoutePolicyService(services.DefaultPolicyTable())
	adaptive := services.NewAdaptiveRouterService(
		policy, signalRepo, runRepo,
		cfg.Routing.SignalRecency, cfg.Routing.SignalQueryLimit, metrics,
	)
	planner := services.NewBatchPlannerService(policy)
	generation := services.NewGenerationService(runRepo, feedbackRepo, decisionRepo, signalRepo, analysisQueue, evaluator)

	routingHandler := handlers.NewRoutingHandler(policy, adaptive, planner, generation)
	runHandler := handlers.NewRunHandler(generation)

	router := routes.NewRouter(routingHandler, runHandler, metrics)

	server := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
