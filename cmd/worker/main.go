package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"

	"intelwire/internal/config"
	"intelwire/internal/domain/entity"
	"intelwire/internal/handler/http/respond"
	pgRepo "intelwire/internal/infra/adapter/persistence/postgres"
	"intelwire/internal/infra/db"
	"intelwire/internal/infra/notifier"
	"intelwire/internal/infra/remote"
	workerPkg "intelwire/internal/infra/worker"
	"intelwire/internal/observability/logging"
	"intelwire/internal/observability/tracing"
	"intelwire/internal/repository"
	"intelwire/internal/resilience/circuitbreaker"
	"intelwire/internal/resilience/retry"
	"intelwire/internal/usecase/escalation"
	"intelwire/internal/usecase/intelligence"
	"intelwire/internal/usecase/jobs"
	"intelwire/internal/usecase/notify"
)

func waitForMigrations(logger *slog.Logger, database *sql.DB) {
	const probe = "SELECT 1 FROM sources LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := database.Exec(probe); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
}

func main() {
	slogger := initSlog()
	database := initDatabase(slogger)
	defer func() {
		if err := database.Close(); err != nil {
			slogger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.Setup("intelwire-worker")
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slogger.Error("tracing shutdown failed", slog.Any("error", err))
		}
	}()

	workerMetrics := workerPkg.NewMetrics()
	workerConfig, err := workerPkg.LoadConfigFromEnv(slogger, workerMetrics)
	if err != nil {
		slogger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	slogger.Info("worker configuration loaded",
		slog.String("run_schedule", workerConfig.RunSchedule),
		slog.String("cleanup_schedule", workerConfig.CleanupSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("run_timeout", workerConfig.RunTimeout),
		slog.Int("health_port", workerConfig.HealthPort))

	appConfig, err := config.LoadAppConfig()
	if err != nil {
		slogger.Error("failed to load application configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := buildLogger(pgRepo.NewLogRepo(database), "worker")

	notifyService := buildNotifyService(slogger, logger, appConfig.Notify)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := notifyService.Shutdown(shutdownCtx); err != nil {
			slogger.Error("notify service shutdown failed", slog.Any("error", err))
		}
	}()

	startMetricsServer(ctx, slogger, notifyService)

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, slogger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			slogger.Error("health server failed", slog.Any("error", err))
		}
	}()

	orchestrator := buildOrchestrator(slogger, logger, database, notifyService, appConfig)

	runScheduler(ctx, slogger, schedulerDeps{
		orchestrator: orchestrator,
		logger:       logger,
		workerConfig: workerConfig,
		appConfig:    appConfig,
		metrics:      workerMetrics,
		health:       healthServer,
	})
}

// initSlog initializes the console logger used before the persistent logger
// is available.
func initSlog() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and waits for the API process
// to finish running migrations.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	waitForMigrations(logger, database)
	return database
}

// buildLogger constructs the persistent structured logger backed by the
// logs table.
func buildLogger(store repository.LogRepository, source string) *logging.Logger {
	minLevel := entity.LevelInfo
	if parsed, err := entity.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		minLevel = parsed
	}
	return logging.New(logging.Config{
		MinLevel:   minLevel,
		Source:     source,
		Production: true,
	}, store)
}

// buildNotifyService wires the configured notification channels. When no
// channel is enabled a no-op channel keeps the event surface alive.
func buildNotifyService(slogger *slog.Logger, logger *logging.Logger, cfg config.NotifyConfig) notify.Service {
	var channels []notify.Channel

	if cfg.WebhookEnabled {
		webhookConfig := notifier.WebhookConfig{
			Enabled: true,
			URL:     cfg.WebhookURL,
			Timeout: cfg.WebhookTimeout,
		}
		if err := webhookConfig.Validate(); err != nil {
			slogger.Warn("webhook channel disabled", slog.Any("error", err))
		} else {
			channels = append(channels, notifier.NewWebhookChannel(webhookConfig))
			slogger.Info("webhook channel initialized")
		}
	}

	if len(channels) == 0 {
		channels = append(channels, notifier.NewNoOpChannel())
		slogger.Info("no notification channels enabled")
	}

	return notify.NewService(channels, cfg.MaxConcurrent, logger)
}

// buildOrchestrator assembles the intelligence pipeline with its remote
// backends, resilience layer and persistence.
func buildOrchestrator(slogger *slog.Logger, logger *logging.Logger, database *sql.DB, sink notify.Service, appConfig *config.AppConfig) *intelligence.Orchestrator {
	executor := retry.NewExecutor(logger)
	breakers := circuitbreaker.NewRegistry(circuitbreaker.Config{
		FailureThreshold:  appConfig.Breaker.FailureThreshold,
		ResetTimeout:      appConfig.Breaker.ResetTimeout,
		HalfOpenSuccesses: appConfig.Breaker.HalfOpenSuccesses,
	})

	crawler := createCrawler(slogger, appConfig.Crawl, executor, breakers, logger)
	generator := createGenerator(slogger, appConfig.Generator, executor, breakers, logger)

	jobService := jobs.NewService(pgRepo.NewJobRepo(database), sink, logger)
	escalationService := escalation.NewService(pgRepo.NewEscalationRepo(database), sink, logger)

	return intelligence.NewOrchestrator(
		pgRepo.NewSourceRepo(database),
		pgRepo.NewArticleRepo(database),
		crawler,
		generator,
		jobService,
		escalationService,
		sink,
		logger,
		intelligence.Config{Parallelism: appConfig.Pipeline.Parallelism},
	)
}

// createCrawler selects the crawl backend: the scrape API when configured,
// direct fetching with readability extraction otherwise.
func createCrawler(slogger *slog.Logger, cfg config.CrawlConfig, executor *retry.Executor, breakers *circuitbreaker.Registry, logger *logging.Logger) remote.CrawlProvider {
	if cfg.APIBaseURL != "" {
		slogger.Info("using crawl API", slog.String("base_url", cfg.APIBaseURL))
		return remote.NewCrawlClient(cfg.APIBaseURL, cfg.APIKey, executor, breakers, logger)
	}
	slogger.Info("crawl API not configured, using readability fallback")
	return remote.NewReadabilityCrawler(executor, breakers, logger)
}

// createGenerator selects the generation backend from GENERATOR_TYPE.
func createGenerator(slogger *slog.Logger, cfg config.GeneratorConfig, executor *retry.Executor, breakers *circuitbreaker.Registry, logger *logging.Logger) remote.Generator {
	switch cfg.Type {
	case config.GeneratorHTTP:
		slogger.Info("using HTTP generation API", slog.String("base_url", cfg.BaseURL))
		return remote.NewHTTPGenerator(cfg.BaseURL, cfg.APIKey, executor, breakers, logger)
	case config.GeneratorOpenAI:
		slogger.Info("using OpenAI for article generation")
		return remote.NewOpenAIGenerator(cfg.APIKey, executor, logger)
	case config.GeneratorClaude:
		slogger.Info("using Claude for article generation")
		return remote.NewClaudeGenerator(cfg.APIKey, executor, logger)
	default:
		slogger.Error("invalid generator type", slog.String("type", string(cfg.Type)))
		os.Exit(1)
		return nil
	}
}

type schedulerDeps struct {
	orchestrator *intelligence.Orchestrator
	logger       *logging.Logger
	workerConfig *workerPkg.Config
	appConfig    *config.AppConfig
	metrics      *workerPkg.Metrics
	health       *workerPkg.HealthServer
}

// runScheduler starts the cron scheduler and blocks until the context is
// cancelled. Running jobs are allowed to finish before returning.
func runScheduler(ctx context.Context, slogger *slog.Logger, deps schedulerDeps) {
	loc, err := time.LoadLocation(deps.workerConfig.Timezone)
	if err != nil {
		slogger.Error("invalid timezone, using UTC",
			slog.String("timezone", deps.workerConfig.Timezone),
			slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	if _, err := c.AddFunc(deps.workerConfig.RunSchedule, func() {
		runIntelligence(slogger, deps)
	}); err != nil {
		slogger.Error("failed to schedule intelligence run", slog.Any("error", err))
		os.Exit(1)
	}

	if _, err := c.AddFunc(deps.workerConfig.CleanupSchedule, func() {
		runLogCleanup(slogger, deps)
	}); err != nil {
		slogger.Error("failed to schedule log cleanup", slog.Any("error", err))
		os.Exit(1)
	}

	c.Start()
	deps.health.SetReady(true)
	slogger.Info("worker started",
		slog.String("run_schedule", deps.workerConfig.RunSchedule),
		slog.String("cleanup_schedule", deps.workerConfig.CleanupSchedule),
		slog.String("timezone", deps.workerConfig.Timezone))

	<-ctx.Done()
	deps.health.SetReady(false)
	slogger.Info("worker shutting down, waiting for running jobs")
	<-c.Stop().Done()
	slogger.Info("worker stopped")
}

// runIntelligence executes a single scheduled intelligence run.
func runIntelligence(slogger *slog.Logger, deps schedulerDeps) {
	start := time.Now()
	slogger.Info("intelligence run started")

	ctx, cancel := context.WithTimeout(context.Background(), deps.workerConfig.RunTimeout)
	defer cancel()

	result, err := deps.orchestrator.Run(ctx)
	if err != nil {
		slogger.Error("intelligence run failed", slog.String("error", respond.SanitizeError(err)))
		deps.metrics.RecordRun("failure")
		deps.metrics.RecordRunDuration(time.Since(start).Seconds())
		return
	}

	deps.metrics.RecordRun("success")
	deps.metrics.RecordRunDuration(time.Since(start).Seconds())
	deps.metrics.RecordSourcesProcessed(result.SourcesProcessed)
	deps.metrics.RecordLastSuccess()

	slogger.Info("intelligence run completed",
		slog.String("job_id", result.JobID),
		slog.Int("sources_processed", result.SourcesProcessed),
		slog.Int("articles_created", result.ArticlesCreated),
		slog.Int("sources_skipped", result.SourcesSkipped),
		slog.Int("sources_failed", result.SourcesFailed),
		slog.Int("escalations_created", result.EscalationsCreated),
		slog.Duration("duration", time.Since(start)))
}

// runLogCleanup removes persisted logs older than the retention window.
func runLogCleanup(slogger *slog.Logger, deps schedulerDeps) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	deleted, err := deps.logger.CleanupLogs(ctx, deps.appConfig.Pipeline.LogRetentionDays)
	if err != nil {
		slogger.Error("log cleanup failed", slog.String("error", respond.SanitizeError(err)))
		return
	}

	slogger.Info("log cleanup completed",
		slog.Int64("deleted", deleted),
		slog.Int("retention_days", deps.appConfig.Pipeline.LogRetentionDays))
}
