package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"intelwire/internal/config"
	"intelwire/internal/domain/entity"
	hhttp "intelwire/internal/handler/http"
	hadmin "intelwire/internal/handler/http/admin"
	hescalation "intelwire/internal/handler/http/escalation"
	hjob "intelwire/internal/handler/http/job"
	hlogs "intelwire/internal/handler/http/logs"
	"intelwire/internal/handler/http/requestid"
	pgRepo "intelwire/internal/infra/adapter/persistence/postgres"
	"intelwire/internal/infra/db"
	"intelwire/internal/infra/notifier"
	"intelwire/internal/infra/remote"
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

func main() {
	slogger := initSlog()
	database := initDatabase(slogger)
	defer func() {
		if err := database.Close(); err != nil {
			slogger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	appConfig, err := config.LoadAppConfig()
	if err != nil {
		slogger.Error("failed to load application configuration", slog.Any("error", err))
		os.Exit(1)
	}

	shutdownTracing := tracing.Setup("intelwire-api")
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slogger.Error("tracing shutdown failed", slog.Any("error", err))
		}
	}()

	version := getVersion()
	handler, notifyService := setupServer(slogger, database, appConfig, version)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := notifyService.Shutdown(shutdownCtx); err != nil {
			slogger.Error("notify service shutdown failed", slog.Any("error", err))
		}
	}()

	runServer(slogger, handler, version)
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

// initDatabase opens the database connection and runs migrations.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
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

// buildNotifyService wires the configured notification channels.
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
		}
	}

	if len(channels) == 0 {
		channels = append(channels, notifier.NewNoOpChannel())
	}

	return notify.NewService(channels, cfg.MaxConcurrent, logger)
}

// setupServer wires repositories, services, routes and middleware into the
// root handler.
func setupServer(slogger *slog.Logger, database *sql.DB, appConfig *config.AppConfig, version string) (http.Handler, notify.Service) {
	logger := buildLogger(pgRepo.NewLogRepo(database), "api")
	notifyService := buildNotifyService(slogger, logger, appConfig.Notify)

	jobService := jobs.NewService(pgRepo.NewJobRepo(database), notifyService, logger)
	escalationService := escalation.NewService(pgRepo.NewEscalationRepo(database), notifyService, logger)

	executor := retry.NewExecutor(logger)
	breakers := circuitbreaker.NewRegistry(circuitbreaker.Config{
		FailureThreshold:  appConfig.Breaker.FailureThreshold,
		ResetTimeout:      appConfig.Breaker.ResetTimeout,
		HalfOpenSuccesses: appConfig.Breaker.HalfOpenSuccesses,
	})

	orchestrator := buildOrchestrator(slogger, logger, database, notifyService, jobService, escalationService, executor, breakers, appConfig)
	runner := hadmin.RunnerFunc(func(ctx context.Context) error {
		_, err := orchestrator.Run(ctx)
		return err
	})

	mux := http.NewServeMux()
	hjob.Register(mux, jobService)
	hescalation.Register(mux, escalationService)
	hlogs.Register(mux, logger)
	hadmin.Register(mux, breakers, runner, logger)

	mux.Handle("/health", &hhttp.HealthHandler{DB: database, Breakers: breakers, Version: version})
	mux.Handle("/ready", &hhttp.ReadyHandler{DB: database})
	mux.Handle("/live", &hhttp.LiveHandler{})
	mux.Handle("/metrics", hhttp.MetricsHandler())

	return applyMiddleware(logger, mux), notifyService
}

// buildOrchestrator assembles the pipeline used by manual run triggers.
func buildOrchestrator(
	slogger *slog.Logger,
	logger *logging.Logger,
	database *sql.DB,
	sink notify.Service,
	jobService *jobs.Service,
	escalationService *escalation.Service,
	executor *retry.Executor,
	breakers *circuitbreaker.Registry,
	appConfig *config.AppConfig,
) *intelligence.Orchestrator {
	var crawler remote.CrawlProvider
	if appConfig.Crawl.APIBaseURL != "" {
		crawler = remote.NewCrawlClient(appConfig.Crawl.APIBaseURL, appConfig.Crawl.APIKey, executor, breakers, logger)
	} else {
		crawler = remote.NewReadabilityCrawler(executor, breakers, logger)
	}

	var generator remote.Generator
	switch appConfig.Generator.Type {
	case config.GeneratorOpenAI:
		generator = remote.NewOpenAIGenerator(appConfig.Generator.APIKey, executor, logger)
	case config.GeneratorClaude:
		generator = remote.NewClaudeGenerator(appConfig.Generator.APIKey, executor, logger)
	default:
		generator = remote.NewHTTPGenerator(appConfig.Generator.BaseURL, appConfig.Generator.APIKey, executor, breakers, logger)
	}

	slogger.Info("manual run pipeline initialized",
		slog.String("generator", string(appConfig.Generator.Type)),
		slog.Int("parallelism", appConfig.Pipeline.Parallelism))

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

// applyMiddleware wraps the handler with the middleware chain.
// Order: Request ID → Tracing → Recovery → Logging → Body Limit → Timeout → Metrics
func applyMiddleware(logger *logging.Logger, handler http.Handler) http.Handler {
	chain := handler

	chain = hhttp.Metrics(chain)
	chain = hhttp.Timeout(30 * time.Second)(chain)
	chain = hhttp.LimitRequestBody(1 << 20)(chain)
	chain = hhttp.Logging(logger)(chain)
	chain = hhttp.Recover(logger)(chain)
	chain = tracing.Middleware(chain)
	chain = requestid.Middleware(chain)

	return chain
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, handler http.Handler, version string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
