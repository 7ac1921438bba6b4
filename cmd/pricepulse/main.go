package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"pricepulse/internal/config"
	"pricepulse/internal/extract"
	"pricepulse/internal/fetch"
	"pricepulse/internal/notify"
	"pricepulse/internal/publisher"
	"pricepulse/internal/scheduler"
	"pricepulse/internal/service"
	"pricepulse/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Alert-event publishing is optional; no broker URL means email only.
	var alertPublisher service.AlertPublisher
	if cfg.RabbitMQ.URL != "" {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		alertPublisher = rabbitMQ
	} else {
		logger.Info("alert event publishing disabled")
	}

	notifier := notify.NewEmail(notify.Config{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Username:    cfg.SMTP.Username,
		Password:    cfg.SMTP.Password,
		From:        cfg.SMTP.From,
		DialTimeout: cfg.SMTP.DialTimeout,
	}, logger)

	fetcher := newFetcher(cfg.Fetch, logger)
	extractor := extract.New(logger)

	// Initialize stores
	productStore := postgres.NewProductStore(db)
	observationStore := postgres.NewObservationStore(db)
	alertStore := postgres.NewAlertStore(db)
	txManager := postgres.NewTransactionManager(db)

	reconciler := service.NewReconcileService(
		fetcher,
		extractor,
		productStore,
		observationStore,
		alertStore,
		txManager,
		notifier,
		alertPublisher,
		logger,
		cfg.Reconcile,
	)

	sched := scheduler.NewScheduler(reconciler, cfg.Reconcile.Interval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting pricepulse",
		"fetch_strategy", cfg.Fetch.Strategy,
		"interval", cfg.Reconcile.Interval,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func newFetcher(cfg config.FetchConfig, logger *slog.Logger) fetch.Fetcher {
	if cfg.Strategy == "rendersvc" {
		return fetch.NewRenderSvc(fetch.RenderSvcConfig{
			Endpoint:    cfg.RenderSvc.Endpoint,
			APIKey:      cfg.RenderSvc.APIKey,
			CountryCode: cfg.RenderSvc.CountryCode,
			WaitMillis:  cfg.RenderSvc.WaitMillis,
			Timeout:     cfg.RenderSvc.Timeout,
		}, logger)
	}

	return fetch.NewBrowser(fetch.BrowserConfig{
		ReadinessSelector: cfg.ReadinessSelector,
		ReadinessTimeout:  cfg.ReadinessTimeout,
		MinDelay:          cfg.MinDelay,
		MaxDelay:          cfg.MaxDelay,
		UserAgent:         cfg.UserAgent,
	}, logger)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
