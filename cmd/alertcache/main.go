// Package main is the entry point for the alert cache service.
// It wires the session registry, the event processor and the HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"alertcache/internal/api"
	"alertcache/internal/banner"
	"alertcache/internal/config"
	"alertcache/internal/fetch"
	"alertcache/internal/metrics"
	"alertcache/internal/processor"
	"alertcache/internal/queue"
	kafkaqueue "alertcache/internal/queue/kafka"
	memoryqueue "alertcache/internal/queue/memory"
	redisqueue "alertcache/internal/queue/redis"
	"alertcache/internal/session"
	"alertcache/internal/store"
	memorystore "alertcache/internal/store/memory"
	postgresstore "alertcache/internal/store/postgres"
	redisstore "alertcache/internal/store/redis"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file, e.g. config/config.yaml (defaults are used when empty)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load configuration", "error", err, "path", *configPath)
			os.Exit(1)
		}
		cfg = loaded
	}

	banner.Print(os.Stderr)
	logger := initLogger(cfg.Logger)
	logger.Info("configuration loaded",
		"path", *configPath,
		"storage_mode", cfg.Storage.Mode,
		"queue_driver", cfg.Queue.Driver,
	)

	// Create context that listens for shutdown signals
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deps, cleanup, err := initDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	go deps.registry.Run(ctx, cfg.Sessions.SweepInterval)

	go func() {
		if err := deps.processor.Start(ctx); err != nil && ctx.Err() == nil && !errors.Is(err, queue.ErrQueueClosed) {
			logger.Error("processor error", "error", err)
			cancel()
		}
	}()

	go func() {
		if err := deps.server.Start(); err != nil {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	logger.Info("alert cache started", "address", cfg.Server.Address())

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := deps.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	deps.registry.CloseAll()

	logger.Info("alert cache stopped")
}

// dependencies holds the long-running components started by main.
type dependencies struct {
	server    *api.Server
	processor *processor.Service
	registry  *session.Registry
}

// initDependencies creates and wires all service dependencies based on config.
// Returns the dependencies and a cleanup function.
func initDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dependencies, func(), error) {
	var cleanupFuncs []func()
	cleanup := func() {
		for i := len(cleanupFuncs) - 1; i >= 0; i-- {
			cleanupFuncs[i]()
		}
	}
	fail := func(err error) (*dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	// Alert repository and ownership records
	var (
		alertRepo  store.AlertRepository
		ownerships store.OwnershipStore
	)
	if cfg.Storage.UseMemory() {
		logger.Info("initializing in-memory storage")
		alertRepo = store.Instrument(memorystore.NewAlertRepository(), "memory")
		ownerships = memorystore.NewOwnershipStore()
	} else {
		logger.Info("initializing persistent storage (PostgreSQL, Redis)")

		db, err := postgresstore.NewDB(ctx, &cfg.Postgres)
		if err != nil {
			return fail(err)
		}
		cleanupFuncs = append(cleanupFuncs, db.Close)

		if err := db.RunMigrations(ctx); err != nil {
			return fail(err)
		}
		logger.Info("database migrations completed")
		alertRepo = store.Instrument(postgresstore.NewAlertRepository(db), "postgres")

		redisOwnerships, err := redisstore.NewOwnershipStore(&cfg.Redis)
		if err != nil {
			return fail(err)
		}
		ownerships = redisOwnerships
	}
	cleanupFuncs = append(cleanupFuncs, func() { _ = ownerships.Close() })

	// Event transport
	var (
		producer queue.Producer
		consumer queue.Consumer
	)
	switch cfg.Queue.Driver {
	case config.QueueDriverKafka:
		logger.Info("initializing kafka queue", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
		kafkaProducer := kafkaqueue.NewProducer(&cfg.Kafka)
		kafkaConsumer := kafkaqueue.NewConsumer(&cfg.Kafka, logger)
		producer, consumer = kafkaProducer, kafkaConsumer
		cleanupFuncs = append(cleanupFuncs,
			func() { _ = kafkaProducer.Close() },
			func() { _ = kafkaConsumer.Close() },
		)
	case config.QueueDriverRedis:
		logger.Info("initializing redis queue", "addr", cfg.Redis.RedisAddr(), "list", cfg.Redis.ListKey)
		redisQueue, err := redisqueue.NewQueue(&cfg.Redis, logger)
		if err != nil {
			return fail(err)
		}
		producer, consumer = redisQueue, redisQueue
		cleanupFuncs = append(cleanupFuncs, func() { _ = redisQueue.Close() })
	case config.QueueDriverMemory:
		memQueue := memoryqueue.NewQueue(cfg.Queue.BufferSize, logger)
		producer, consumer = memQueue, memQueue
		cleanupFuncs = append(cleanupFuncs, func() { _ = memQueue.Close() })
	default:
		return fail(fmt.Errorf("unsupported queue driver %q", cfg.Queue.Driver))
	}

	registry := session.NewRegistry(cfg.Sessions.IdleTTL, logger,
		session.WithObserver(metrics.ObserveApply),
		session.WithSizeHook(metrics.SetActiveSessions),
	)

	fetcher := fetch.NewService(producer, alertRepo, ownerships, logger)
	processorService := processor.NewService(consumer, registry, logger)

	server := api.NewServer(api.ServerDeps{
		Config:         &cfg.Server,
		Logger:         logger,
		SessionHandler: api.NewSessionHandler(registry, logger),
		RefreshHandler: api.NewRefreshHandler(fetcher, registry, cfg.Fetch, logger),
		CatalogHandler: api.NewCatalogHandler(alertRepo, ownerships, logger),
	})

	return &dependencies{
		server:    server,
		processor: processorService,
		registry:  registry,
	}, cleanup, nil
}

// initLogger creates and configures the application logger.
func initLogger(cfg config.LoggerConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
