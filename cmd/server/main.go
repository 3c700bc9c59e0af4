package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/beanledger/internal/adapter/http"
	"github.com/iho/beanledger/internal/adapter/http/handler"
	"github.com/iho/beanledger/internal/adapter/http/middleware"
	"github.com/iho/beanledger/internal/adapter/kafka"
	"github.com/iho/beanledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/beanledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/beanledger/internal/adapter/repository/redis"
	"github.com/iho/beanledger/internal/infrastructure/auth"
	"github.com/iho/beanledger/internal/infrastructure/config"
	"github.com/iho/beanledger/internal/infrastructure/eventpublisher"
	"github.com/iho/beanledger/internal/infrastructure/logger"
	"github.com/iho/beanledger/internal/infrastructure/metrics"
	"github.com/iho/beanledger/internal/infrastructure/postgres"
	"github.com/iho/beanledger/internal/infrastructure/redis"
	"github.com/iho/beanledger/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "beanledger",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// storage bundles the repositories of one backend.
type storage struct {
	txManager    usecase.TransactionManager
	accounts     usecase.AccountRepository
	transactions usecase.TransactionRepository
	assertions   usecase.AssertionRepository
	outbox       usecase.OutboxRepository
	retrier      usecase.Retrier
	checks       map[string]handler.Check
	close        func()
}

func openStorage(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log zerolog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return &storage{
			txManager:    memory.NewTxManager(store),
			accounts:     memory.NewAccountRepository(store),
			transactions: memory.NewTransactionRepository(store),
			assertions:   memory.NewAssertionRepository(store),
			outbox:       memory.NewOutboxRepository(store),
			checks:       map[string]handler.Check{},
			close:        func() {},
		}, nil

	case config.StoragePostgres:
		if cfg.AutoMigrate {
			if err := postgres.NewMigrator(cfg.DatabaseURL, "", log).Up(); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		connectCtx, cancel := context.WithTimeout(ctx, cfg.DatabaseTimeout)
		defer cancel()

		pool, err := postgres.NewPoolWithConfig(connectCtx, postgres.PoolConfig{
			DatabaseURL:     cfg.DatabaseURL,
			MaxConns:        cfg.DatabaseMaxConns,
			MinConns:        cfg.DatabaseMinConns,
			MaxConnLifetime: cfg.DatabaseMaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		log.Info().Msg("connected to postgres")

		return &storage{
			txManager:    postgresRepo.NewTxManager(pool),
			accounts:     postgresRepo.NewAccountRepository(pool),
			transactions: postgresRepo.NewTransactionRepository(pool),
			assertions:   postgresRepo.NewAssertionRepository(pool),
			outbox:       postgresRepo.NewOutboxRepository(pool),
			retrier:      postgresRepo.NewRetrier(log).WithObserver(m),
			checks:       map[string]handler.Check{"postgres": pingPool(pool)},
			close:        pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func pingPool(pool *pgxpool.Pool) handler.Check {
	return func(ctx context.Context) error {
		return pool.Ping(ctx)
	}
}

// newPublisher selects the outbox sink. A nil publisher disables the relay.
func newPublisher(cfg *config.Config, client goredis.UniversalClient, log zerolog.Logger) (eventpublisher.Publisher, func() error, error) {
	noop := func() error { return nil }

	switch cfg.EventPublisher {
	case config.PublisherNone, "":
		return nil, noop, nil
	case config.PublisherLog:
		return eventpublisher.NewLogPublisher(log), noop, nil
	case config.PublisherRedis:
		if client == nil {
			return nil, noop, errors.New("redis publisher requires REDIS_URL")
		}
		return eventpublisher.NewRedisPublisher(client, ""), noop, nil
	case config.PublisherKafka:
		p := eventpublisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaEventsTopic)
		return p, p.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown event publisher %q", cfg.EventPublisher)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, err := openStorage(ctx, cfg, m, log)
	if err != nil {
		return err
	}
	defer store.close()

	// Redis (optional)
	var (
		redisClient      *goredis.Client
		publisherClient  goredis.UniversalClient
		idempotencyStore usecase.IdempotencyStore
	)
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(ctx, redis.ClientConfig{URL: cfg.RedisURL})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		log.Info().Msg("connected to redis")

		publisherClient = redisClient
		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
		store.checks["redis"] = func(ctx context.Context) error {
			return redis.Ping(ctx, redisClient, 2*time.Second)
		}
	} else {
		log.Warn().Msg("REDIS_URL is empty, idempotency keys are disabled")
	}

	// Use cases
	idGen := postgresRepo.NewULIDGenerator()
	accountUC := usecase.NewAccountUseCase(store.txManager, store.accounts, store.outbox, idGen).WithMetrics(m)
	ledgerUC := usecase.NewLedgerUseCase(store.txManager, store.accounts, store.transactions, store.outbox, idGen).WithMetrics(m)
	balanceUC := usecase.NewBalanceUseCase(store.accounts, store.transactions)
	assertionUC := usecase.NewAssertionUseCase(
		store.txManager, store.accounts, balanceUC, store.assertions, store.outbox, idGen,
	).WithMetrics(m)
	searchUC := usecase.NewSearchUseCase(store.transactions)

	var wg sync.WaitGroup
	background := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Str("worker", name).Msg("background worker stopped")
			}
		}()
	}

	// Outbox relay
	publisher, closePublisher, err := newPublisher(cfg, publisherClient, log)
	if err != nil {
		return err
	}
	defer closePublisher()
	if publisher != nil {
		relay := eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: store.outbox,
			Publisher:  publisher,
			Logger:     log,
			BatchSize:  cfg.OutboxBatchSize,
			Interval:   cfg.OutboxInterval,
			Retention:  cfg.OutboxRetention,
			Observer:   m,
		})
		background("outbox", relay.Start)
	}

	// Draft intake
	if cfg.KafkaDraftsTopic != "" {
		retrier := store.retrier
		if retrier == nil {
			retrier = postgresRepo.NewRetrier(log).WithObserver(m)
		}
		consumer := kafka.NewDraftConsumer(kafka.ConsumerConfig{
			Brokers:         cfg.KafkaBrokers,
			Topic:           cfg.KafkaDraftsTopic,
			GroupID:         cfg.KafkaGroupID,
			DeadLetterTopic: cfg.KafkaDeadLetterTopic,
		}, ledgerUC, accountUC, retrier, log).WithObserver(m)
		if idempotencyStore != nil {
			consumer = consumer.WithIdempotency(idempotencyStore)
		}
		defer consumer.Close()
		background("drafts", consumer.Run)
		log.Info().Str("topic", cfg.KafkaDraftsTopic).Msg("consuming transaction drafts")
	}

	routerCfg := httpAdapter.RouterConfig{
		AccountHandler:     handler.NewAccountHandler(accountUC, balanceUC),
		TransactionHandler: handler.NewTransactionHandler(ledgerUC, accountUC, store.retrier),
		SearchHandler:      handler.NewSearchHandler(searchUC),
		ReportHandler:      handler.NewReportHandler(balanceUC, ledgerUC),
		AssertionHandler:   handler.NewAssertionHandler(assertionUC, accountUC),
		HealthHandler:      handler.NewHealthHandler(store.checks),
		IdempotencyStore:   idempotencyStore,
		IdempotencyTTL:     cfg.IdempotencyTTL,
		Metrics:            m,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:             log,
	}

	if cfg.AuthEnabled {
		routerCfg.Authenticator = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiration)
		log.Info().Msg("JWT authentication enabled")
	}

	if cfg.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
		background("ratelimit-cleanup", func(ctx context.Context) error {
			limiter.RunCleanup(ctx, time.Minute, 10*time.Minute)
			return nil
		})
		routerCfg.RateLimiter = limiter
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("storage", cfg.StorageDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	wg.Wait()
	log.Info().Msg("server stopped")
	return nil
}
