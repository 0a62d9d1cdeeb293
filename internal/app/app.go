// Package app собирает сервис из частей: хранилище, трекинг, аудит,
// движок переходов и HTTP-транспорт, плюс аккуратная остановка.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/audit"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/lifecycle"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
	"github.com/vladislavdragonenkov/storefront/internal/storage/retry"
	"github.com/vladislavdragonenkov/storefront/internal/tracking"
	transport "github.com/vladislavdragonenkov/storefront/internal/transport/http"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// Run запускает сервис и блокируется до отмены контекста или фатальной
// ошибки HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := newLogger(cfg.LogLevel)
	appLog := logger.WithField("component", "app")

	deps, cleanup, err := buildDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	router := transport.NewRouter(transport.Deps{
		Engine:      deps.engine,
		Tracker:     deps.tracker,
		Health:      deps.health,
		Logger:      logger,
		ReleaseMode: cfg.IsRelease(),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Infof("HTTP сервер слушает %s", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		appLog.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.WithError(err).Warn("graceful shutdown завершился с ошибкой")
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func newLogger(level string) *log.Logger {
	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}

// dependencies — собранные части сервиса.
type dependencies struct {
	engine  *lifecycle.Engine
	tracker *tracking.Service
	health  *healthcheck.Handler
}

// buildDependencies выбирает хранилище по конфигурации, подключает
// опциональные Redis и Kafka и собирает движок. Возвращённый cleanup
// закрывает внешние соединения в обратном порядке.
func buildDependencies(ctx context.Context, cfg Config, logger *log.Logger) (*dependencies, func(), error) {
	appLog := logger.WithField("component", "app")
	lifecycleMetrics := metrics.NewLifecycleMetrics()
	healthHandler := healthcheck.NewHandler(version.GetVersion())

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	storageDeps, err := buildStorage(ctx, cfg, logger, healthHandler, &closers)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	tracker := buildTracker(cfg, logger, lifecycleMetrics, healthHandler, &closers)

	auditOpts := []audit.Option{audit.WithMetrics(lifecycleMetrics)}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			appLog.WithError(err).Warn("kafka недоступен, события не публикуются")
		} else {
			appLog.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer подключён")
			auditOpts = append(auditOpts, audit.WithPublisher(producer))
			closers = append(closers, func() {
				if err := producer.Close(); err != nil {
					appLog.WithError(err).Warn("kafka producer закрылся с ошибкой")
				}
			})
		}
	}
	sink := audit.NewSink(storageDeps.auditTrail, logger, auditOpts...)

	engine := lifecycle.NewEngine(
		storageDeps.orders,
		logger.WithField("component", "lifecycle"),
		lifecycle.WithTracker(tracker),
		lifecycle.WithAudit(sink),
		lifecycle.WithAuditTrail(storageDeps.auditTrail),
		lifecycle.WithReturns(storageDeps.returns),
		lifecycle.WithMetrics(lifecycleMetrics),
	)

	return &dependencies{engine: engine, tracker: tracker, health: healthHandler}, cleanup, nil
}

// storageDeps — репозитории, за которыми может стоять PostgreSQL или память.
type storageDeps struct {
	orders     domain.OrderRepository
	returns    domain.ReturnRepository
	auditTrail domain.AuditRepository
}

func buildStorage(ctx context.Context, cfg Config, logger *log.Logger, healthHandler *healthcheck.Handler, closers *[]func()) (*storageDeps, error) {
	appLog := logger.WithField("component", "app")

	if cfg.DatabaseURL == "" {
		appLog.Info("DATABASE_URL не задан, используем хранилище в памяти")
		products := memory.NewProductRepository()
		return &storageDeps{
			orders:     memory.NewOrderRepository(products),
			returns:    memory.NewReturnRepository(),
			auditTrail: memory.NewAuditRepository(),
		}, nil
	}

	store, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, func() {
		if err := store.Close(); err != nil {
			appLog.WithError(err).Warn("хранилище закрылось с ошибкой")
		}
	})

	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	exec := retry.NewExecutor(retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
	}, store, logger.WithField("component", "storage-retry"))

	healthHandler.RegisterChecker("database", healthcheck.NewStoreChecker("database", store, 0))
	appLog.Info("подключено PostgreSQL-хранилище")

	return &storageDeps{
		orders:     retry.WrapOrders(postgres.NewOrderRepository(store), exec),
		returns:    retry.WrapReturns(postgres.NewReturnRepository(store), exec),
		auditTrail: postgres.NewAuditRepository(store),
	}, nil
}

func buildTracker(cfg Config, logger *log.Logger, m *metrics.LifecycleMetrics, healthHandler *healthcheck.Handler, closers *[]func()) *tracking.Service {
	appLog := logger.WithField("component", "app")

	provider := tracking.NewDelhiveryProvider(cfg.Tracking.BaseURL, cfg.Tracking.APIKey, cfg.Tracking.Timeout, logger)

	opts := []tracking.Option{tracking.WithMetrics(m)}
	if cfg.RedisURL != "" {
		cache, err := tracking.NewRedisCache(cfg.RedisURL)
		if err != nil {
			appLog.WithError(err).Warn("redis недоступен, трекинг работает без кэша")
		} else {
			appLog.Info("кэш трекинга подключён")
			opts = append(opts, tracking.WithCache(cache, cfg.CacheTTL))
			healthHandler.RegisterChecker("cache", healthcheck.NewSimpleChecker("cache", func() error {
				return cache.Ping(context.Background())
			}))
			*closers = append(*closers, func() {
				if err := cache.Close(); err != nil {
					appLog.WithError(err).Warn("кэш закрылся с ошибкой")
				}
			})
		}
	}

	return tracking.NewService([]tracking.Provider{provider}, logger, opts...)
}
