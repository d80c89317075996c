package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"storefront/background-worker-service/internal/app/background-worker/config"
	"storefront/background-worker-service/internal/app/background-worker/handler"
	"storefront/background-worker-service/internal/app/background-worker/processor"
	"storefront/background-worker-service/internal/app/background-worker/repository"
	"storefront/background-worker-service/internal/app/background-worker/service"
	"storefront/pkg/blobstore"
	"storefront/pkg/logger"
)

func main() {
	// === ИНИЦИАЛИЗАЦИЯ КОНФИГУРАЦИИ ===
	cfg, err := config.Load()
	if err != nil {
		logger.Init("background-worker", "info")
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init("background-worker", cfg.LogLevel)
	logger.Info().Msg("Starting Background Worker Service (image janitor)...")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// === ПОДКЛЮЧЕНИЕ К POSTGRESQL ===
	// Читаем ссылки на картинки из БД каталога, схемой владеет Catalog Service
	db, err := connectDB(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	logger.Info().Msg("Successfully connected to PostgreSQL")

	// === ПОДКЛЮЧЕНИЕ К REDIS ===
	// Redis хранит блокировку сверки и отчет последнего прохода
	redisClient, err := connectRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	logger.Info().Msg("Successfully connected to Redis")

	// === ХРАНИЛИЩЕ КАРТИНОК ===
	store, err := blobstore.New(ctx, cfg.Storage.BlobStore())
	if err != nil {
		if errors.Is(err, blobstore.ErrNotConfigured) {
			logger.Fatal().Err(err).Msg("Image storage must be configured for the janitor")
		}
		logger.Fatal().Err(err).Msg("Failed to initialize image storage")
	}
	logger.Info().Str("backend", store.Backend()).Msg("Image storage initialized")

	// === ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ ===
	refsRepo := repository.NewImageReferenceRepository(db)
	stateRepo := repository.NewJanitorStateRepository(redisClient)

	// === ИНИЦИАЛИЗАЦИЯ СЕРВИСОВ ===
	reconcileSvc := service.NewReconcileService(
		refsRepo,
		stateRepo,
		store,
		cfg.Janitor.GracePeriod,
		cfg.Janitor.LockTTL,
	)
	cleanupSvc := service.NewImageCleanupService(refsRepo, store)

	// === ИНИЦИАЛИЗАЦИЯ KAFKA CONSUMER ===
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaConsumer := processor.NewKafkaConsumer(
			cfg.Kafka.Brokers,
			cfg.Kafka.Topic,
			cfg.Kafka.GroupID,
			cfg.Kafka.MinBytes,
			cfg.Kafka.MaxBytes,
			cleanupSvc,
		)
		kafkaConsumer.Start(ctx)
		defer kafkaConsumer.Stop()
	} else {
		logger.Warn().Msg("KAFKA_BROKERS is empty, stale image events are not consumed")
	}

	// === ИНИЦИАЛИЗАЦИЯ CRON SCHEDULER ===
	cronScheduler := processor.NewCronScheduler(reconcileSvc)
	if err := cronScheduler.Start(ctx, cfg.Janitor.Schedule, cfg.Janitor.RunOnStart); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start cron scheduler")
	}
	defer cronScheduler.Stop()
	logger.Info().
		Str("schedule", cfg.Janitor.Schedule).
		Dur("grace_period", cfg.Janitor.GracePeriod).
		Msg("Image reconcile scheduled")

	// === ИНИЦИАЛИЗАЦИЯ HEALTHCHECK HTTP СЕРВЕРА ===
	healthHandler := handler.NewHealthCheckHandler(db, redisClient, reconcileSvc)

	mux := http.NewServeMux()
	healthHandler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("Starting healthcheck HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server error")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("HTTP server shutdown")
		}
	}()

	logger.Info().Msg("Background Worker Service is running")

	// === GRACEFUL SHUTDOWN ===
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down Background Worker Service...")
	// отложенные Stop дожидаются текущего сообщения и прохода сверки
	stop()
}

// connectDB устанавливает соединение с PostgreSQL используя GORM
func connectDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	// Retry logic для устойчивости при запуске в Docker
	var err error
	for i := 0; i < 10; i++ {
		var db *gorm.DB
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
		if err == nil {
			sqlDB, sqlErr := db.DB()
			if sqlErr != nil {
				err = sqlErr
			} else if err = sqlDB.Ping(); err == nil {
				sqlDB.SetMaxOpenConns(5)
				sqlDB.SetMaxIdleConns(2)
				sqlDB.SetConnMaxLifetime(5 * time.Minute)
				sqlDB.SetConnMaxIdleTime(1 * time.Minute)
				return db, nil
			}
		}
		logger.Warn().Err(err).Int("attempt", i+1).Msg("Failed to connect to database")
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect after 10 attempts: %w", err)
}

// connectRedis устанавливает соединение с Redis
func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     5,
	})

	// Проверяем соединение с retry logic
	var err error
	for i := 0; i < 10; i++ {
		if err = client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		logger.Warn().Err(err).Int("attempt", i+1).Msg("Failed to connect to Redis")
		time.Sleep(3 * time.Second)
	}

	client.Close()
	return nil, fmt.Errorf("failed to connect to Redis after 10 attempts: %w", err)
}
