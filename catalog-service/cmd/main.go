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

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"storefront/catalog-service/internal/app/catalog/config"
	"storefront/catalog-service/internal/app/catalog/handler"
	"storefront/catalog-service/internal/app/catalog/migrations"
	"storefront/catalog-service/internal/app/catalog/repository"
	"storefront/catalog-service/internal/app/catalog/service"
	"storefront/catalog-service/internal/app/catalog/util"
	"storefront/pkg/blobstore"
	"storefront/pkg/logger"
)

func main() {
	// === ИНИЦИАЛИЗАЦИЯ КОНФИГУРАЦИИ ===
	cfg, err := config.Load()
	if err != nil {
		logger.Init("catalog-service", "info")
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init("catalog-service", cfg.LogLevel)

	ctx := context.Background()

	// === ПОДКЛЮЧЕНИЕ К POSTGRESQL ===
	db, err := connectDB(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to get database handle")
	}
	defer sqlDB.Close()
	logger.Info().Msg("Successfully connected to PostgreSQL")

	// === МИГРАЦИИ ===
	if err := migrations.Run(sqlDB); err != nil {
		logger.Fatal().Err(err).Msg("Failed to apply migrations")
	}
	logger.Info().Msg("Database schema is up to date")

	// === ПОДКЛЮЧЕНИЕ К REDIS ===
	// Кеш категорий необязателен: без Redis категории читаются из БД
	var cache util.RedisCache
	if cfg.Redis.Host != "" {
		redisClient, err := util.NewRedisClient(cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Address()).Msg("Redis unavailable, category cache disabled")
		} else {
			defer redisClient.Close()
			cache = redisClient
			logger.Info().Msg("Successfully connected to Redis")
		}
	}

	// === ИНИЦИАЛИЗАЦИЯ KAFKA PRODUCER ===
	// События товаров читает image janitor (stale_image)
	var events util.MessagePublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer := util.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaProducer.Close()
		events = kafkaProducer
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka producer initialized")
	}

	// === ХРАНИЛИЩЕ КАРТИНОК ===
	// Без настроенного хранилища запись товаров отвечает ImageStorageError
	var images service.ImageStore
	routerOpts := handler.RouterOptions{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxUploadSize:  cfg.Storage.MaxUploadSize,
	}

	store, err := blobstore.New(ctx, cfg.Storage.BlobStore())
	switch {
	case errors.Is(err, blobstore.ErrNotConfigured):
		logger.Warn().Err(err).Msg("Image storage is not configured, product writes will fail")
	case err != nil:
		logger.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("Failed to initialize image storage")
	default:
		images = store
		if local, ok := store.(*blobstore.LocalStore); ok {
			routerOpts.UploadDir = local.Root()
			routerOpts.UploadURLPrefix = local.URLPrefix()
		}
		logger.Info().Str("backend", store.Backend()).Msg("Image storage initialized")
	}

	// === ИНИЦИАЛИЗАЦИЯ СЛОЯ РЕПОЗИТОРИЕВ ===
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// === ИНИЦИАЛИЗАЦИЯ БИЗНЕС-ЛОГИКИ ===
	catalogService := service.NewCatalogService(categoryRepo, productRepo, cache)
	productPipeline := service.NewProductPipeline(categoryRepo, productRepo, images, events, cfg.Storage.UploadTimeout)
	orderService := service.NewOrderService(orderRepo)

	// === HTTP ===
	catalogHandler := handler.NewCatalogHandler(catalogService, productPipeline, cfg.Storage.MaxUploadSize)
	orderHandler := handler.NewOrderHandler(orderService)
	router := handler.SetupRoutes(catalogHandler, orderHandler, routerOpts)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.RequestTimeout,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Address()).Msg("Starting Catalog Service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// === GRACEFUL SHUTDOWN ===
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down Catalog Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Catalog Service stopped gracefully")
}

// connectDB устанавливает соединение с PostgreSQL используя GORM
// Использует retry logic с 10 попытками для устойчивости при запуске в Docker
func connectDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	}

	var err error
	for i := 0; i < 10; i++ {
		var db *gorm.DB
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
		if err == nil {
			sqlDB, sqlErr := db.DB()
			if sqlErr != nil {
				err = sqlErr
			} else if err = sqlDB.Ping(); err == nil {
				sqlDB.SetMaxOpenConns(25)
				sqlDB.SetMaxIdleConns(5)
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
