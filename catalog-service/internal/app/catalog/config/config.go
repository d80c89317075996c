package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"storefront/pkg/blobstore"

	"github.com/joho/godotenv"
)

// Config содержит все настройки приложения Catalog Service
// Включает конфигурацию для HTTP сервера, PostgreSQL, Redis, Kafka и хранилища картинок
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Storage  StorageConfig
	LogLevel string
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Host           string        // Адрес хоста (по умолчанию 0.0.0.0)
	Port           string        // Порт сервера (по умолчанию 8081)
	RequestTimeout time.Duration // Дедлайн обработки одного запроса
	CORSOrigins    []string      // Разрешенные origin витрины
}

// DatabaseConfig - настройки подключения к PostgreSQL
// Используется для хранения категорий, товаров и заказов
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string // disable/require/verify-full
}

// RedisConfig - настройки Redis для кеширования списка категорий
// Пустой Host отключает кеш
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int // 0-15
}

// KafkaConfig - настройки Kafka для событий товаров
// Пустой список брокеров отключает публикацию
type KafkaConfig struct {
	Brokers []string
	Topic   string // PRODUCT_CREATED, PRODUCT_UPDATED, PRODUCT_DELETED
}

// StorageConfig - настройки хранилища картинок товаров
type StorageConfig struct {
	Backend       string // s3 или local; пусто - хранилище не настроено
	S3Bucket      string
	S3Region      string
	S3PublicURL   string // CDN перед бакетом (опционально)
	UploadDir     string
	URLPrefix     string
	MaxUploadSize int64 // байт
	UploadTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения (и .env, если он есть)
// Возвращает ошибку, если не удалось распарсить значения
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB value: %w", err)
	}

	maxUploadMB := getEnvInt("MAX_UPLOAD_SIZE_MB", 10)
	if maxUploadMB <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE_MB value: %d", maxUploadMB)
	}

	storage := StorageConfig{
		Backend:       strings.ToLower(getEnv("STORAGE_BACKEND", "")),
		S3Bucket:      getEnv("AWS_S3_BUCKET_NAME", ""),
		S3Region:      getEnv("AWS_S3_REGION", getEnv("AWS_REGION", "")),
		S3PublicURL:   getEnv("S3_PUBLIC_BASE_URL", ""),
		UploadDir:     getEnv("UPLOAD_DIR", ""),
		URLPrefix:     getEnv("UPLOAD_URL_PREFIX", "/uploads"),
		MaxUploadSize: int64(maxUploadMB) << 20,
		UploadTimeout: getEnvDuration("UPLOAD_TIMEOUT", 30*time.Second),
	}
	if storage.Backend == "" {
		storage.Backend = inferBackend(storage)
	}

	return &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8081"),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),
			CORSOrigins:    getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "storefront"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "product_events"),
		},
		Storage:  storage,
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}, nil
}

// inferBackend выбирает хранилище по заданным переменным, если STORAGE_BACKEND не указан
func inferBackend(s StorageConfig) string {
	switch {
	case s.S3Bucket != "":
		return blobstore.BackendS3
	case s.UploadDir != "":
		return blobstore.BackendLocal
	}
	return ""
}

// BlobStore переводит настройки в конфигурацию pkg/blobstore
func (s *StorageConfig) BlobStore() blobstore.Config {
	return blobstore.Config{
		Backend: s.Backend,
		S3: blobstore.S3Config{
			Bucket:        s.S3Bucket,
			Region:        s.S3Region,
			PublicBaseURL: s.S3PublicURL,
		},
		Local: blobstore.LocalConfig{
			Dir:       s.UploadDir,
			URLPrefix: s.URLPrefix,
		},
	}
}

// DSN возвращает строку подключения к PostgreSQL в формате libpq
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Address возвращает адрес сервера в формате host:port для HTTP сервера
func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// Address возвращает адрес Redis в формате host:port для подключения
func (c *RedisConfig) Address() string {
	return c.Host + ":" + c.Port
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает значение переменной окружения как int
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration понимает формат time.ParseDuration (30s, 2m)
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// getEnvList - список через запятую; "-" означает пустой список
func getEnvList(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if value == "-" {
		return nil
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
