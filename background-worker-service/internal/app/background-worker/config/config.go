package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"storefront/pkg/blobstore"
)

// Config содержит все настройки Background Worker Service (image janitor)
// Включает конфигурацию для PostgreSQL, Redis, Kafka, хранилища картинок и расписания сверки
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Storage  StorageConfig
	Janitor  JanitorConfig
	LogLevel string
}

// ServerConfig - healthcheck и metrics сервер
type ServerConfig struct {
	Port string
}

// DatabaseConfig - настройки подключения к PostgreSQL каталога
// Worker только читает ссылки на картинки из таблицы products
type DatabaseConfig struct {
	Host     string // Хост PostgreSQL
	Port     string // Порт PostgreSQL
	User     string // Имя пользователя БД
	Password string // Пароль БД
	DBName   string // Имя базы данных (storefront)
	SSLMode  string // Режим SSL (disable/require/verify-full)
}

// RedisConfig - настройки подключения к Redis
// Используется для блокировки сверки между репликами и последнего отчета
type RedisConfig struct {
	Host     string // Хост Redis
	Port     string // Порт Redis
	Password string // Пароль Redis
	DB       int    // Номер БД Redis
}

// KafkaConfig - настройки Kafka для подписки на события товаров
// Слушает топик product_events и повторяет удаление stale_image
type KafkaConfig struct {
	Brokers  []string // Список брокеров Kafka (формат: host:port)
	Topic    string   // Топик для прослушивания (product_events)
	GroupID  string   // ID группы потребителей
	MinBytes int      // Минимум байт для fetch запроса
	MaxBytes int      // Максимум байт для fetch запроса
}

// StorageConfig - то же хранилище картинок, что и у Catalog Service
type StorageConfig struct {
	Backend     string
	S3Bucket    string
	S3Region    string
	S3PublicURL string
	UploadDir   string
	URLPrefix   string
}

// JanitorConfig - настройки периодической сверки хранилища с БД
type JanitorConfig struct {
	Schedule    string        // cron выражение, по умолчанию раз в час
	GracePeriod time.Duration // Объекты моложе не удаляются: загрузка может быть еще не закоммичена
	LockTTL     time.Duration // TTL блокировки сверки в Redis
	RunOnStart  bool          // Запустить сверку сразу после старта
}

// Load загружает конфигурацию из переменных окружения (и .env, если он есть)
// Возвращает ошибку, если не удалось распарсить значения
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB value: %w", err)
	}

	runOnStart, err := strconv.ParseBool(getEnv("JANITOR_RUN_ON_START", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid JANITOR_RUN_ON_START value: %w", err)
	}

	janitor := JanitorConfig{
		Schedule:    getEnv("JANITOR_SCHEDULE", "0 * * * *"),
		GracePeriod: getEnvDuration("JANITOR_GRACE_PERIOD", 24*time.Hour),
		LockTTL:     getEnvDuration("JANITOR_LOCK_TTL", 10*time.Minute),
		RunOnStart:  runOnStart,
	}
	if _, err := cron.ParseStandard(janitor.Schedule); err != nil {
		return nil, fmt.Errorf("invalid JANITOR_SCHEDULE value %q: %w", janitor.Schedule, err)
	}

	storage := StorageConfig{
		Backend:     strings.ToLower(getEnv("STORAGE_BACKEND", "")),
		S3Bucket:    getEnv("AWS_S3_BUCKET_NAME", ""),
		S3Region:    getEnv("AWS_S3_REGION", getEnv("AWS_REGION", "")),
		S3PublicURL: getEnv("S3_PUBLIC_BASE_URL", ""),
		UploadDir:   getEnv("UPLOAD_DIR", ""),
		URLPrefix:   getEnv("UPLOAD_URL_PREFIX", "/uploads"),
	}
	if storage.Backend == "" {
		storage.Backend = inferBackend(storage)
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("WORKER_HTTP_PORT", "8080"),
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
			Brokers:  getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:    getEnv("KAFKA_TOPIC", "product_events"),
			GroupID:  getEnv("KAFKA_GROUP_ID", "image-janitor-group"),
			MinBytes: getEnvInt("KAFKA_MIN_BYTES", 1),    // 1 byte minimum
			MaxBytes: getEnvInt("KAFKA_MAX_BYTES", 10e6), // 10MB maximum
		},
		Storage:  storage,
		Janitor:  janitor,
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}, nil
}

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

// Address возвращает адрес Redis в формате host:port
func (c *RedisConfig) Address() string {
	return c.Host + ":" + c.Port
}

// Address возвращает адрес healthcheck сервера
func (c *ServerConfig) Address() string {
	return ":" + c.Port
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// getEnvList - список через запятую
func getEnvList(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
