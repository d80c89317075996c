package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// HTTP Метрики (общие для всех сервисов)
// =============================================================================

// HttpRequestsTotal - счётчик всех HTTP запросов
// Labels: service, method, path, status
var HttpRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	},
	[]string{"service", "method", "path", "status"},
)

// HttpRequestDuration - гистограмма времени ответа
// Загрузка картинок в хранилище может занимать секунды, поэтому верхний бакет 30s
var HttpRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
	[]string{"service", "method", "path"},
)

// HttpRequestsInFlight - текущее количество обрабатываемых запросов
var HttpRequestsInFlight = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "Current number of HTTP requests being processed",
	},
	[]string{"service"},
)

// =============================================================================
// Database Метрики
// =============================================================================

// DbQueryDuration - время выполнения SQL запросов
var DbQueryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	},
	[]string{"service", "operation", "table"},
)

// DbErrors - счётчик ошибок базы данных
var DbErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "db_errors_total",
		Help: "Total number of database errors",
	},
	[]string{"service", "operation"},
)

// =============================================================================
// Redis Метрики
// =============================================================================

var RedisCacheHits = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "redis_cache_hits_total",
		Help: "Total number of Redis cache hits",
	},
	[]string{"service", "key_prefix"},
)

var RedisCacheMisses = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "redis_cache_misses_total",
		Help: "Total number of Redis cache misses",
	},
	[]string{"service", "key_prefix"},
)

var RedisErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "redis_errors_total",
		Help: "Total number of Redis errors",
	},
	[]string{"service", "operation"},
)

// =============================================================================
// Kafka Метрики
// =============================================================================

var KafkaMessagesProduced = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_messages_produced_total",
		Help: "Total number of Kafka messages produced",
	},
	[]string{"service", "topic"},
)

var KafkaMessagesConsumed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_messages_consumed_total",
		Help: "Total number of Kafka messages consumed",
	},
	[]string{"service", "topic", "group"},
)

var KafkaErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_errors_total",
		Help: "Total number of Kafka errors",
	},
	[]string{"service", "topic", "operation"}, // operation: produce, consume
)

// =============================================================================
// Business Метрики
// =============================================================================

// --- Catalog ---

// ProductWrites - изменения товаров
var ProductWrites = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_product_writes_total",
		Help: "Total number of product writes",
	},
	[]string{"operation", "status"}, // operation: create, update, delete; status: committed, rejected
)

// ImageUploads - загрузки картинок в blob store
var ImageUploads = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_image_uploads_total",
		Help: "Total number of product image uploads",
	},
	[]string{"backend", "status"}, // status: success, failed
)

// ImageUploadDuration - время загрузки одной картинки
var ImageUploadDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "catalog_image_upload_duration_seconds",
		Help:    "Duration of blob store put operations",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
	[]string{"backend"},
)

// ImageCleanups - удаления старых картинок
var ImageCleanups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_image_cleanups_total",
		Help: "Total number of stale image deletions",
	},
	[]string{"backend", "result"}, // result: deleted, skipped, failed
)

// OrphanedUploads - загрузки, оставшиеся без строки в БД после ошибки записи
var OrphanedUploads = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "catalog_orphaned_uploads_total",
		Help: "Total number of uploads left without a product row",
	},
)

// OrdersCreated - оформленные заказы
var OrdersCreated = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	},
)

// --- Background Worker ---

// JanitorRuns - запуски сверки blob store с БД
var JanitorRuns = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "worker_image_reconcile_runs_total",
		Help: "Total number of image reconciliation runs",
	},
	[]string{"status"}, // success, failed, skipped
)

// JanitorBlobsRemoved - удаленные worker'ом объекты
var JanitorBlobsRemoved = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "worker_image_blobs_removed_total",
		Help: "Total number of blobs removed by the worker",
	},
	[]string{"source"}, // source: event, reconcile
)
