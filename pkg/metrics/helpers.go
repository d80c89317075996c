package metrics

import (
	"time"
)

func RecordCacheHit(service, keyPrefix string) {
	RedisCacheHits.WithLabelValues(service, keyPrefix).Inc()
}

func RecordCacheMiss(service, keyPrefix string) {
	RedisCacheMisses.WithLabelValues(service, keyPrefix).Inc()
}

func RecordRedisError(service, op string) {
	RedisErrors.WithLabelValues(service, op).Inc()
}

func RecordKafkaMessageProduced(service, topic string) {
	KafkaMessagesProduced.WithLabelValues(service, topic).Inc()
}

func RecordKafkaMessageConsumed(service, topic, group string) {
	KafkaMessagesConsumed.WithLabelValues(service, topic, group).Inc()
}

func RecordKafkaError(service, topic, operation string) {
	KafkaErrors.WithLabelValues(service, topic, operation).Inc()
}

type DbOperation string

const (
	DbOpSelect DbOperation = "select"
	DbOpInsert DbOperation = "insert"
	DbOpUpdate DbOperation = "update"
	DbOpDelete DbOperation = "delete"
)

type DbTimer struct {
	service   string
	operation DbOperation
	table     string
	start     time.Time
}

func NewDbTimer(service string, op DbOperation, table string) *DbTimer {
	return &DbTimer{
		service:   service,
		operation: op,
		table:     table,
		start:     time.Now(),
	}
}

// ObserveDuration записывает длительность и, если err != nil, увеличивает счетчик ошибок
func (dt *DbTimer) ObserveDuration(err error) {
	DbQueryDuration.WithLabelValues(dt.service, string(dt.operation), dt.table).Observe(time.Since(dt.start).Seconds())
	if err != nil {
		DbErrors.WithLabelValues(dt.service, string(dt.operation)).Inc()
	}
}

// UploadTimer замеряет загрузку одной картинки в blob store
type UploadTimer struct {
	backend string
	start   time.Time
}

func NewUploadTimer(backend string) *UploadTimer {
	return &UploadTimer{backend: backend, start: time.Now()}
}

func (ut *UploadTimer) Done(err error) {
	ImageUploadDuration.WithLabelValues(ut.backend).Observe(time.Since(ut.start).Seconds())
	status := "success"
	if err != nil {
		status = "failed"
	}
	ImageUploads.WithLabelValues(ut.backend, status).Inc()
}

func RecordImageCleanup(backend, result string) {
	ImageCleanups.WithLabelValues(backend, result).Inc()
}

func RecordProductWrite(operation string, err error) {
	status := "committed"
	if err != nil {
		status = "rejected"
	}
	ProductWrites.WithLabelValues(operation, status).Inc()
}
