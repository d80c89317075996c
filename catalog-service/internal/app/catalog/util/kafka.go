package util

import (
	"context"
	"fmt"
	"time"

	"storefront/pkg/logger"
	"storefront/pkg/metrics"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer обертка над Kafka writer для отправки событий
// Используется для событий PRODUCT_CREATED/UPDATED/DELETED в топик product_events
type KafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaProducer создает новый Kafka producer
// Запись асинхронная: запрос не ждет подтверждения брокера, ошибки доставки
// логируются в Completion
func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // ключ = ProductID, события одного товара в одной партиции
		BatchSize:    100,
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				metrics.RecordKafkaError(serviceName, topic, "produce")
				logger.Error().
					Err(err).
					Str("topic", topic).
					Int("messages", len(messages)).
					Msg("failed to deliver product events")
				return
			}
			for range messages {
				metrics.RecordKafkaMessageProduced(serviceName, topic)
			}
		},
	}

	return &KafkaProducer{writer: writer, topic: topic}
}

// PublishMessage отправляет сообщение в Kafka
// key - используется для партиционирования (ProductID для сохранения порядка)
// value - JSON сериализованное событие ProductEvent
func (p *KafkaProducer) PublishMessage(ctx context.Context, key string, value []byte) error {
	message := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		metrics.RecordKafkaError(serviceName, p.topic, "produce")
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close дожидается отправки буфера и закрывает writer
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
