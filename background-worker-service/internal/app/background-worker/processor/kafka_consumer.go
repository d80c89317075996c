package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"storefront/background-worker-service/internal/app/background-worker/entity"
	"storefront/background-worker-service/internal/app/background-worker/service"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
)

const serviceName = "background-worker"

// errMalformedEvent - сообщение не разбирается, повтор не поможет
var errMalformedEvent = errors.New("malformed product event")

// messageReader - часть kafka.Reader, которой пользуется consumer
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Stats() kafka.ReaderStats
	Close() error
}

// KafkaConsumer обрабатывает события из Kafka топика product_events
type KafkaConsumer struct {
	reader     messageReader
	cleanupSvc service.ImageCleanupServiceInterface
	topic      string
	groupID    string
	cancel     context.CancelFunc
	doneChan   chan struct{}
}

// NewKafkaConsumer создает новый Kafka consumer
func NewKafkaConsumer(
	brokers []string,
	topic string,
	groupID string,
	minBytes int,
	maxBytes int,
	cleanupSvc service.ImageCleanupServiceInterface,
) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: minBytes,
		MaxBytes: maxBytes,
		// Пропущенные события догоняются сверкой, поэтому начинаем с конца
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
		ReadBackoffMin: 100 * time.Millisecond,
		ReadBackoffMax: 1 * time.Second,
		ErrorLogger:    kafka.LoggerFunc(logger.Printf{Component: "kafka-reader"}.Printf),
	})

	return newKafkaConsumer(reader, topic, groupID, cleanupSvc)
}

func newKafkaConsumer(reader messageReader, topic, groupID string, cleanupSvc service.ImageCleanupServiceInterface) *KafkaConsumer {
	return &KafkaConsumer{
		reader:     reader,
		cleanupSvc: cleanupSvc,
		topic:      topic,
		groupID:    groupID,
		doneChan:   make(chan struct{}),
	}
}

// Start запускает consumer в отдельной горутине
func (c *KafkaConsumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	logger.Info().Str("topic", c.topic).Str("group", c.groupID).Msg("Starting Kafka consumer")
	go c.consume(ctx)
}

// Stop останавливает consumer и ждет завершения текущего сообщения
func (c *KafkaConsumer) Stop() {
	logger.Info().Msg("Stopping Kafka consumer...")
	if c.cancel != nil {
		c.cancel()
		<-c.doneChan
	}
	if err := c.reader.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close Kafka reader")
	}
	logger.Info().Msg("Kafka consumer stopped")
}

// consume читает и обрабатывает сообщения из Kafka
func (c *KafkaConsumer) consume(ctx context.Context) {
	defer close(c.doneChan)

	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			metrics.RecordKafkaError(serviceName, c.topic, "consume")
			logger.Error().Err(err).Str("topic", c.topic).Msg("Error fetching message")

			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		metrics.RecordKafkaMessageConsumed(serviceName, c.topic, c.groupID)

		err = c.processMessage(ctx, message)
		switch {
		case errors.Is(err, errMalformedEvent):
			// такое сообщение никогда не обработается, коммитим и идем дальше
			logger.Warn().Err(err).Int64("offset", message.Offset).Msg("Skipping malformed message")
		case err != nil:
			// не коммитим offset - сообщение будет повторно обработано после ребаланса
			logger.Error().Err(err).Int64("offset", message.Offset).Msg("Error processing message")
			continue
		}

		if err := c.reader.CommitMessages(ctx, message); err != nil && ctx.Err() == nil {
			metrics.RecordKafkaError(serviceName, c.topic, "commit")
			logger.Error().Err(err).Int64("offset", message.Offset).Msg("Error committing message")
		}
	}
}

// processMessage обрабатывает одно сообщение из Kafka
func (c *KafkaConsumer) processMessage(ctx context.Context, message kafka.Message) error {
	var event entity.ProductEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}

	logger.Debug().
		Str("event_type", event.EventType).
		Int64("product_id", event.ProductID).
		Int64("offset", message.Offset).
		Int("partition", message.Partition).
		Msg("Received product event")

	if err := c.cleanupSvc.HandleProductEvent(ctx, &event); err != nil {
		return fmt.Errorf("failed to process product event: %w", err)
	}

	return nil
}

// GetStats возвращает статистику consumer
func (c *KafkaConsumer) GetStats() kafka.ReaderStats {
	return c.reader.Stats()
}
