package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink relays every event published to a Hub[T] onto a Kafka topic as
// a JSON-encoded audit record. Grounded on UmarFarooq-MP-Loki's
// infra/kafka/producer.go writer setup (SPEC_FULL.md Part C, trade-event
// audit stream).
type KafkaSink[T any] struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewKafkaSink dials no connection up front; kafka-go writers connect
// lazily on first write.
func NewKafkaSink[T any](brokers []string, topic string, logger *slog.Logger) *KafkaSink[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaSink[T]{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			BatchTimeout: 10 * time.Millisecond,
		},
		logger: logger,
	}
}

// Run subscribes to hub and streams every event to the configured topic
// until ctx is cancelled. Intended to be run in its own goroutine.
func (s *KafkaSink[T]) Run(ctx context.Context, hub *Hub[T], keyFn func(T) []byte, bufSize int) {
	id, ch := hub.Subscribe(bufSize)
	defer hub.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			value, err := json.Marshal(event)
			if err != nil {
				s.logger.Error("bus: failed to marshal event for kafka", slog.String("error", err.Error()))
				continue
			}
			var key []byte
			if keyFn != nil {
				key = keyFn(event)
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = s.writer.WriteMessages(writeCtx, kafka.Message{Key: key, Value: value})
			cancel()
			if err != nil {
				s.logger.Error("bus: kafka write failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Close flushes and closes the underlying writer.
func (s *KafkaSink[T]) Close() error {
	return s.writer.Close()
}
