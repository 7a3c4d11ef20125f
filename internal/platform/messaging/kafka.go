package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	contractsv1 "sheepyard/contracts/gen/events/v1"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

const (
	moduleName = "internal/platform/messaging"

	localQueueSize   = 128
	eventTypeHeader  = "event_type"
	readerMinBytes   = 1
	readerMaxBytes   = 10e6
	readerMaxWait    = time.Second
	writeBatchWindow = 10 * time.Millisecond
)

// Bus is the event bus shared by the API and worker processes. Without
// brokers it fans events out in-process; with brokers every topic is written
// to and consumed from Kafka, so subscribers in other replicas see them too.
type Bus struct {
	brokers []string
	writer  *kafka.Writer
	logger  *slog.Logger

	mu          sync.RWMutex
	subscribers map[string][]chan contractsv1.Envelope
	readers     []*kafka.Reader
}

func NewBus(brokers []string, logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	bus := &Bus{
		logger:      logger,
		subscribers: make(map[string][]chan contractsv1.Envelope),
	}
	for _, broker := range brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			bus.brokers = append(bus.brokers, broker)
		}
	}
	if len(bus.brokers) > 0 {
		// Keyed by poll id so events of one poll stay ordered on one partition.
		bus.writer = &kafka.Writer{
			Addr:                   kafka.TCP(bus.brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           writeBatchWindow,
			MaxAttempts:            5,
			Compression:            kafka.Snappy,
			AllowAutoTopicCreation: true,
		}
	}
	return bus, nil
}

// External reports whether events travel through Kafka.
func (b *Bus) External() bool {
	return b.writer != nil
}

func (b *Bus) Publish(ctx context.Context, topic string, event contractsv1.Envelope) error {
	if b.writer != nil {
		return b.publishKafka(ctx, topic, event)
	}

	b.mu.RLock()
	subs := append([]chan contractsv1.Envelope(nil), b.subscribers[topic]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub <- event:
		default:
			b.logger.Warn("dropping event for slow subscriber",
				"event", "bus_publish_drop",
				"module", moduleName,
				"layer", "platform",
				"topic", topic,
				"event_id", event.EventID,
			)
		}
	}
	b.logger.Debug("event published",
		"event", "bus_publish",
		"module", moduleName,
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
	)
	return nil
}

func (b *Bus) publishKafka(ctx context.Context, topic string, event contractsv1.Envelope) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.EventID, err)
	}
	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(event.PartitionKey),
		Value:   value,
		Headers: []kafka.Header{{Key: eventTypeHeader, Value: []byte(event.EventType)}},
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		b.logger.Error("kafka publish failed",
			"event", "bus_kafka_publish_failed",
			"module", moduleName,
			"layer", "platform",
			"topic", topic,
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return fmt.Errorf("write event %s to kafka: %w", event.EventID, err)
	}
	return nil
}

// Subscribe delivers every event of topic to handler until ctx is done.
// Handler errors are logged; the event is not redelivered.
func (b *Bus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, contractsv1.Envelope) error,
) error {
	if b.writer != nil {
		return b.subscribeKafka(ctx, topic, consumerGroup, handler)
	}

	ch := make(chan contractsv1.Envelope, localQueueSize)
	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.removeSubscriber(topic, ch)
				return
			case event := <-ch:
				b.handle(ctx, topic, consumerGroup, event, handler)
			}
		}
	}()
	return nil
}

func (b *Bus) subscribeKafka(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, contractsv1.Envelope) error,
) error {
	if strings.TrimSpace(consumerGroup) == "" {
		return errors.New("kafka subscription requires a consumer group")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.brokers,
		Topic:       topic,
		GroupID:     consumerGroup,
		MinBytes:    readerMinBytes,
		MaxBytes:    readerMaxBytes,
		MaxWait:     readerMaxWait,
		StartOffset: kafka.LastOffset,
	})
	b.mu.Lock()
	b.readers = append(b.readers, reader)
	b.mu.Unlock()

	go func() {
		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) || ctx.Err() != nil {
					return
				}
				b.logger.Error("kafka read failed",
					"event", "bus_kafka_read_failed",
					"module", moduleName,
					"layer", "platform",
					"topic", topic,
					"consumer_group", consumerGroup,
					"error", err.Error(),
				)
				continue
			}
			var event contractsv1.Envelope
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				b.logger.Error("kafka event decode failed",
					"event", "bus_kafka_decode_failed",
					"module", moduleName,
					"layer", "platform",
					"topic", topic,
					"offset", msg.Offset,
					"error", err.Error(),
				)
				continue
			}
			b.handle(ctx, topic, consumerGroup, event, handler)
		}
	}()
	return nil
}

func (b *Bus) handle(
	ctx context.Context,
	topic string,
	consumerGroup string,
	event contractsv1.Envelope,
	handler func(context.Context, contractsv1.Envelope) error,
) {
	if err := handler(ctx, event); err != nil {
		b.logger.Error("consumer handler failed",
			"event", "bus_consume_failed",
			"module", moduleName,
			"layer", "platform",
			"topic", topic,
			"consumer_group", consumerGroup,
			"event_id", event.EventID,
			"event_type", event.EventType,
			"error", err.Error(),
		)
	}
}

func (b *Bus) removeSubscriber(topic string, target chan contractsv1.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.subscribers[topic]
	if len(items) == 0 {
		return
	}
	filtered := make([]chan contractsv1.Envelope, 0, len(items))
	for _, item := range items {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	b.subscribers[topic] = filtered
}

// Close flushes the Kafka writer and stops every reader.
func (b *Bus) Close() error {
	b.mu.Lock()
	readers := b.readers
	b.readers = nil
	b.mu.Unlock()

	var errs []error
	for _, reader := range readers {
		if err := reader.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.writer != nil {
		if err := b.writer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
