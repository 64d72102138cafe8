// Package event delivers order transition events to downstream consumers.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sellerops/console/internal/domain/order"
	"github.com/sellerops/console/internal/infrastructure/logger"
	"github.com/sellerops/console/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Header names carried on every message.
const (
	HeaderEventType = "event-type"
	HeaderEventID   = "event-id"

	transitionEventType = "order.transitioned"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes transition events to one topic, keyed by order
// number so every event of an order lands on the same partition.
type KafkaPublisher struct {
	writer MessageWriter
	logger *zap.Logger
}

// NewKafkaWriter builds a synchronous writer for topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaPublisher wraps writer.
func NewKafkaPublisher(writer MessageWriter, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, logger: log}
}

// Publish writes one event. The current trace context travels in the
// message headers.
func (p *KafkaPublisher) Publish(ctx context.Context, event order.TransitionEvent) error {
	ctx, span := telemetry.StartSpan(ctx, "kafka.publish",
		telemetry.WithSpanKind(trace.SpanKindProducer),
		telemetry.WithAttribute("order.number", event.OrderNumber),
		telemetry.WithAttribute("order.to", string(event.To)),
	)
	defer span.End()

	msg, err := encode(ctx, event)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("event: publish %s: %w", event.EventID, err)
	}
	logger.Enrich(ctx, p.logger).Debug("Transition event published",
		zap.String("event_id", event.EventID),
		zap.String("order_number", event.OrderNumber),
	)
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encode(ctx context.Context, event order.TransitionEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("event: encode %s: %w", event.EventID, err)
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := []kafka.Header{
		{Key: HeaderEventType, Value: []byte(transitionEventType)},
		{Key: HeaderEventID, Value: []byte(event.EventID)},
	}
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return kafka.Message{
		Key:     []byte(event.OrderNumber),
		Value:   value,
		Headers: headers,
		Time:    event.At,
	}, nil
}

// Decode reads an event back from a message, returning the context carried
// in its headers.
func Decode(ctx context.Context, msg kafka.Message) (context.Context, order.TransitionEvent, error) {
	var event order.TransitionEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return ctx, event, fmt.Errorf("event: decode: %w", err)
	}
	carrier := propagation.MapCarrier{}
	for _, h := range msg.Headers {
		carrier[h.Key] = string(h.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier), event, nil
}

// Ensure KafkaPublisher implements order.EventPublisher
var _ order.EventPublisher = (*KafkaPublisher)(nil)
