package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/nirmalhandloom/storebackend/logger"
)

const (
	ProductCreated  = "product.created"
	ProductUpdated  = "product.updated"
	ProductDeleted  = "product.deleted"
	ProductReviewed = "product.reviewed"
	OrderCreated    = "order.created"
	OrderPaid       = "order.paid"
	OrderDelivered  = "order.delivered"
)

// Event is the envelope written for every domain event.
type Event struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source"`
	RequestID     string          `json:"request_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

func NewEvent(eventType, aggregateID, aggregateType string, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Timestamp:     time.Now().UTC(),
		Data:          raw,
	}, nil
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt *Event) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a single topic keyed by aggregate id.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	source string
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic, source string, logger *slog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return newKafkaPublisher(w, topic, source, logger)
}

func newKafkaPublisher(w messageWriter, topic, source string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, source: source, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt *Event) error {
	if evt.Source == "" {
		evt.Source = p.source
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.AggregateID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.EventType)},
			{Key: "source", Value: []byte(evt.Source)},
		},
	}
	if evt.RequestID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "request_id", Value: []byte(evt.RequestID)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", p.topic),
			slog.String("event_type", evt.EventType),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("publish event to %s: %w", p.topic, err)
	}

	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", p.topic),
		slog.String("event_type", evt.EventType),
		slog.String("aggregate_id", evt.AggregateID),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, *Event) error { return nil }
func (Noop) Close() error                          { return nil }

// Emit builds and publishes an event, logging instead of failing. Domain
// writes have already committed by the time events go out.
func Emit(ctx context.Context, pub Publisher, log *slog.Logger, eventType, aggregateID, aggregateType string, data any) {
	if pub == nil {
		return
	}
	evt, err := NewEvent(eventType, aggregateID, aggregateType, data)
	if err != nil {
		log.ErrorContext(ctx, "build event", slog.String("event_type", eventType), slog.String("error", err.Error()))
		return
	}
	evt.RequestID = logger.RequestIDFromContext(ctx)
	if err := pub.Publish(ctx, evt); err != nil {
		log.WarnContext(ctx, "event dropped", slog.String("event_type", eventType), slog.String("error", err.Error()))
	}
}
