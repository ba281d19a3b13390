package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"grocery-service/models"
)

// ProducerAPI abstracts event publishing for tests.
type ProducerAPI interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
	Close() error
}

// OrderEvent is published on order creation, cancellation and status change.
type OrderEvent struct {
	Type      string             `json:"type"`
	OrderID   string             `json:"order_id"`
	UserID    string             `json:"user_id"`
	Status    models.OrderStatus `json:"status"`
	Total     float64            `json:"total_amount"`
	Timestamp time.Time          `json:"timestamp"`
}

const (
	EventOrderCreated       = "order.created"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusChanged = "order.status_changed"
)

type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a producer for the given brokers and topic.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{writer: writer}
}

// PublishOrderEvent marshals and sends the event keyed by order id.
func (p *Producer) PublishOrderEvent(ctx context.Context, event OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID),
		Value: data,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
