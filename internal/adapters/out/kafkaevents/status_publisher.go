// Package kafkaevents publishes order lifecycle events to a Kafka topic.
package kafkaevents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cafe/internal/core/ports"

	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic           = "cafe.order-status"
	eventTypeHeader        = "event_type"
	statusChangedEventType = "order.status_changed"
)

// StatusChangedMessage is the JSON value of a status event. Messages are
// keyed by order id so one order's events stay on one partition.
type StatusChangedMessage struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	MerchantID  string    `json:"merchant_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	ChangedAt   time.Time `json:"changed_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// StatusEventPublisher implements ports.EventPublisher.
type StatusEventPublisher struct {
	writer messageWriter
}

// NewStatusEventPublisher builds a synchronous writer that waits for the
// partition leader's acknowledgement.
func NewStatusEventPublisher(brokers []string, topic string) *StatusEventPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return newStatusEventPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	})
}

func newStatusEventPublisher(w messageWriter) *StatusEventPublisher {
	return &StatusEventPublisher{writer: w}
}

func (p *StatusEventPublisher) PublishStatusChanged(ctx context.Context, event ports.StatusChangedEvent) error {
	value, err := json.Marshal(StatusChangedMessage{
		OrderID:     event.OrderID.String(),
		OrderNumber: event.OrderNumber,
		MerchantID:  event.MerchantID.String(),
		From:        event.From.String(),
		To:          event.To.String(),
		ChangedAt:   event.ChangedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID.String()),
		Value: value,
		Time:  event.ChangedAt,
		Headers: []kafka.Header{
			{Key: eventTypeHeader, Value: []byte(statusChangedEventType)},
		},
	}); err != nil {
		return fmt.Errorf("write status event for order %s: %w", event.OrderID, err)
	}
	return nil
}

func (p *StatusEventPublisher) Close() error {
	return p.writer.Close()
}
