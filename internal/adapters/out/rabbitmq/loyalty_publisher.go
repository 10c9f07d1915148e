// Package rabbitmq hands completed orders to the loyalty service over AMQP.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"cafe/internal/core/domain/model/order"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange   = "loyalty"
	CreditRoutingKey  = "loyalty.credit"
	creditMessageType = "loyalty.credit_requested"
)

// ErrPublishNacked is returned when the broker refuses a credit message.
var ErrPublishNacked = errors.New("broker did not acknowledge the loyalty message")

// CreditMessage is the body of a loyalty credit request. The loyalty service
// computes points from Total and deduplicates on OrderID.
type CreditMessage struct {
	OrderID      string    `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	MerchantID   string    `json:"merchant_id"`
	Total        string    `json:"total"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	CompletedAt  time.Time `json:"completed_at"`
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// LoyaltyPublisher implements ports.LoyaltyCreditor with publisher confirms:
// Credit returns only after the broker has acknowledged the message.
type LoyaltyPublisher struct {
	conn     *amqp.Connection
	ch       channel
	acks     <-chan amqp.Confirmation
	exchange string

	// confirms arrive in publish order, so publishes are serialised
	mu        sync.Mutex
	published uint64
}

// Dial connects, declares the durable topic exchange and enables confirms.
func Dial(url, exchange string) (*LoyaltyPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	p := newLoyaltyPublisher(ch, acks, exchange)
	p.conn = conn
	return p, nil
}

func newLoyaltyPublisher(ch channel, acks <-chan amqp.Confirmation, exchange string) *LoyaltyPublisher {
	return &LoyaltyPublisher{ch: ch, acks: acks, exchange: exchange}
}

// Credit publishes a persistent credit request for a completed order.
func (p *LoyaltyPublisher) Credit(ctx context.Context, completed order.Snapshot) error {
	if completed.Status != order.Completed {
		return fmt.Errorf("order %s is %s, only completed orders earn points", completed.ID, completed.Status)
	}

	body, err := json.Marshal(CreditMessage{
		OrderID:      completed.ID.String(),
		OrderNumber:  completed.Number,
		MerchantID:   completed.MerchantID.String(),
		Total:        completed.Total.StringFixed(2),
		ContactPhone: completed.Contact.Phone,
		CompletedAt:  completed.StatusChangedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal credit message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, p.exchange, CreditRoutingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    completed.ID.String(),
		Type:         creditMessageType,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}); err != nil {
		return fmt.Errorf("publish credit for order %s: %w", completed.ID, err)
	}
	p.published++
	tag := p.published

	// Confirmations of earlier publishes whose wait timed out are skipped.
	for {
		select {
		case confirm, ok := <-p.acks:
			if !ok {
				return errors.New("rabbitmq channel closed before confirmation")
			}
			if confirm.DeliveryTag < tag {
				continue
			}
			if !confirm.Ack {
				return fmt.Errorf("%w: order %s", ErrPublishNacked, completed.ID)
			}
			return nil
		case <-ctx.Done():
			return fmt.Errorf("wait for confirmation of order %s: %w", completed.ID, ctx.Err())
		}
	}
}

func (p *LoyaltyPublisher) Close() error {
	var errList []error
	if p.ch != nil {
		errList = append(errList, p.ch.Close())
	}
	if p.conn != nil {
		errList = append(errList, p.conn.Close())
	}
	return errors.Join(errList...)
}
