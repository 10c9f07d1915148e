package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

// fakeChannel acknowledges every publish through acks the way a channel in
// confirm mode does, unless told otherwise.
type fakeChannel struct {
	acks      chan amqp.Confirmation
	published []published
	tag       uint64
	nack      bool
	silent    bool
	err       error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{acks: make(chan amqp.Confirmation, 8)}
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	f.tag++
	if !f.silent {
		f.acks <- amqp.Confirmation{DeliveryTag: f.tag, Ack: !f.nack}
	}
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func completedOrder(t *testing.T) order.Snapshot {
	t.Helper()
	return order.Snapshot{
		ID:              kernel.NewUUID(),
		Number:          "A1001",
		MerchantID:      kernel.NewUUID(),
		Status:          order.Completed,
		Total:           kernel.MustMoney("189.5"),
		PlacedAt:        time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
		StatusChangedAt: time.Date(2026, 10, 14, 9, 40, 0, 0, time.UTC),
		Contact:         order.Contact{Name: "Meera", Phone: "90000 11111"},
	}
}

func TestLoyaltyPublisher_Credit(t *testing.T) {
	ch := newFakeChannel()
	p := newLoyaltyPublisher(ch, ch.acks, DefaultExchange)
	completed := completedOrder(t)

	require.NoError(t, p.Credit(t.Context(), completed))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, DefaultExchange, got.exchange)
	assert.Equal(t, CreditRoutingKey, got.key)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, completed.ID.String(), got.msg.MessageId)

	var body CreditMessage
	require.NoError(t, json.Unmarshal(got.msg.Body, &body))
	assert.Equal(t, completed.ID.String(), body.OrderID)
	assert.Equal(t, "A1001", body.OrderNumber)
	assert.Equal(t, "189.50", body.Total)
	assert.Equal(t, "90000 11111", body.ContactPhone)
	assert.True(t, body.CompletedAt.Equal(completed.StatusChangedAt))
}

func TestLoyaltyPublisher_RejectsUncompletedOrder(t *testing.T) {
	ch := newFakeChannel()
	s := completedOrder(t)
	s.Status = order.OnTheWay

	err := newLoyaltyPublisher(ch, ch.acks, DefaultExchange).Credit(t.Context(), s)

	require.Error(t, err)
	assert.Empty(t, ch.published)
}

func TestLoyaltyPublisher_Nack(t *testing.T) {
	ch := newFakeChannel()
	ch.nack = true

	err := newLoyaltyPublisher(ch, ch.acks, DefaultExchange).Credit(t.Context(), completedOrder(t))

	assert.ErrorIs(t, err, ErrPublishNacked)
}

func TestLoyaltyPublisher_PublishError(t *testing.T) {
	ch := newFakeChannel()
	ch.err = amqp.ErrClosed

	err := newLoyaltyPublisher(ch, ch.acks, DefaultExchange).Credit(t.Context(), completedOrder(t))

	assert.True(t, errors.Is(err, amqp.ErrClosed))
}

func TestLoyaltyPublisher_ConfirmTimeoutThenLateAck(t *testing.T) {
	ch := newFakeChannel()
	ch.silent = true
	p := newLoyaltyPublisher(ch, ch.acks, DefaultExchange)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Credit(ctx, completedOrder(t)), context.DeadlineExceeded)

	// The first message's confirmation arrives late and must not be taken
	// for the second one.
	ch.acks <- amqp.Confirmation{DeliveryTag: 1, Ack: false}
	ch.silent = false

	assert.NoError(t, p.Credit(t.Context(), completedOrder(t)))
}
