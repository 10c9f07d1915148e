package pgnotify_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cafe/internal/adapters/out/pgnotify"
	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
	"cafe/internal/core/ports"
	"cafe/internal/pkg/logging"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockListener struct {
	mock.Mock
	notify chan *pq.Notification
}

func newMockListener() *MockListener {
	return &MockListener{notify: make(chan *pq.Notification, 8)}
}

func (m *MockListener) Listen(channel string) error {
	return m.Called(channel).Error(0)
}

func (m *MockListener) Unlisten(channel string) error {
	return m.Called(channel).Error(0)
}

func (m *MockListener) Ping() error {
	return nil
}

func (m *MockListener) Close() error {
	return m.Called().Error(0)
}

func (m *MockListener) NotificationChannel() <-chan *pq.Notification {
	return m.notify
}

func orderPayload(op string, id, merchantID kernel.UUID, status string) string {
	return fmt.Sprintf(`{"table":"orders","op":%q,"record":{
		"id":%q,"number":"A1001","merchant_id":%q,"status":%q,"total":189.00,
		"placed_at":"2026-10-14T12:00:00.123456+00:00","status_changed_at":"2026-10-14T12:01:00+00:00",
		"channel":"delivery","location":"Block C","contact_name":"Asha","contact_phone":"9000000000",
		"staff_id":null,"points_credited":false}}`, op, id.String(), merchantID.String(), status)
}

func TestParseNotification(t *testing.T) {
	id, merchantID := kernel.NewUUID(), kernel.NewUUID()

	n, err := pgnotify.ParseNotification(orderPayload("UPDATE", id, merchantID, "preparing"))
	require.NoError(t, err)

	assert.Equal(t, "orders", n.Event.Table)
	assert.Equal(t, ports.PushUpdate, n.Event.Operation)
	assert.Equal(t, id, n.Event.Order.ID)
	assert.Equal(t, order.Preparing, n.Event.Order.Status)
	assert.True(t, n.Event.Order.Total.IsEqual(kernel.MustMoney("189")))
	assert.Equal(t, time.Date(2026, 10, 14, 12, 0, 0, 123456000, time.UTC), n.Event.Order.PlacedAt)
	assert.Equal(t, order.DeliveryToBlock, n.Event.Order.Fulfillment.Channel)

	assert.True(t, n.Matches(ports.PushFilter{Column: "merchant_id", Value: merchantID.String()}))
	assert.False(t, n.Matches(ports.PushFilter{Column: "merchant_id", Value: kernel.NewUUID().String()}))
	assert.False(t, n.Matches(ports.PushFilter{Column: "staff_id", Value: "x"}))
	assert.True(t, n.Matches(ports.PushFilter{}))
}

func TestParseNotification_Rejects(t *testing.T) {
	for name, extra := range map[string]string{
		"not json":       "{",
		"delete":         `{"table":"orders","op":"DELETE","record":{}}`,
		"unknown status": orderPayload("INSERT", kernel.NewUUID(), kernel.NewUUID(), "delivered"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := pgnotify.ParseNotification(extra)
			require.Error(t, err)
		})
	}
}

func TestSubscriber_ListenOncePerTable(t *testing.T) {
	l := newMockListener()
	l.On("Listen", "orders_changes").Return(nil).Once()
	l.On("Unlisten", "orders_changes").Return(nil).Once()

	s := pgnotify.NewSubscriberWithListener(l, logging.Discard())
	noop := func(ports.PushEvent) {}

	a, err := s.Subscribe(t.Context(), "orders", ports.PushFilter{Column: "merchant_id", Value: "a"}, noop)
	require.NoError(t, err)
	b, err := s.Subscribe(t.Context(), "orders", ports.PushFilter{Column: "merchant_id", Value: "b"}, noop)
	require.NoError(t, err)
	assert.NotEqual(t, a.Key(), b.Key())

	require.NoError(t, s.Unsubscribe(a))
	l.AssertNotCalled(t, "Unlisten", "orders_changes")

	require.NoError(t, s.Unsubscribe(b))
	require.NoError(t, s.Unsubscribe(b), "second unsubscribe is a no-op")
	l.AssertExpectations(t)
}

func TestSubscriber_RoutesByFilter(t *testing.T) {
	l := newMockListener()
	l.On("Listen", "orders_changes").Return(nil)

	reconnected := make(chan struct{}, 1)
	s := pgnotify.NewSubscriberWithListener(l, logging.Discard(),
		pgnotify.WithReconnectHook(func() { reconnected <- struct{}{} }))

	merchantA, merchantB := kernel.NewUUID(), kernel.NewUUID()
	gotA := make(chan ports.PushEvent, 4)
	gotB := make(chan ports.PushEvent, 4)

	_, err := s.Subscribe(t.Context(), "orders", ports.PushFilter{Column: "merchant_id", Value: merchantA.String()},
		func(e ports.PushEvent) { gotA <- e })
	require.NoError(t, err)
	_, err = s.Subscribe(t.Context(), "orders", ports.PushFilter{Column: "merchant_id", Value: merchantB.String()},
		func(e ports.PushEvent) { gotB <- e })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go s.Run(ctx)

	orderID := kernel.NewUUID()
	l.notify <- &pq.Notification{Channel: "orders_changes", Extra: orderPayload("INSERT", orderID, merchantA, "received")}
	l.notify <- &pq.Notification{Channel: "orders_changes", Extra: "garbage"}
	l.notify <- nil

	select {
	case e := <-gotA:
		assert.Equal(t, orderID, e.Order.ID)
		assert.Equal(t, ports.PushInsert, e.Operation)
	case <-time.After(2 * time.Second):
		t.Fatal("merchant A did not receive its notification")
	}

	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("reconnect hook not called")
	}

	assert.Empty(t, gotB)
}

func TestSubscriber_Close(t *testing.T) {
	l := newMockListener()
	l.On("Close").Return(nil).Once()
	s := pgnotify.NewSubscriberWithListener(l, logging.Discard())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Subscribe(t.Context(), "orders", ports.PushFilter{}, func(ports.PushEvent) {})
	require.ErrorIs(t, err, pgnotify.ErrSubscriberClosed)
	l.AssertExpectations(t)
}
