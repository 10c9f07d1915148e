package lifecycle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"cafe/internal/core/application/printing"
	"cafe/internal/core/application/usecases/commands"
	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
	"cafe/internal/core/ports"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderRepository struct{ mock.Mock }

func (m *MockOrderRepository) Add(ctx context.Context, o *order.Order, items []order.LineItem) error {
	args := m.Called(ctx, o, items)
	return args.Error(0)
}

func (m *MockOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) GetItems(ctx context.Context, id kernel.UUID) ([]order.LineItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.LineItem), args.Error(1)
}

func (m *MockOrderRepository) ListByMerchant(ctx context.Context, merchantID kernel.UUID, since time.Duration) ([]*order.Order, error) {
	args := m.Called(ctx, merchantID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id kernel.UUID, from, to order.Status, at time.Time) error {
	args := m.Called(ctx, id, from, to, at)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkPointsCredited(ctx context.Context, id kernel.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrderRepository) AssignStaff(ctx context.Context, id kernel.UUID, staffID kernel.UUID) error {
	args := m.Called(ctx, id, staffID)
	return args.Error(0)
}

type MockOrderUoW struct{ mock.Mock }

func (m *MockOrderUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockOrderUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockOrderUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) OrderRepository() ports.OrderRepository {
	args := m.Called()
	return args.Get(0).(ports.OrderRepository)
}

type MockOrderUoWFactory struct{ mock.Mock }

func (m *MockOrderUoWFactory) Create() commands.OrderUoW {
	args := m.Called()
	return args.Get(0).(commands.OrderUoW)
}

type MockDispatcher struct{ mock.Mock }

func (m *MockDispatcher) Dispatch(ctx context.Context, o order.Snapshot, items []order.LineItem) printing.Result {
	args := m.Called(ctx, o, items)
	return args.Get(0).(printing.Result)
}

type MockLoyaltyCreditor struct{ mock.Mock }

func (m *MockLoyaltyCreditor) Credit(ctx context.Context, completed order.Snapshot) error {
	args := m.Called(ctx, completed)
	return args.Error(0)
}

type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) PublishStatusChanged(ctx context.Context, event ports.StatusChangedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type fakeHandle string

func (h fakeHandle) Key() string { return string(h) }

// FakePushSubscriber keeps one callback per registration and lets tests
// deliver row changes.
type FakePushSubscriber struct {
	mu        sync.Mutex
	callbacks map[string]func(ports.PushEvent)
}

func newFakePush() *FakePushSubscriber {
	return &FakePushSubscriber{callbacks: make(map[string]func(ports.PushEvent))}
}

func (f *FakePushSubscriber) Subscribe(_ context.Context, table string, filter ports.PushFilter, cb func(ports.PushEvent)) (ports.SubscriptionHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := table + "?" + filter.String()
	f.callbacks[key] = cb
	return fakeHandle(key), nil
}

func (f *FakePushSubscriber) Unsubscribe(h ports.SubscriptionHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.callbacks, h.Key())
	return nil
}

func (f *FakePushSubscriber) registered(merchantID kernel.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.callbacks["orders?merchant_id=eq."+merchantID.String()]
	return ok
}

func (f *FakePushSubscriber) Emit(op ports.PushOperation, s order.Snapshot) {
	f.mu.Lock()
	cb, ok := f.callbacks["orders?merchant_id=eq."+s.MerchantID.String()]
	f.mu.Unlock()
	if ok {
		cb(ports.PushEvent{Table: "orders", Operation: op, Order: s})
	}
}

var (
	base     = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	placedAt = base.Add(-time.Minute)
)

func newOrder(t *testing.T, merchantID kernel.UUID, status order.Status) *order.Order {
	t.Helper()
	o, err := order.RestoreOrder(order.Snapshot{
		ID:              kernel.NewUUID(),
		Number:          "A1001",
		MerchantID:      merchantID,
		Status:          status,
		Total:           kernel.MustMoney("189"),
		PlacedAt:        placedAt,
		StatusChangedAt: placedAt,
		Fulfillment:     order.Fulfillment{Channel: order.DeliveryToBlock, Location: "Block C"},
		Contact:         order.Contact{Name: "Meera", Phone: "90000 11111"},
	})
	require.NoError(t, err)
	return o
}

// copyOf returns an independent aggregate with the same state, as a fresh
// read from the record store would.
func copyOf(t *testing.T, o *order.Order) *order.Order {
	t.Helper()
	c, err := order.RestoreOrder(o.Snapshot())
	require.NoError(t, err)
	return c
}

type fixture struct {
	repo       *MockOrderRepository
	uow        *MockOrderUoW
	factory    *MockOrderUoWFactory
	dispatcher *MockDispatcher
	loyalty    *MockLoyaltyCreditor
	events     *MockEventPublisher
}

func newFixture() *fixture {
	f := &fixture{
		repo:       new(MockOrderRepository),
		uow:        new(MockOrderUoW),
		factory:    new(MockOrderUoWFactory),
		dispatcher: new(MockDispatcher),
		loyalty:    new(MockLoyaltyCreditor),
		events:     new(MockEventPublisher),
	}
	f.factory.On("Create").Return(f.uow)
	f.uow.On("Begin", mock.Anything).Return(nil)
	f.uow.On("OrderRepository").Return(f.repo)
	f.uow.On("Commit", mock.Anything).Return(nil)
	f.uow.On("Rollback", mock.Anything).Return(nil)
	return f
}

func transition(t *testing.T, id kernel.UUID, target order.Status) commands.RequestTransitionCommand {
	t.Helper()
	cmd, err := commands.NewRequestTransitionCommand(id, target, time.Time{})
	require.NoError(t, err)
	return cmd
}
