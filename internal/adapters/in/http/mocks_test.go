package http_test

import (
	"context"
	"sync"
	"time"

	dispatch "cafe/internal/core/application/printing"
	"cafe/internal/core/application/usecases/commands"
	"cafe/internal/core/application/usecases/queries"
	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
	"cafe/internal/core/ports"

	"github.com/stretchr/testify/mock"
)

type MockTransitions struct{ mock.Mock }

func (m *MockTransitions) RequestTransition(ctx context.Context, cmd commands.RequestTransitionCommand) (order.Snapshot, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(order.Snapshot), args.Error(1)
}

type MockOrderReader struct{ mock.Mock }

func (m *MockOrderReader) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderReader) GetItems(ctx context.Context, id kernel.UUID) ([]order.LineItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.LineItem), args.Error(1)
}

func (m *MockOrderReader) ListByMerchant(ctx context.Context, merchantID kernel.UUID, since time.Duration) ([]*order.Order, error) {
	args := m.Called(ctx, merchantID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

type MockDispatcher struct{ mock.Mock }

func (m *MockDispatcher) Dispatch(ctx context.Context, o order.Snapshot, items []order.LineItem) dispatch.Result {
	args := m.Called(ctx, o, items)
	return args.Get(0).(dispatch.Result)
}

type MockCreateOrder struct{ mock.Mock }

func (m *MockCreateOrder) Handle(ctx context.Context, cmd commands.CreateOrderCommand) error {
	return m.Called(ctx, cmd).Error(0)
}

type MockAssignStaff struct{ mock.Mock }

func (m *MockAssignStaff) Handle(ctx context.Context, cmd commands.AssignStaffCommand) error {
	return m.Called(ctx, cmd).Error(0)
}

type MockSaveProfile struct{ mock.Mock }

func (m *MockSaveProfile) Handle(ctx context.Context, cmd commands.SavePrinterProfileCommand) error {
	return m.Called(ctx, cmd).Error(0)
}

type MockReprint struct{ mock.Mock }

func (m *MockReprint) Handle(ctx context.Context, cmd commands.ReprintCommand) (dispatch.Result, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(dispatch.Result), args.Error(1)
}

type MockActiveOrders struct{ mock.Mock }

func (m *MockActiveOrders) Handle(ctx context.Context, query queries.GetActiveOrdersQuery) ([]queries.GetActiveOrdersQueryResponse, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]queries.GetActiveOrdersQueryResponse), args.Error(1)
}

type MockInvalidator struct{ mock.Mock }

func (m *MockInvalidator) Invalidate(merchantID kernel.UUID) {
	m.Called(merchantID)
}

type fakeHandle string

func (h fakeHandle) Key() string { return string(h) }

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
