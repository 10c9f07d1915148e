package commands_test

import (
	"context"
	"time"

	"cafe/internal/core/application/usecases/commands"
	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
	"cafe/internal/core/domain/model/printing"
	"cafe/internal/core/ports"

	"github.com/stretchr/testify/mock"
)

type MockOrderRepository struct{ mock.Mock }

func (m *MockOrderRepository) Add(ctx context.Context, o *order.Order, items []order.LineItem) error {
	args := m.Called(ctx, o, items)
	return args.Error(0)
}

func (m *MockOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if o := args.Get(0); o != nil {
		return o.(*order.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) GetItems(ctx context.Context, id kernel.UUID) ([]order.LineItem, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]order.LineItem), args.Error(1)
}

func (m *MockOrderRepository) ListByMerchant(ctx context.Context, merchantID kernel.UUID, since time.Duration) ([]*order.Order, error) {
	args := m.Called(ctx, merchantID, since)
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

type MockProfileRepository struct{ mock.Mock }

func (m *MockProfileRepository) Get(ctx context.Context, merchantID kernel.UUID) (printing.MerchantProfile, error) {
	args := m.Called(ctx, merchantID)
	return args.Get(0).(printing.MerchantProfile), args.Error(1)
}

func (m *MockProfileRepository) Save(ctx context.Context, profile printing.MerchantProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

type MockProfileUoW struct{ mock.Mock }

func (m *MockProfileUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockProfileUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockProfileUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockProfileUoW) MerchantProfileRepository() ports.MerchantProfileRepository {
	args := m.Called()
	return args.Get(0).(ports.MerchantProfileRepository)
}

type MockProfileUoWFactory struct{ mock.Mock }

func (m *MockProfileUoWFactory) Create() commands.ProfileUoW {
	args := m.Called()
	return args.Get(0).(commands.ProfileUoW)
}

type MockInvalidator struct{ mock.Mock }

func (m *MockInvalidator) Invalidate(merchantID kernel.UUID) {
	m.Called(merchantID)
}

func lineItems() []order.LineItem {
	tea, _ := order.NewLineItem("Masala Chai", "", 2, kernel.MustMoney("20"), "less sugar")
	toast, _ := order.NewLineItem("Bun Maska", "butter bun", 1, kernel.MustMoney("35"), "")
	return []order.LineItem{tea, toast}
}

func placedOrder(status order.Status) *order.Order {
	placed := time.Date(2026, 10, 14, 11, 30, 0, 0, time.UTC)
	o, err := order.RestoreOrder(order.Snapshot{
		ID:              kernel.NewUUID(),
		Number:          "A1001",
		MerchantID:      kernel.NewUUID(),
		Status:          status,
		Total:           kernel.MustMoney("75"),
		PlacedAt:        placed,
		StatusChangedAt: placed,
		Fulfillment:     order.Fulfillment{Channel: order.Takeaway},
	})
	if err != nil {
		panic(err)
	}
	return o
}
