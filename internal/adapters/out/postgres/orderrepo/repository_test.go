package orderrepo_test

import (
	"testing"
	"time"

	"cafe/internal/adapters/out/postgres/orderrepo"
	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
	"cafe/internal/core/ports"
	"cafe/internal/pkg/errs"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&orderrepo.OrderDTO{}, &orderrepo.LineItemDTO{}))
	return db
}

func newOrder(t *testing.T, merchantID kernel.UUID, number string, placedAt time.Time) *order.Order {
	t.Helper()
	o, err := order.NewOrder(
		kernel.NewUUID(),
		number,
		merchantID,
		kernel.MustMoney("189"),
		placedAt,
		order.Fulfillment{Channel: order.DineInTable, Location: "T4"},
		order.Contact{Name: "Ravi", Phone: "9000000001"},
	)
	require.NoError(t, err)
	return o
}

func newItems(t *testing.T) []order.LineItem {
	t.Helper()
	x, err := order.NewLineItem("X", "first", 2, kernel.MustMoney("50"), "no onion")
	require.NoError(t, err)
	y, err := order.NewLineItem("Y", "", 1, kernel.MustMoney("80"), "")
	require.NoError(t, err)
	return []order.LineItem{x, y}
}

func TestGormOrderRepository_AddAndGet(t *testing.T) {
	ctx := t.Context()
	repo := orderrepo.NewGormOrderRepository(initTestDB(t))
	placed := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	o := newOrder(t, kernel.NewUUID(), "A1001", placed)

	require.NoError(t, repo.Add(ctx, o, newItems(t)))

	got, err := repo.Get(ctx, o.ID())
	require.NoError(t, err)
	assert.Equal(t, o.Number(), got.Number())
	assert.Equal(t, order.Received, got.Status())
	assert.True(t, got.Total().IsEqual(o.Total()))
	assert.True(t, got.PlacedAt().Equal(placed))
	assert.Equal(t, o.Fulfillment(), got.Fulfillment())
	assert.Equal(t, o.Contact(), got.Contact())

	items, err := repo.GetItems(ctx, o.ID())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "X", items[0].Name())
	assert.Equal(t, "no onion", items[0].Instruction())
	assert.True(t, items[0].LineTotal().IsEqual(kernel.MustMoney("100")))
	assert.Equal(t, "Y", items[1].Name())
}

func TestGormOrderRepository_GetMissing(t *testing.T) {
	repo := orderrepo.NewGormOrderRepository(initTestDB(t))

	_, err := repo.Get(t.Context(), kernel.NewUUID())

	require.ErrorIs(t, err, errs.ErrObjectNotFound)
}

func TestGormOrderRepository_UpdateStatus(t *testing.T) {
	ctx := t.Context()
	repo := orderrepo.NewGormOrderRepository(initTestDB(t))
	o := newOrder(t, kernel.NewUUID(), "A1002", time.Now().Add(-time.Minute))
	require.NoError(t, repo.Add(ctx, o, newItems(t)))

	t.Run("applies when the expected status matches", func(t *testing.T) {
		at := time.Now().UTC().Truncate(time.Microsecond)

		require.NoError(t, repo.UpdateStatus(ctx, o.ID(), order.Received, order.Confirmed, at))

		got, err := repo.Get(ctx, o.ID())
		require.NoError(t, err)
		assert.Equal(t, order.Confirmed, got.Status())
		assert.True(t, got.StatusChangedAt().Equal(at))
	})

	t.Run("conflicts when the stored status moved on", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, o.ID(), order.Received, order.Confirmed, time.Now())

		require.ErrorIs(t, err, ports.ErrStatusConflict)
		assert.Contains(t, err.Error(), "confirmed")
	})

	t.Run("reports a missing order", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, kernel.NewUUID(), order.Received, order.Confirmed, time.Now())

		require.ErrorIs(t, err, errs.ErrObjectNotFound)
	})
}

func TestGormOrderRepository_MarkPointsCredited(t *testing.T) {
	ctx := t.Context()
	repo := orderrepo.NewGormOrderRepository(initTestDB(t))
	o := newOrder(t, kernel.NewUUID(), "A1003", time.Now().Add(-time.Hour))
	require.NoError(t, repo.Add(ctx, o, newItems(t)))

	require.ErrorIs(t, repo.MarkPointsCredited(ctx, o.ID()), order.ErrPointsNotCreditable)

	path := []order.Status{order.Received, order.Confirmed, order.Preparing, order.OnTheWay, order.Completed}
	for i := 1; i < len(path); i++ {
		require.NoError(t, repo.UpdateStatus(ctx, o.ID(), path[i-1], path[i], time.Now()))
	}

	require.NoError(t, repo.MarkPointsCredited(ctx, o.ID()))
	require.ErrorIs(t, repo.MarkPointsCredited(ctx, o.ID()), order.ErrPointsAlreadyCredited)

	got, err := repo.Get(ctx, o.ID())
	require.NoError(t, err)
	assert.True(t, got.PointsCredited())
}

func TestGormOrderRepository_ListByMerchant(t *testing.T) {
	ctx := t.Context()
	repo := orderrepo.NewGormOrderRepository(initTestDB(t))
	merchant := kernel.NewUUID()
	now := time.Now().UTC()

	later := newOrder(t, merchant, "A2", now.Add(-time.Minute))
	earlier := newOrder(t, merchant, "A1", now.Add(-2*time.Minute))
	oldCancelled := newOrder(t, merchant, "A0", now.Add(-48*time.Hour))
	other := newOrder(t, kernel.NewUUID(), "B1", now.Add(-time.Minute))

	for _, o := range []*order.Order{later, earlier, oldCancelled, other} {
		require.NoError(t, repo.Add(ctx, o, newItems(t)))
	}
	require.NoError(t, repo.UpdateStatus(ctx, oldCancelled.ID(), order.Received, order.Cancelled, now.Add(-47*time.Hour)))

	orders, err := repo.ListByMerchant(ctx, merchant, 24*time.Hour)
	require.NoError(t, err)

	require.Len(t, orders, 2)
	assert.Equal(t, "A1", orders[0].Number())
	assert.Equal(t, "A2", orders[1].Number())
}

func TestGormOrderRepository_AssignStaff(t *testing.T) {
	ctx := t.Context()
	repo := orderrepo.NewGormOrderRepository(initTestDB(t))
	o := newOrder(t, kernel.NewUUID(), "A1004", time.Now())
	require.NoError(t, repo.Add(ctx, o, newItems(t)))
	staff := kernel.NewUUID()

	require.NoError(t, repo.AssignStaff(ctx, o.ID(), staff))

	got, err := repo.Get(ctx, o.ID())
	require.NoError(t, err)
	require.NotNil(t, got.Staff())
	assert.True(t, got.Staff().IsEqual(staff))
}

func TestToSnapshot_RejectsUnknownStatus(t *testing.T) {
	_, err := orderrepo.ToSnapshot(orderrepo.OrderDTO{
		ID:         kernel.NewUUID().Bytes(),
		MerchantID: kernel.NewUUID().Bytes(),
		Status:     "delivered",
		Channel:    "takeaway",
	})

	require.ErrorIs(t, err, errs.ErrValueIsInvalid)
}
