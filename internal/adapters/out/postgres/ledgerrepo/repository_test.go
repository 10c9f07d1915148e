package ledgerrepo_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cafe/internal/adapters/out/postgres/ledgerrepo"
	"cafe/internal/core/domain/model/kernel"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newLedger(t *testing.T) *ledgerrepo.GormPrintLedger {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&ledgerrepo.PrintRecordDTO{}))
	return ledgerrepo.NewGormPrintLedger(db)
}

func TestGormPrintLedger_ReserveOnce(t *testing.T) {
	ctx := t.Context()
	ledger := newLedger(t)
	orderID := kernel.NewUUID()
	now := time.Now()

	ok, err := ledger.Reserve(ctx, orderID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ledger.Reserve(ctx, orderID, now)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ledger.Commit(ctx, orderID, now))

	ok, err = ledger.Reserve(ctx, orderID, now)
	require.NoError(t, err)
	assert.False(t, ok, "committed records block new reservations")
}

func TestGormPrintLedger_ConcurrentReserve(t *testing.T) {
	ctx := t.Context()
	ledger := newLedger(t)
	orderID := kernel.NewUUID()

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ledger.Reserve(ctx, orderID, time.Now())
			if err == nil && ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestGormPrintLedger_Release(t *testing.T) {
	ctx := t.Context()
	ledger := newLedger(t)
	reservedOnly, committed := kernel.NewUUID(), kernel.NewUUID()
	now := time.Now()

	_, err := ledger.Reserve(ctx, reservedOnly, now)
	require.NoError(t, err)
	_, err = ledger.Reserve(ctx, committed, now)
	require.NoError(t, err)
	require.NoError(t, ledger.Commit(ctx, committed, now))

	require.NoError(t, ledger.Release(ctx, reservedOnly))
	require.NoError(t, ledger.Release(ctx, committed))

	ok, err := ledger.Reserve(ctx, reservedOnly, now)
	require.NoError(t, err)
	assert.True(t, ok, "released reservation can be claimed again")

	ok, err = ledger.Reserve(ctx, committed, now)
	require.NoError(t, err)
	assert.False(t, ok, "release never drops a committed record")
}

func TestGormPrintLedger_Evict(t *testing.T) {
	ctx := t.Context()
	ledger := newLedger(t)
	now := time.Now().UTC()
	old, fresh := kernel.NewUUID(), kernel.NewUUID()

	_, err := ledger.Reserve(ctx, old, now.Add(-48*time.Hour))
	require.NoError(t, err)
	_, err = ledger.Reserve(ctx, fresh, now)
	require.NoError(t, err)

	evicted, err := ledger.Evict(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)

	ok, err := ledger.Reserve(ctx, old, now)
	require.NoError(t, err)
	assert.True(t, ok)
}
