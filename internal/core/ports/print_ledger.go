package ports

import (
	"context"
	"time"

	"cafe/internal/core/domain/model/kernel"
)

// PrintLedger is the idempotency store of automatic dispatches, keyed by order id.
//
// Reserve is an atomic check-and-set: exactly one concurrent caller gets true.
// A reservation becomes permanent with Commit or is dropped with Release.
// Evict removes every record older than the cutoff.
type PrintLedger interface {
	Reserve(ctx context.Context, orderID kernel.UUID, at time.Time) (bool, error)
	Commit(ctx context.Context, orderID kernel.UUID, at time.Time) error
	Release(ctx context.Context, orderID kernel.UUID) error
	Evict(ctx context.Context, before time.Time) (int, error)
}
