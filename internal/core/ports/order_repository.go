// Package ports defines the contracts between the core and the outside world:
// the order record store, printer configuration, the push channel, printer
// transports, the print ledger, loyalty and downstream event publishing.
package ports

import (
	"context"
	"errors"
	"time"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
)

// ErrStatusConflict is returned by UpdateStatus when the stored status no
// longer equals the expected one.
var ErrStatusConflict = errors.New("stored status does not match expected status")

// OrderReader is the read side of the order record store.
type OrderReader interface {
	// Get retrieves an order by id. Returns *errs.ObjectNotFoundError when absent.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// GetItems returns the line items of an order in insertion order.
	GetItems(ctx context.Context, orderID kernel.UUID) ([]order.LineItem, error)

	// ListByMerchant returns every non-terminal order of a merchant together
	// with orders that reached a terminal status within the last since window,
	// ordered by placement time.
	ListByMerchant(ctx context.Context, merchantID kernel.UUID, since time.Duration) ([]*order.Order, error)
}

// OrderRepository is the write side of the order record store.
type OrderRepository interface {
	OrderReader

	// Add persists a new order with its line items.
	Add(ctx context.Context, aggregate *order.Order, items []order.LineItem) error

	// UpdateStatus is a compare-and-set write: it sets status to `to` and the
	// status-changed timestamp to at only if the stored status is still `from`.
	// Returns ErrStatusConflict if it is not, *errs.ObjectNotFoundError if the
	// order does not exist.
	UpdateStatus(ctx context.Context, id kernel.UUID, from, to order.Status, at time.Time) error

	// MarkPointsCredited sets the points-credited flag on a completed order.
	// Returns order.ErrPointsAlreadyCredited if it was already set.
	MarkPointsCredited(ctx context.Context, id kernel.UUID) error

	// AssignStaff records the fulfilment staff member of an order.
	AssignStaff(ctx context.Context, id kernel.UUID, staffID kernel.UUID) error
}
