package ports

import (
	"context"
	"fmt"

	"cafe/internal/core/domain/model/order"
)

// PushOperation is the kind of row change delivered by the push channel.
type PushOperation string

const (
	PushInsert PushOperation = "INSERT"
	PushUpdate PushOperation = "UPDATE"
)

// PushFilter narrows a push registration to rows whose Column equals Value.
type PushFilter struct {
	Column string
	Value  string
}

// String renders the filter as "column=eq.value".
func (f PushFilter) String() string {
	return fmt.Sprintf("%s=eq.%s", f.Column, f.Value)
}

// PushEvent is one row-change notification, already decoded into an order snapshot.
type PushEvent struct {
	Table     string
	Operation PushOperation
	Order     order.Snapshot
}

// SubscriptionHandle identifies one push registration.
type SubscriptionHandle interface {
	Key() string
}

// PushSubscriber is the best-effort near-real-time change channel. Delivery
// may drop or duplicate events; callbacks run on the subscriber's goroutine
// and must not block.
type PushSubscriber interface {
	Subscribe(ctx context.Context, table string, filter PushFilter, callback func(PushEvent)) (SubscriptionHandle, error)
	Unsubscribe(handle SubscriptionHandle) error
}
