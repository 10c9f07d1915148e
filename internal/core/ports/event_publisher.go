package ports

import (
	"context"
	"time"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
)

// StatusChangedEvent is published after a transition is committed.
type StatusChangedEvent struct {
	OrderID     kernel.UUID
	OrderNumber string
	MerchantID  kernel.UUID
	From        order.Status
	To          order.Status
	ChangedAt   time.Time
}

// EventPublisher forwards lifecycle events to downstream consumers.
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, event StatusChangedEvent) error
}
