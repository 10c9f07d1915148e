package ports

import (
	"context"

	"cafe/internal/core/domain/model/order"
)

// LoyaltyCreditor credits loyalty points for a completed order. Points
// arithmetic happens on the other side of this call.
type LoyaltyCreditor interface {
	Credit(ctx context.Context, completed order.Snapshot) error
}
