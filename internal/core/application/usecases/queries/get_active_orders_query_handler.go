package queries

import (
	"context"
	"fmt"
	"time"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GetActiveOrdersQueryHandler reads the kitchen queue straight from the
// orders table.
type GetActiveOrdersQueryHandler struct {
	db *gorm.DB
}

// NewGetActiveOrdersQueryHandler creates a handler for kitchen queue queries.
// Requires a GORM database connection for query execution.
func NewGetActiveOrdersQueryHandler(db *gorm.DB) GetActiveOrdersQueryHandler {
	return GetActiveOrdersQueryHandler{db: db}
}

// Handle returns the matching orders oldest first. The slice is empty, never
// nil, when nothing matches.
func (h GetActiveOrdersQueryHandler) Handle(
	ctx context.Context,
	query GetActiveOrdersQuery,
) ([]GetActiveOrdersQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	filter := query.Statuses()
	statuses := make([]string, 0, len(filter))
	for _, s := range filter {
		statuses = append(statuses, s.String())
	}

	orders := make([]GetActiveOrdersQueryResponse, 0)

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			o.id,
			o.number,
			o.status,
			o.total,
			o.placed_at,
			o.status_changed_at,
			o.channel,
			o.location,
			COUNT(li.id) AS item_count
		FROM orders o
		LEFT JOIN order_line_items li ON li.order_id = o.id
		WHERE o.merchant_id = ? AND o.status IN ?
		GROUP BY o.id
		ORDER BY o.placed_at, o.number
	`, query.MerchantID().Bytes(), statuses).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id              uuid.UUID
			number          string
			status          string
			total           decimal.Decimal
			placedAt        time.Time
			statusChangedAt time.Time
			channel         string
			location        string
			itemCount       int
		)

		if err := rows.Scan(
			&id, &number, &status, &total, &placedAt, &statusChangedAt, &channel, &location, &itemCount,
		); err != nil {
			return nil, err
		}

		parsedStatus, err := order.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", id, err)
		}
		parsedChannel, err := order.ParseChannel(channel)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", id, err)
		}
		money, err := kernel.NewMoney(total)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", id, err)
		}
		orderID, err := kernel.UUIDFromBytes(id[:])
		if err != nil {
			return nil, err
		}

		orders = append(orders, GetActiveOrdersQueryResponse{
			ID:              orderID,
			Number:          number,
			Status:          parsedStatus,
			Total:           money,
			PlacedAt:        placedAt.UTC(),
			StatusChangedAt: statusChangedAt.UTC(),
			Channel:         parsedChannel,
			Location:        location,
			ItemCount:       itemCount,
		})
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}
