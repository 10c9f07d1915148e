// Package queries contains read-only operations that bypass the aggregates
// and read the record store directly.
package queries

import (
	"errors"
	"time"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
	"cafe/internal/pkg/guard"
)

var ErrGetActiveOrdersQueryIsNotConstructed = errors.New(
	"GetActiveOrdersQuery must be created via NewGetActiveOrdersQuery constructor",
)

// GetActiveOrdersQuery lists a merchant's orders that still need work.
// Without statuses it returns every non-terminal order; with statuses it
// returns exactly those, terminal ones included.
//
// Example:
//
//	query, err := NewGetActiveOrdersQuery(merchantID, order.Received, order.Confirmed)
//	if err != nil {
//	    return err
//	}
//	handler := NewGetActiveOrdersQueryHandler(db)
//
//	orders, err := handler.Handle(ctx, query)
//	if err != nil {
//	    return fmt.Errorf("failed to get kitchen queue: %w", err)
//	}
//	for _, o := range orders {
//	    fmt.Printf("%s %s (%d items)\n", o.Number, o.Status, o.ItemCount)
//	}
type GetActiveOrdersQuery struct {
	merchantID kernel.UUID
	statuses   []order.Status

	guard guard.ConstructorGuard
}

// NewGetActiveOrdersQuery validates the merchant id and every status filter.
func NewGetActiveOrdersQuery(merchantID kernel.UUID, statuses ...order.Status) (GetActiveOrdersQuery, error) {
	if err := merchantID.Validate(); err != nil {
		return GetActiveOrdersQuery{}, err
	}

	var errList []error
	for _, s := range statuses {
		if err := s.Validate(); err != nil {
			errList = append(errList, err)
		}
	}
	if err := errors.Join(errList...); err != nil {
		return GetActiveOrdersQuery{}, err
	}

	q := GetActiveOrdersQuery{
		merchantID: merchantID,
		guard:      guard.NewConstructorGuard(),
	}
	q.statuses = append(q.statuses, statuses...)
	return q, nil
}

// Validate ensures the query was created through the constructor.
func (q GetActiveOrdersQuery) Validate() error {
	return q.guard.Validate(ErrGetActiveOrdersQueryIsNotConstructed)
}

func (q GetActiveOrdersQuery) MerchantID() kernel.UUID { return q.merchantID }

// Statuses returns the filter, defaulting to the non-terminal statuses.
func (q GetActiveOrdersQuery) Statuses() []order.Status {
	if len(q.statuses) == 0 {
		return []order.Status{order.Received, order.Confirmed, order.Preparing, order.OnTheWay}
	}
	out := make([]order.Status, len(q.statuses))
	copy(out, q.statuses)
	return out
}

// GetActiveOrdersQueryResponse is one row of the kitchen queue.
type GetActiveOrdersQueryResponse struct {
	ID              kernel.UUID
	Number          string
	Status          order.Status
	Total           kernel.Money
	PlacedAt        time.Time
	StatusChangedAt time.Time
	Channel         order.Channel
	Location        string
	ItemCount       int
}
