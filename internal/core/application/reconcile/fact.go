package reconcile

import (
	"time"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
	"cafe/internal/core/ports"
)

// FactKind tells whether a fact is the first sighting of an order.
type FactKind int

const (
	UnknownFact FactKind = iota
	NewOrder
	StatusChanged
)

func (k FactKind) String() string {
	switch k {
	case NewOrder:
		return "new_order"
	case StatusChanged:
		return "status_changed"
	default:
		return "unknown"
	}
}

// Source is the channel a fact arrived through.
type Source int

const (
	UnknownSource Source = iota
	FromPush
	FromPoll
)

func (s Source) String() string {
	switch s {
	case FromPush:
		return "push"
	case FromPoll:
		return "poll"
	default:
		return "unknown"
	}
}

// ChangeFact asserts that an order had a status as of a timestamp. Facts from
// push and poll are not ordered relative to each other.
type ChangeFact struct {
	Kind            FactKind
	OrderID         kernel.UUID
	MerchantID      kernel.UUID
	Status          order.Status
	StatusChangedAt time.Time
	CreatedAt       time.Time
	Source          Source
	Order           order.Snapshot
}

// FactKey identifies the observation a fact carries.
type FactKey struct {
	OrderID kernel.UUID
	Status  order.Status
	At      int64
}

func (f ChangeFact) Key() FactKey {
	return keyOf(f.Order)
}

func keyOf(s order.Snapshot) FactKey {
	return FactKey{OrderID: s.ID, Status: s.Status, At: s.StatusChangedAt.UnixMicro()}
}

func newFact(kind FactKind, source Source, s order.Snapshot) ChangeFact {
	return ChangeFact{
		Kind:            kind,
		OrderID:         s.ID,
		MerchantID:      s.MerchantID,
		Status:          s.Status,
		StatusChangedAt: s.StatusChangedAt,
		CreatedAt:       s.PlacedAt,
		Source:          source,
		Order:           s,
	}
}

// MerchantFilter selects the orders of one merchant.
type MerchantFilter struct {
	MerchantID kernel.UUID
}

func (f MerchantFilter) push() ports.PushFilter {
	return ports.PushFilter{Column: "merchant_id", Value: f.MerchantID.String()}
}
