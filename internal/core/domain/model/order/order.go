package order

import (
	"errors"
	"strings"
	"time"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/pkg/errs"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not created through
	// NewOrder or RestoreOrder.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder or RestoreOrder constructor")

	// ErrLineItemIsNotConstructed is returned when a LineItem literal is used.
	ErrLineItemIsNotConstructed = errors.New("LineItem must be created via NewLineItem constructor")

	// ErrPointsNotCreditable is returned when loyalty points are marked on a non-completed order.
	ErrPointsNotCreditable = errors.New("points can only be credited on a completed order")

	// ErrPointsAlreadyCredited is returned on a second MarkPointsCredited.
	ErrPointsAlreadyCredited = errors.New("points already credited")
)

// timestampResolution is the precision kept for status-change timestamps. It
// matches what the record store persists so a round trip compares equal.
const timestampResolution = time.Microsecond

// Order is the aggregate root of a merchant's order. It owns the status
// workflow and the points-credited flag.
//
// Order follows these invariants:
//   - id, merchantID and order number are always set
//   - status moves only along the graph defined by Status.CanTransitionTo
//   - statusChangedAt strictly increases with every transition
//   - pointsCredited is set at most once, and only while Completed
//
// Order is not safe for concurrent use; the lifecycle coordinator serialises access.
type Order struct {
	id              kernel.UUID
	number          string
	merchantID      kernel.UUID
	status          Status
	total           kernel.Money
	placedAt        time.Time
	statusChangedAt time.Time
	fulfillment     Fulfillment
	contact         Contact
	staffID         *kernel.UUID
	pointsCredited  bool

	isConstructed bool
}

// Snapshot is an immutable copy of an order's state. It is the shape that
// crosses component boundaries (facts, views, HTTP responses, persistence).
type Snapshot struct {
	ID              kernel.UUID
	Number          string
	MerchantID      kernel.UUID
	Status          Status
	Total           kernel.Money
	PlacedAt        time.Time
	StatusChangedAt time.Time
	Fulfillment     Fulfillment
	Contact         Contact
	StaffID         *kernel.UUID
	PointsCredited  bool
}

// Undo restores an order to the state it had before a Transition.
type Undo func()

// NewOrder creates a freshly placed order in Received status.
//
// Parameters:
//   - id: opaque identifier
//   - number: merchant-scoped human legible number, e.g. "A1001"
//   - merchantID: owning cafe
//   - total: order total as charged
//   - placedAt: placement time; also the initial status-changed time
//   - fulfillment: channel and location
//   - contact: customer snapshot
//
// Returns a validation error (possibly joined) when any input is invalid.
func NewOrder(
	id kernel.UUID,
	number string,
	merchantID kernel.UUID,
	total kernel.Money,
	placedAt time.Time,
	fulfillment Fulfillment,
	contact Contact,
) (*Order, error) {
	placedAt = placedAt.UTC().Truncate(timestampResolution)
	return RestoreOrder(Snapshot{
		ID:              id,
		Number:          number,
		MerchantID:      merchantID,
		Status:          Received,
		Total:           total,
		PlacedAt:        placedAt,
		StatusChangedAt: placedAt,
		Fulfillment:     fulfillment,
		Contact:         contact,
	})
}

// RestoreOrder rebuilds an order from persisted state, validating every field.
func RestoreOrder(s Snapshot) (*Order, error) {
	o := &Order{
		total:          s.Total,
		contact:        s.Contact,
		pointsCredited: s.PointsCredited,
		isConstructed:  true,
	}

	if err := errors.Join(
		o.setID(s.ID),
		o.setNumber(s.Number),
		o.setMerchantID(s.MerchantID),
		o.setStatus(s.Status, s.PointsCredited),
		o.setTimes(s.PlacedAt, s.StatusChangedAt),
		o.setFulfillment(s.Fulfillment),
		o.setStaff(s.StaffID),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// Validate ensures the Order instance was properly constructed.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}
	return nil
}

func (o *Order) ID() kernel.UUID            { return o.id }
func (o *Order) Number() string             { return o.number }
func (o *Order) MerchantID() kernel.UUID    { return o.merchantID }
func (o *Order) Status() Status             { return o.status }
func (o *Order) Total() kernel.Money        { return o.total }
func (o *Order) PlacedAt() time.Time        { return o.placedAt }
func (o *Order) StatusChangedAt() time.Time { return o.statusChangedAt }
func (o *Order) Fulfillment() Fulfillment   { return o.fulfillment }
func (o *Order) Contact() Contact           { return o.contact }
func (o *Order) PointsCredited() bool       { return o.pointsCredited }

// Staff returns the assigned fulfilment staff member, or nil.
func (o *Order) Staff() *kernel.UUID {
	if o.staffID == nil {
		return nil
	}
	id := *o.staffID
	return &id
}

// Snapshot returns a copy of the current state.
func (o *Order) Snapshot() Snapshot {
	return Snapshot{
		ID:              o.id,
		Number:          o.number,
		MerchantID:      o.merchantID,
		Status:          o.status,
		Total:           o.total,
		PlacedAt:        o.placedAt,
		StatusChangedAt: o.statusChangedAt,
		Fulfillment:     o.fulfillment,
		Contact:         o.contact,
		StaffID:         o.Staff(),
		PointsCredited:  o.pointsCredited,
	}
}

// Transition moves the order to target at the given time.
//
// The stored timestamp is at truncated to microseconds; if that would not be
// strictly after the current status-changed time it is bumped to one
// microsecond past it, so timestamps strictly increase even under clock skew.
//
// Returns:
//   - an Undo that restores the previous status and timestamp
//   - *InvalidTransitionError if the precondition fails; the order is unchanged
//
// Example:
//
//	undo, err := o.Transition(order.Confirmed, time.Now())
//	if err != nil {
//	    return err
//	}
//	if writeErr := store.Write(o); writeErr != nil {
//	    undo()
//	}
func (o *Order) Transition(target Status, at time.Time) (Undo, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if err := o.status.CanTransitionTo(target); err != nil {
		return nil, err
	}

	prevStatus, prevChangedAt := o.status, o.statusChangedAt

	changedAt := at.UTC().Truncate(timestampResolution)
	if !changedAt.After(prevChangedAt) {
		changedAt = prevChangedAt.Add(timestampResolution)
	}

	o.status = target
	o.statusChangedAt = changedAt

	return func() {
		o.status = prevStatus
		o.statusChangedAt = prevChangedAt
	}, nil
}

// MarkPointsCredited records that loyalty points were credited.
// Allowed exactly once and only on a Completed order.
func (o *Order) MarkPointsCredited() error {
	if o.status != Completed {
		return ErrPointsNotCreditable
	}
	if o.pointsCredited {
		return ErrPointsAlreadyCredited
	}
	o.pointsCredited = true
	return nil
}

// AssignStaff sets the fulfilment staff member. Terminal orders cannot be reassigned.
func (o *Order) AssignStaff(staffID kernel.UUID) error {
	if err := staffID.Validate(); err != nil {
		return err
	}
	if o.status.IsTerminal() {
		return errs.NewValueIsInvalidError("cannot assign staff to a " + o.status.String() + " order")
	}
	o.staffID = &staffID
	return nil
}

// Age returns how long ago the order was placed relative to now.
func (o *Order) Age(now time.Time) time.Duration {
	return now.Sub(o.placedAt)
}

func (o *Order) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

func (o *Order) setNumber(number string) error {
	number = strings.TrimSpace(number)
	if number == "" {
		return errs.NewValueIsRequiredError("order number")
	}
	o.number = number
	return nil
}

func (o *Order) setMerchantID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return errs.NewValueIsRequiredErrorWithCause("merchant id", err)
	}
	o.merchantID = id
	return nil
}

func (o *Order) setStatus(status Status, pointsCredited bool) error {
	if err := status.Validate(); err != nil {
		return err
	}
	if pointsCredited && status != Completed {
		return errs.NewValueIsInvalidErrorWithCause("points credited", ErrPointsNotCreditable)
	}
	o.status = status
	return nil
}

func (o *Order) setTimes(placedAt, statusChangedAt time.Time) error {
	if placedAt.IsZero() {
		return errs.NewValueIsRequiredError("placed at")
	}
	if statusChangedAt.IsZero() {
		statusChangedAt = placedAt
	}
	if statusChangedAt.Before(placedAt) {
		return errs.NewValueIsInvalidError("status changed at precedes placed at")
	}
	o.placedAt = placedAt.UTC()
	o.statusChangedAt = statusChangedAt.UTC()
	return nil
}

func (o *Order) setFulfillment(f Fulfillment) error {
	if err := f.Validate(); err != nil {
		return err
	}
	o.fulfillment = f
	return nil
}

func (o *Order) setStaff(staffID *kernel.UUID) error {
	if staffID == nil {
		return nil
	}
	if err := staffID.Validate(); err != nil {
		return err
	}
	id := *staffID
	o.staffID = &id
	return nil
}
