package commands

import (
	"errors"
	"time"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
	"cafe/internal/pkg/guard"
)

var ErrRequestTransitionCommandIsNotConstructed = errors.New(
	"RequestTransitionCommand must be created via NewRequestTransitionCommand constructor",
)

// RequestTransitionCommand asks the lifecycle coordinator to move an order to
// a target status. RequestedAt is the time the staff member acted; it becomes
// the status-changed timestamp unless that would not be strictly increasing.
type RequestTransitionCommand struct { //nolint:recvcheck //using for validation
	orderID     kernel.UUID
	target      order.Status
	requestedAt time.Time

	guard guard.ConstructorGuard
}

// NewRequestTransitionCommand validates the order id and the target status.
// A zero requestedAt is replaced by the handler's clock.
func NewRequestTransitionCommand(orderID kernel.UUID, target order.Status, requestedAt time.Time) (RequestTransitionCommand, error) {
	cmd := RequestTransitionCommand{
		requestedAt: requestedAt,
		guard:       guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setTarget(target),
	); err != nil {
		return RequestTransitionCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c RequestTransitionCommand) Validate() error {
	return c.guard.Validate(ErrRequestTransitionCommandIsNotConstructed)
}

func (c RequestTransitionCommand) OrderID() kernel.UUID   { return c.orderID }
func (c RequestTransitionCommand) Target() order.Status   { return c.target }
func (c RequestTransitionCommand) RequestedAt() time.Time { return c.requestedAt }

func (c *RequestTransitionCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	c.orderID = orderID
	return nil
}

func (c *RequestTransitionCommand) setTarget(target order.Status) error {
	if err := target.Validate(); err != nil {
		return err
	}

	c.target = target
	return nil
}
