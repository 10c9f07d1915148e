package commands

import (
	"errors"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/pkg/guard"
)

var ErrAssignStaffCommandIsNotConstructed = errors.New(
	"AssignStaffCommand must be created via NewAssignStaffCommand constructor",
)

// AssignStaffCommand records which staff member fulfils an order.
type AssignStaffCommand struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID
	staffID kernel.UUID

	guard guard.ConstructorGuard
}

func NewAssignStaffCommand(orderID, staffID kernel.UUID) (AssignStaffCommand, error) {
	cmd := AssignStaffCommand{guard: guard.NewConstructorGuard()}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setStaffID(staffID),
	); err != nil {
		return AssignStaffCommand{}, err
	}

	return cmd, nil
}

func (c AssignStaffCommand) Validate() error {
	return c.guard.Validate(ErrAssignStaffCommandIsNotConstructed)
}

func (c AssignStaffCommand) OrderID() kernel.UUID { return c.orderID }
func (c AssignStaffCommand) StaffID() kernel.UUID { return c.staffID }

func (c *AssignStaffCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	c.orderID = orderID
	return nil
}

func (c *AssignStaffCommand) setStaffID(staffID kernel.UUID) error {
	if err := staffID.Validate(); err != nil {
		return err
	}

	c.staffID = staffID
	return nil
}
