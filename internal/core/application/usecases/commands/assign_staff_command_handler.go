package commands

import (
	"context"
)

// AssignStaffCommandHandler loads the order, lets the aggregate check that it
// still accepts an assignment, and stores the staff member.
type AssignStaffCommandHandler struct {
	uowFactory OrderUoWFactory
}

func NewAssignStaffCommandHandler(uowFactory OrderUoWFactory) AssignStaffCommandHandler {
	return AssignStaffCommandHandler{
		uowFactory: uowFactory,
	}
}

// Handle returns the aggregate's validation error for terminal orders and
// *errs.ObjectNotFoundError for unknown ones.
func (h *AssignStaffCommandHandler) Handle(ctx context.Context, cmd AssignStaffCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	orderRepo := uow.OrderRepository()
	aggregate, err := orderRepo.Get(ctx, cmd.OrderID())
	if err != nil {
		return err
	}

	if err = aggregate.AssignStaff(cmd.StaffID()); err != nil {
		return err
	}

	if err = orderRepo.AssignStaff(ctx, cmd.OrderID(), cmd.StaffID()); err != nil {
		return err
	}

	return uow.Commit(ctx)
}
