package commands

import (
	"context"
	"errors"

	dispatch "cafe/internal/core/application/printing"
	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/printing"
	"cafe/internal/pkg/guard"
)

var ErrReprintCommandIsNotConstructed = errors.New(
	"ReprintCommand must be created via NewReprintCommand constructor",
)

// ReprintCommand is a staff request to print an order's tickets again.
// No kinds means every kind.
type ReprintCommand struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID
	kinds   []printing.TicketKind

	guard guard.ConstructorGuard
}

// NewReprintCommand parses kind names ("kot", "receipt"); duplicates collapse.
func NewReprintCommand(orderID kernel.UUID, kinds ...string) (ReprintCommand, error) {
	cmd := ReprintCommand{guard: guard.NewConstructorGuard()}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setKinds(kinds),
	); err != nil {
		return ReprintCommand{}, err
	}

	return cmd, nil
}

func (c ReprintCommand) Validate() error {
	return c.guard.Validate(ErrReprintCommandIsNotConstructed)
}

func (c ReprintCommand) OrderID() kernel.UUID { return c.orderID }

func (c ReprintCommand) Kinds() []printing.TicketKind {
	out := make([]printing.TicketKind, len(c.kinds))
	copy(out, c.kinds)
	return out
}

func (c *ReprintCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	c.orderID = orderID
	return nil
}

func (c *ReprintCommand) setKinds(names []string) error {
	seen := make(map[printing.TicketKind]bool, len(names))
	var errList []error
	for _, name := range names {
		kind, err := printing.ParseTicketKind(name)
		if err != nil {
			errList = append(errList, err)
			continue
		}
		if !seen[kind] {
			seen[kind] = true
			c.kinds = append(c.kinds, kind)
		}
	}
	return errors.Join(errList...)
}

// Reprinter is the dispatch engine's manual entry point.
type Reprinter interface {
	Reprint(ctx context.Context, orderID kernel.UUID, kinds ...printing.TicketKind) dispatch.Result
}

// ReprintCommandHandler forwards validated reprint requests to the engine.
type ReprintCommandHandler struct {
	reprinter Reprinter
}

func NewReprintCommandHandler(reprinter Reprinter) ReprintCommandHandler {
	return ReprintCommandHandler{reprinter: reprinter}
}

// Handle returns the dispatch result; an invalid command comes back as the
// error with no dispatch attempted.
func (h *ReprintCommandHandler) Handle(ctx context.Context, cmd ReprintCommand) (dispatch.Result, error) {
	if err := cmd.Validate(); err != nil {
		return dispatch.Result{}, err
	}

	return h.reprinter.Reprint(ctx, cmd.OrderID(), cmd.Kinds()...), nil
}
