package commands

import (
	"errors"
	"strings"
	"time"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
	"cafe/internal/pkg/guard"
)

var (
	ErrCreateOrderCommandIsNotConstructed = errors.New(
		"CreateOrderCommand must be created via NewCreateOrderCommand constructor",
	)
	ErrOrderNumberIsRequired = errors.New("order number is required")
	ErrItemsAreRequired      = errors.New("at least one line item is required")
	ErrPlacedAtIsRequired    = errors.New("placed at is required")
)

// CreateOrderCommand records a freshly placed order with its line items.
// The order enters the store in Received status; dispatch of its tickets
// follows from the change notification, not from this command.
//
// Example:
//
//	cmd, err := NewCreateOrderCommand(
//	    kernel.NewUUID(), "A1001", merchantID, total, time.Now(),
//	    order.Fulfillment{Channel: order.DineInTable, Location: "T4"},
//	    order.Contact{Name: "Asha"},
//	    items,
//	)
//	if err != nil {
//	    return fmt.Errorf("invalid order data: %w", err)
//	}
//
//	handler := NewCreateOrderCommandHandler(uowFactory)
//	if err := handler.Handle(ctx, cmd); err != nil {
//	    return fmt.Errorf("failed to create order: %w", err)
//	}
type CreateOrderCommand struct { //nolint:recvcheck //using for validation
	orderID     kernel.UUID
	number      string
	merchantID  kernel.UUID
	total       kernel.Money
	placedAt    time.Time
	fulfillment order.Fulfillment
	contact     order.Contact
	items       []order.LineItem

	guard guard.ConstructorGuard
}

// NewCreateOrderCommand validates the order header and every line item.
// All failures are joined into one error.
func NewCreateOrderCommand(
	orderID kernel.UUID,
	number string,
	merchantID kernel.UUID,
	total kernel.Money,
	placedAt time.Time,
	fulfillment order.Fulfillment,
	contact order.Contact,
	items []order.LineItem,
) (CreateOrderCommand, error) {
	cmd := CreateOrderCommand{
		total:   total,
		contact: contact,
		guard:   guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setNumber(number),
		cmd.setMerchantID(merchantID),
		cmd.setPlacedAt(placedAt),
		cmd.setFulfillment(fulfillment),
		cmd.setItems(items),
	); err != nil {
		return CreateOrderCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c CreateOrderCommand) Validate() error {
	return c.guard.Validate(ErrCreateOrderCommandIsNotConstructed)
}

func (c CreateOrderCommand) OrderID() kernel.UUID           { return c.orderID }
func (c CreateOrderCommand) Number() string                 { return c.number }
func (c CreateOrderCommand) MerchantID() kernel.UUID        { return c.merchantID }
func (c CreateOrderCommand) Total() kernel.Money            { return c.total }
func (c CreateOrderCommand) PlacedAt() time.Time            { return c.placedAt }
func (c CreateOrderCommand) Fulfillment() order.Fulfillment { return c.fulfillment }
func (c CreateOrderCommand) Contact() order.Contact         { return c.contact }

// Items returns a copy of the line items.
func (c CreateOrderCommand) Items() []order.LineItem {
	out := make([]order.LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *CreateOrderCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	c.orderID = orderID
	return nil
}

func (c *CreateOrderCommand) setNumber(number string) error {
	number = strings.TrimSpace(number)
	if number == "" {
		return ErrOrderNumberIsRequired
	}

	c.number = number
	return nil
}

func (c *CreateOrderCommand) setMerchantID(merchantID kernel.UUID) error {
	if err := merchantID.Validate(); err != nil {
		return err
	}

	c.merchantID = merchantID
	return nil
}

func (c *CreateOrderCommand) setPlacedAt(placedAt time.Time) error {
	if placedAt.IsZero() {
		return ErrPlacedAtIsRequired
	}

	c.placedAt = placedAt
	return nil
}

func (c *CreateOrderCommand) setFulfillment(f order.Fulfillment) error {
	if err := f.Validate(); err != nil {
		return err
	}

	c.fulfillment = f
	return nil
}

func (c *CreateOrderCommand) setItems(items []order.LineItem) error {
	if len(items) == 0 {
		return ErrItemsAreRequired
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
	}

	c.items = make([]order.LineItem, len(items))
	copy(c.items, items)
	return nil
}
