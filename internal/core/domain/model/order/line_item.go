package order

import (
	"fmt"
	"strings"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/pkg/errs"
	"cafe/internal/pkg/guard"
)

// LineItem is one menu item on an order. Name and description are a snapshot
// of the catalog entry at the time the order was placed.
//
// Invariants:
//   - Quantity is greater than zero
//   - LineTotal always equals Quantity × UnitPrice
type LineItem struct {
	name        string
	description string
	quantity    int
	unitPrice   kernel.Money
	instruction string

	guard guard.ConstructorGuard
}

// NewLineItem validates and builds a line item. instruction is optional free text
// ("less spicy", "no onion") printed on the kitchen ticket.
func NewLineItem(name, description string, quantity int, unitPrice kernel.Money, instruction string) (LineItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return LineItem{}, errs.NewValueIsRequiredError("item name")
	}
	if quantity <= 0 {
		return LineItem{}, errs.NewValueIsInvalidErrorWithCause(
			"quantity is invalid",
			fmt.Errorf("%d is not greater than 0", quantity),
		)
	}

	return LineItem{
		name:        name,
		description: strings.TrimSpace(description),
		quantity:    quantity,
		unitPrice:   unitPrice,
		instruction: strings.TrimSpace(instruction),
		guard:       guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the item was created through NewLineItem.
func (li LineItem) Validate() error {
	return li.guard.Validate(ErrLineItemIsNotConstructed)
}

func (li LineItem) Name() string            { return li.name }
func (li LineItem) Description() string     { return li.description }
func (li LineItem) Quantity() int           { return li.quantity }
func (li LineItem) UnitPrice() kernel.Money { return li.unitPrice }
func (li LineItem) Instruction() string     { return li.instruction }

// LineTotal is quantity × unit price, unrounded.
func (li LineItem) LineTotal() kernel.Money {
	return li.unitPrice.Mul(li.quantity)
}

// Subtotal sums the line totals of items without rounding.
func Subtotal(items []LineItem) kernel.Money {
	total := kernel.Zero()
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}
