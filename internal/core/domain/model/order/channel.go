package order

import (
	"fmt"
	"strings"

	"cafe/internal/pkg/errs"
)

// Channel is how an order reaches the customer.
type Channel int

const (
	UnknownChannel Channel = iota
	DeliveryToBlock
	DineInTable
	Takeaway
)

func getChannelStrings() map[Channel]string {
	return map[Channel]string{
		UnknownChannel:  "unknown",
		DeliveryToBlock: "delivery",
		DineInTable:     "dine_in",
		Takeaway:        "takeaway",
	}
}

// ParseChannel converts a wire name into a Channel.
func ParseChannel(s string) (Channel, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for ch, name := range getChannelStrings() {
		if ch != UnknownChannel && name == normalized {
			return ch, nil
		}
	}
	return UnknownChannel, errs.NewValueIsInvalidErrorWithCause("channel", fmt.Errorf("%q is not a known channel", s))
}

func (c Channel) String() string {
	if str, ok := getChannelStrings()[c]; ok {
		return str
	}
	return "unknown"
}

// Label is the human text printed on tickets.
func (c Channel) Label() string {
	switch c {
	case DeliveryToBlock:
		return "DELIVERY"
	case DineInTable:
		return "DINE-IN"
	case Takeaway:
		return "TAKEAWAY"
	default:
		return "UNKNOWN"
	}
}

// Fulfillment is the channel plus its location detail: the hostel block for
// deliveries, the table for dine-in, empty for takeaway.
type Fulfillment struct {
	Channel  Channel
	Location string
}

// Validate checks that the channel is known and the location present where required.
func (f Fulfillment) Validate() error {
	switch f.Channel {
	case DeliveryToBlock, DineInTable:
		if strings.TrimSpace(f.Location) == "" {
			return errs.NewValueIsRequiredError("fulfillment location for " + f.Channel.String())
		}
		return nil
	case Takeaway:
		return nil
	case UnknownChannel:
		return errs.NewValueIsInvalidError("fulfillment channel")
	default:
		return errs.NewValueIsInvalidError("fulfillment channel")
	}
}

// Contact is the customer snapshot captured when the order was placed.
type Contact struct {
	Name  string
	Phone string
}
