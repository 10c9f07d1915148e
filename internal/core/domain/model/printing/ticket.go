package printing

import (
	"fmt"
	"strings"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/pkg/errs"
)

// TicketKind distinguishes the two renders produced for every dispatch.
type TicketKind int

const (
	UnknownTicket TicketKind = iota
	// KOT is the kitchen order ticket: items and instructions, no prices.
	KOT
	// Receipt is the customer-facing bill.
	Receipt
)

// TicketKinds lists every kind a dispatch must print, in print order.
func TicketKinds() []TicketKind {
	return []TicketKind{KOT, Receipt}
}

func (k TicketKind) String() string {
	switch k {
	case KOT:
		return "kot"
	case Receipt:
		return "receipt"
	default:
		return "unknown"
	}
}

// ParseTicketKind accepts "kot" and "receipt" in any case.
func ParseTicketKind(s string) (TicketKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kot":
		return KOT, nil
	case "receipt":
		return Receipt, nil
	default:
		return UnknownTicket, errs.NewValueIsInvalidErrorWithCause("ticket kind", fmt.Errorf("%q is not a known ticket kind", s))
	}
}

// Ticket is rendered, transport-neutral ticket content: fixed-width lines of text.
type Ticket struct {
	Kind        TicketKind
	OrderID     kernel.UUID
	OrderNumber string
	MerchantID  kernel.UUID
	Columns     int
	Lines       []string
	// GrandTotal is set on receipts only.
	GrandTotal *kernel.Money
}

// Text joins the lines with newlines, ending in one.
func (t Ticket) Text() string {
	var b strings.Builder
	for _, line := range t.Lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// Title is a short human label, e.g. "A1001 kot".
func (t Ticket) Title() string {
	return t.OrderNumber + " " + t.Kind.String()
}
