package printing

import (
	"errors"
	"time"

	"cafe/internal/core/domain/model/kernel"
	printmodel "cafe/internal/core/domain/model/printing"
	"cafe/internal/core/ports"
)

// ErrNoTransportConfigured is the Err of a NoTransportConfigured result.
var ErrNoTransportConfigured = errors.New("no printer transport configured for merchant")

// Outcome is the overall verdict of one dispatch or reprint.
type Outcome int

const (
	UnknownOutcome Outcome = iota

	// Printed means every requested ticket reached a transport.
	Printed

	// AlreadyDispatched means an earlier dispatch for the order is recorded
	// or in flight. Nothing was sent.
	AlreadyDispatched

	// Stale means the order is older than the staleness window.
	Stale

	// MerchantOptedOut means the merchant prints manually only.
	MerchantOptedOut

	// StatusAdvanced means the order already left Received.
	StatusAdvanced

	// Partial means at least one ticket printed and at least one did not.
	Partial

	// Exhausted means every transport failed for every ticket.
	Exhausted

	// NoTransportConfigured means the merchant has no usable printer.
	NoTransportConfigured

	// Failed means dispatch could not run: lookup, ledger or render error.
	Failed
)

func getOutcomeStrings() map[Outcome]string {
	return map[Outcome]string{
		UnknownOutcome:        "unknown",
		Printed:               "printed",
		AlreadyDispatched:     "already_dispatched",
		Stale:                 "stale",
		MerchantOptedOut:      "merchant_opted_out",
		StatusAdvanced:        "status_advanced",
		Partial:               "partial",
		Exhausted:             "exhausted",
		NoTransportConfigured: "no_transport_configured",
		Failed:                "failed",
	}
}

func (o Outcome) String() string {
	if s, ok := getOutcomeStrings()[o]; ok {
		return s
	}
	return "unknown"
}

// IsSuccess reports whether nothing is left to print.
func (o Outcome) IsSuccess() bool {
	return o == Printed || o == AlreadyDispatched
}

// IsSkip reports an expected, deliberate non-print.
func (o Outcome) IsSkip() bool {
	return o == Stale || o == MerchantOptedOut || o == StatusAdvanced
}

// Attempt is one send through one printer.
type Attempt struct {
	Transport printmodel.TransportKind
	PrinterID kernel.UUID
	JobID     ports.JobID
	Duration  time.Duration
	// Err is a *ports.TransportError, nil on success.
	Err error
}

// TicketResult is the delivery record of one ticket.
type TicketResult struct {
	Kind      printmodel.TicketKind
	Printed   bool
	JobID     ports.JobID
	Transport printmodel.TransportKind
	Attempts  []Attempt
	// Err aggregates every failed attempt when the ticket was not printed.
	Err error
}

// Result is what Dispatch and Reprint return. Transport errors never escape
// individually; they are reported here per ticket.
type Result struct {
	Outcome Outcome
	OrderID kernel.UUID
	Tickets []TicketResult
	Err     error
}

// Missing returns the ticket kinds that did not print, for a selective reprint.
func (r Result) Missing() []printmodel.TicketKind {
	var kinds []printmodel.TicketKind
	for _, t := range r.Tickets {
		if !t.Printed {
			kinds = append(kinds, t.Kind)
		}
	}
	return kinds
}

func outcomeFor(tickets []TicketResult) Outcome {
	printed := 0
	for _, t := range tickets {
		if t.Printed {
			printed++
		}
	}
	switch {
	case printed == len(tickets):
		return Printed
	case printed == 0:
		return Exhausted
	default:
		return Partial
	}
}
