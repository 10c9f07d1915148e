package ports

import (
	"context"
	"fmt"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/printing"
)

// JobID identifies a print job at the transport that accepted it.
type JobID string

// PrinterTransport delivers a rendered ticket through one kind of printer.
// Send must honour ctx cancellation; a deadline is treated like any other failure.
type PrinterTransport interface {
	Kind() printing.TransportKind
	Send(ctx context.Context, printer printing.PrinterConfig, ticket printing.Ticket) (JobID, error)
}

// TransportError is the failure of one send attempt.
type TransportError struct {
	Transport printing.TransportKind
	PrinterID kernel.UUID
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s printer %s: %v", e.Transport, e.PrinterID, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
