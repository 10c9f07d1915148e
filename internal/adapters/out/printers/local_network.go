package printers

import (
	"context"
	"fmt"
	"net"
	"time"

	"cafe/internal/core/domain/model/printing"
	"cafe/internal/core/ports"
)

// DefaultDialTimeout bounds a send to a print server when ctx has no deadline.
const DefaultDialTimeout = 5 * time.Second

// LocalNetworkTransport writes raw ESC/POS to a print server port
// (usually 9100) on the cafe network.
type LocalNetworkTransport struct {
	dialer  net.Dialer
	timeout time.Duration
}

func NewLocalNetworkTransport(timeout time.Duration) *LocalNetworkTransport {
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	return &LocalNetworkTransport{timeout: timeout}
}

func (t *LocalNetworkTransport) Kind() printing.TransportKind { return printing.LocalNetwork }

// Send dials the printer address, writes the whole job and closes the
// connection. The dial and the write share one deadline.
func (t *LocalNetworkTransport) Send(ctx context.Context, printer printing.PrinterConfig, ticket printing.Ticket) (ports.JobID, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(t.timeout)
	}
	dialCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	conn, err := t.dialer.DialContext(dialCtx, "tcp", printer.Address())
	if err != nil {
		return "", transportError(printer, fmt.Errorf("dial %s: %w", printer.Address(), err))
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(deadline); err != nil {
		return "", transportError(printer, err)
	}
	if _, err := conn.Write(EncodeESCPOS(printer, ticket)); err != nil {
		return "", transportError(printer, fmt.Errorf("write %s: %w", printer.Address(), err))
	}
	return newJobID("lan"), nil
}
