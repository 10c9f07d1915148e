package printing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
	printmodel "cafe/internal/core/domain/model/printing"
	"cafe/internal/core/domain/services"
	"cafe/internal/core/ports"
	"cafe/internal/pkg/errs"

	"github.com/hashicorp/go-multierror"
)

const (
	DefaultStaleAfter  = 5 * time.Minute
	DefaultSendTimeout = 5 * time.Second
)

// StatusSource reports the freshest status known for an order. ok is false
// when the order is unknown to the source.
type StatusSource interface {
	CurrentStatus(orderID kernel.UUID) (status order.Status, ok bool)
}

// Engine delivers the kitchen ticket and receipt of an order through the
// merchant's printers, trying them in fallback order until one accepts.
//
// Automatic dispatch is guarded, in this order, by the merchant opt-out, the
// staleness window, the status check and the print ledger. Reprint skips all
// of them.
type Engine struct {
	profiles   ProfileSource
	ledger     ports.PrintLedger
	orders     ports.OrderReader
	formatter  services.ReceiptFormatter
	transports map[printmodel.TransportKind]ports.PrinterTransport
	status     StatusSource

	staleAfter  time.Duration
	sendTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithStaleAfter sets the staleness window. Non-positive values are ignored.
func WithStaleAfter(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.staleAfter = d
		}
	}
}

// WithSendTimeout bounds every single transport send. Non-positive values are ignored.
func WithSendTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.sendTimeout = d
		}
	}
}

// WithStatusSource makes the status guard consult src instead of the status
// carried by the dispatched snapshot.
func WithStatusSource(src StatusSource) EngineOption {
	return func(e *Engine) { e.status = src }
}

// WithFormatter replaces the default receipt formatter.
func WithFormatter(f services.ReceiptFormatter) EngineOption {
	return func(e *Engine) { e.formatter = f }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an engine over the given transports, one per kind. A later
// transport of the same kind replaces an earlier one.
func NewEngine(
	profiles ProfileSource,
	ledger ports.PrintLedger,
	orders ports.OrderReader,
	transports []ports.PrinterTransport,
	logger *slog.Logger,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		profiles:    profiles,
		ledger:      ledger,
		orders:      orders,
		formatter:   services.NewReceiptFormatter(),
		transports:  make(map[printmodel.TransportKind]ports.PrinterTransport, len(transports)),
		staleAfter:  DefaultStaleAfter,
		sendTimeout: DefaultSendTimeout,
		now:         time.Now,
		logger:      logger.With("component", "print_dispatch"),
	}
	for _, t := range transports {
		e.transports[t.Kind()] = t
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dispatch prints both tickets of a newly received order at most once.
//
// A second call for the same order, concurrent or later, returns
// AlreadyDispatched without touching a transport. A total failure releases
// the ledger entry so a later dispatch may try again; a partial one keeps it
// and the caller reprints the missing kinds.
func (e *Engine) Dispatch(ctx context.Context, o order.Snapshot, items []order.LineItem) Result {
	log := e.logger.With("order_id", o.ID.String(), "order_number", o.Number)

	profile, res, ok := e.profile(ctx, o)
	if !ok {
		return res
	}

	if profile.ManualOnly() {
		log.DebugContext(ctx, "merchant prints manually, skipping")
		return Result{Outcome: MerchantOptedOut, OrderID: o.ID}
	}

	if age := e.now().Sub(o.PlacedAt); age > e.staleAfter {
		log.DebugContext(ctx, "order too old for automatic print", "age", age.String())
		return Result{Outcome: Stale, OrderID: o.ID}
	}

	if status := e.currentStatus(o); status != order.Received {
		log.DebugContext(ctx, "order already advanced, skipping", "status", status.String())
		return Result{Outcome: StatusAdvanced, OrderID: o.ID}
	}

	chain := e.chain(profile)
	if len(chain) == 0 {
		log.WarnContext(ctx, "no printer transport configured")
		return Result{Outcome: NoTransportConfigured, OrderID: o.ID, Err: ErrNoTransportConfigured}
	}

	reserved, err := e.ledger.Reserve(ctx, o.ID, e.now())
	if err != nil {
		log.ErrorContext(ctx, "print ledger reserve failed", "error", err)
		return Result{Outcome: Failed, OrderID: o.ID, Err: fmt.Errorf("reserve print ledger: %w", err)}
	}
	if !reserved {
		log.DebugContext(ctx, "order already dispatched")
		return Result{Outcome: AlreadyDispatched, OrderID: o.ID}
	}

	rendered, err := e.formatter.Render(o, items, profile)
	if err != nil {
		e.release(ctx, o.ID)
		return Result{Outcome: Failed, OrderID: o.ID, Err: fmt.Errorf("render tickets: %w", err)}
	}

	result := e.deliver(ctx, o.ID, chain, rendered, printmodel.TicketKinds())

	// A cancelled caller must not leave the reservation dangling.
	ledgerCtx := context.WithoutCancel(ctx)
	if result.Outcome == Exhausted {
		e.release(ledgerCtx, o.ID)
	} else if err := e.ledger.Commit(ledgerCtx, o.ID, e.now()); err != nil {
		log.ErrorContext(ctx, "print ledger commit failed", "error", err)
	}

	e.logResult(ctx, log, result)
	return result
}

// Reprint sends the named ticket kinds again, or both when none are named.
// It loads the order from the record store and bypasses every dispatch guard.
func (e *Engine) Reprint(ctx context.Context, orderID kernel.UUID, kinds ...printmodel.TicketKind) Result {
	log := e.logger.With("order_id", orderID.String(), "reprint", true)

	aggregate, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return Result{Outcome: Failed, OrderID: orderID, Err: fmt.Errorf("load order: %w", err)}
	}
	items, err := e.orders.GetItems(ctx, orderID)
	if err != nil {
		return Result{Outcome: Failed, OrderID: orderID, Err: fmt.Errorf("load order items: %w", err)}
	}
	o := aggregate.Snapshot()

	profile, res, ok := e.profile(ctx, o)
	if !ok {
		return res
	}
	chain := e.chain(profile)
	if len(chain) == 0 {
		return Result{Outcome: NoTransportConfigured, OrderID: orderID, Err: ErrNoTransportConfigured}
	}

	rendered, err := e.formatter.Render(o, items, profile)
	if err != nil {
		return Result{Outcome: Failed, OrderID: orderID, Err: fmt.Errorf("render tickets: %w", err)}
	}

	if len(kinds) == 0 {
		kinds = printmodel.TicketKinds()
	}
	result := e.deliver(ctx, orderID, chain, rendered, kinds)
	e.logResult(ctx, log.With("order_number", o.Number), result)
	return result
}

func (e *Engine) profile(ctx context.Context, o order.Snapshot) (printmodel.MerchantProfile, Result, bool) {
	profile, err := e.profiles.Get(ctx, o.MerchantID)
	if errors.Is(err, errs.ErrObjectNotFound) {
		e.logger.WarnContext(ctx, "merchant has no printing profile", "merchant_id", o.MerchantID.String())
		return printmodel.MerchantProfile{}, Result{
			Outcome: NoTransportConfigured,
			OrderID: o.ID,
			Err:     fmt.Errorf("%w: %w", ErrNoTransportConfigured, err),
		}, false
	}
	if err != nil {
		return printmodel.MerchantProfile{}, Result{
			Outcome: Failed,
			OrderID: o.ID,
			Err:     fmt.Errorf("load merchant profile: %w", err),
		}, false
	}
	return profile, Result{}, true
}

func (e *Engine) currentStatus(o order.Snapshot) order.Status {
	if e.status != nil {
		if status, ok := e.status.CurrentStatus(o.ID); ok {
			return status
		}
	}
	return o.Status
}

// link pairs a configured printer with the transport that drives it.
type link struct {
	printer   printmodel.PrinterConfig
	transport ports.PrinterTransport
}

// chain resolves the merchant's printers to transports. The manual fallback
// is always available when its transport is registered, so it closes every
// chain that does not list it explicitly.
func (e *Engine) chain(profile printmodel.MerchantProfile) []link {
	var links []link
	hasManual := false
	for _, p := range profile.Chain() {
		t, ok := e.transports[p.Kind()]
		if !ok {
			continue
		}
		if p.Kind() == printmodel.ManualFallback {
			hasManual = true
		}
		links = append(links, link{printer: p, transport: t})
	}

	if manual, ok := e.transports[printmodel.ManualFallback]; ok && !hasManual {
		p, err := printmodel.NewPrinterConfig(printmodel.PrinterConfigParams{
			ID:      profile.MerchantID(),
			Kind:    printmodel.ManualFallback,
			Enabled: true,
		})
		if err == nil {
			links = append(links, link{printer: p, transport: manual})
		}
	}
	return links
}

func (e *Engine) deliver(
	ctx context.Context,
	orderID kernel.UUID,
	chain []link,
	rendered services.RenderedTickets,
	kinds []printmodel.TicketKind,
) Result {
	tickets := make([]TicketResult, 0, len(kinds))
	for _, kind := range kinds {
		ticket, ok := rendered.Get(kind)
		if !ok {
			continue
		}
		tickets = append(tickets, e.send(ctx, chain, ticket))
	}
	if len(tickets) == 0 {
		return Result{Outcome: Failed, OrderID: orderID, Err: errors.New("no ticket kinds to print")}
	}

	result := Result{Outcome: outcomeFor(tickets), OrderID: orderID, Tickets: tickets}
	if !result.Outcome.IsSuccess() {
		var merr *multierror.Error
		for _, t := range tickets {
			if t.Err != nil {
				merr = multierror.Append(merr, fmt.Errorf("%s: %w", t.Kind, t.Err))
			}
		}
		result.Err = merr.ErrorOrNil()
	}
	return result
}

// send walks the chain for one ticket and stops at the first success.
func (e *Engine) send(ctx context.Context, chain []link, ticket printmodel.Ticket) TicketResult {
	res := TicketResult{Kind: ticket.Kind}
	var merr *multierror.Error

	for _, l := range chain {
		if ctx.Err() != nil {
			merr = multierror.Append(merr, ctx.Err())
			break
		}

		started := e.now()
		jobID, err := e.sendOne(ctx, l, ticket)

		attempt := Attempt{
			Transport: l.printer.Kind(),
			PrinterID: l.printer.ID(),
			JobID:     jobID,
			Duration:  e.now().Sub(started),
		}
		if err != nil {
			var te *ports.TransportError
			if !errors.As(err, &te) {
				te = &ports.TransportError{Transport: l.printer.Kind(), PrinterID: l.printer.ID(), Err: err}
			}
			attempt.Err = te
			res.Attempts = append(res.Attempts, attempt)
			merr = multierror.Append(merr, te)

			e.logger.WarnContext(ctx, "printer transport failed",
				"ticket", ticket.Title(),
				"transport", l.printer.Kind().String(),
				"printer_id", l.printer.ID().String(),
				"error", err,
			)
			continue
		}

		res.Attempts = append(res.Attempts, attempt)
		res.Printed = true
		res.JobID = jobID
		res.Transport = l.printer.Kind()
		return res
	}

	res.Err = merr.ErrorOrNil()
	return res
}

type sendOutcome struct {
	jobID ports.JobID
	err   error
}

// sendOne runs one transport send under the send timeout. A transport that
// ignores its context is abandoned when the timeout fires; its goroutine
// finishes on its own and the late result is discarded.
func (e *Engine) sendOne(ctx context.Context, l link, ticket printmodel.Ticket) (ports.JobID, error) {
	sendCtx, cancel := context.WithTimeout(ctx, e.sendTimeout)
	defer cancel()

	done := make(chan sendOutcome, 1)
	go func() {
		jobID, err := l.transport.Send(sendCtx, l.printer, ticket)
		done <- sendOutcome{jobID: jobID, err: err}
	}()

	select {
	case out := <-done:
		return out.jobID, out.err
	case <-sendCtx.Done():
		return "", &ports.TransportError{
			Transport: l.printer.Kind(),
			PrinterID: l.printer.ID(),
			Err:       fmt.Errorf("send abandoned after %s: %w", e.sendTimeout, sendCtx.Err()),
		}
	}
}

func (e *Engine) release(ctx context.Context, orderID kernel.UUID) {
	if err := e.ledger.Release(ctx, orderID); err != nil {
		e.logger.ErrorContext(ctx, "print ledger release failed", "order_id", orderID.String(), "error", err)
	}
}

func (e *Engine) logResult(ctx context.Context, log *slog.Logger, r Result) {
	switch r.Outcome {
	case Printed:
		for _, t := range r.Tickets {
			log.InfoContext(ctx, "ticket printed",
				"ticket", t.Kind.String(),
				"transport", t.Transport.String(),
				"job_id", string(t.JobID),
				"attempts", len(t.Attempts),
			)
		}
	case Partial:
		log.WarnContext(ctx, "dispatch partially printed", "missing", fmt.Sprint(r.Missing()), "error", r.Err)
	case Exhausted:
		log.ErrorContext(ctx, "every printer transport failed", "error", r.Err)
	default:
		log.DebugContext(ctx, "dispatch finished", "outcome", r.Outcome.String())
	}
}
