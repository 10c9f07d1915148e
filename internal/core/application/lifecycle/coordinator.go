package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cafe/internal/core/application/printing"
	"cafe/internal/core/application/reconcile"
	"cafe/internal/core/application/usecases/commands"
	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
	"cafe/internal/core/ports"

	"golang.org/x/sync/errgroup"
)

// DefaultSideEffectTimeout bounds each background task started by the
// coordinator: loyalty credit, event publishing and new order dispatch.
const DefaultSideEffectTimeout = 30 * time.Second

var errOrderNotInView = errors.New("order not in view")

// FactSource is the reconciled stream of remote order changes.
type FactSource interface {
	Observe(ctx context.Context, filter reconcile.MerchantFilter) (*reconcile.Subscription, error)
}

// Dispatcher prints the tickets of a newly received order.
type Dispatcher interface {
	Dispatch(ctx context.Context, o order.Snapshot, items []order.LineItem) printing.Result
}

// Coordinator owns the order workflow in this process. It applies staff
// transitions optimistically, makes them authoritative with a compare-and-set
// write, and folds remote changes from the reconciler into the same view.
//
// At most one transition per order id is in flight at any time. Transitions of
// different orders run concurrently.
type Coordinator struct {
	uowFactory commands.OrderUoWFactory
	orders     ports.OrderReader
	facts      FactSource
	dispatcher Dispatcher
	loyalty    ports.LoyaltyCreditor
	events     ports.EventPublisher
	logger     *slog.Logger

	now               func() time.Time
	sideEffectTimeout time.Duration

	view *view

	mu       sync.Mutex
	inFlight map[kernel.UUID]struct{}

	background sync.WaitGroup
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithClock replaces time.Now for transition timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithSideEffectTimeout bounds every background task.
func WithSideEffectTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.sideEffectTimeout = d
		}
	}
}

func NewCoordinator(
	uowFactory commands.OrderUoWFactory,
	orders ports.OrderReader,
	facts FactSource,
	dispatcher Dispatcher,
	loyalty ports.LoyaltyCreditor,
	events ports.EventPublisher,
	logger *slog.Logger,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		uowFactory:        uowFactory,
		orders:            orders,
		facts:             facts,
		dispatcher:        dispatcher,
		loyalty:           loyalty,
		events:            events,
		logger:            logger.With("component", "lifecycle"),
		now:               time.Now,
		sideEffectTimeout: DefaultSideEffectTimeout,
		view:              newView(),
		inFlight:          make(map[kernel.UUID]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestTransition moves an order to the command's target status.
//
// Returns:
//   - the committed snapshot on success
//   - ErrTransitionInProgress when another transition of the order is pending
//   - *order.InvalidTransitionError when the workflow forbids the move; nothing is written
//   - *TransitionError when the authoritative write fails; the view is rolled
//     back and refreshed, and the request is not retried
func (c *Coordinator) RequestTransition(ctx context.Context, cmd commands.RequestTransitionCommand) (order.Snapshot, error) {
	if err := cmd.Validate(); err != nil {
		return order.Snapshot{}, err
	}
	id := cmd.OrderID()

	if !c.acquire(id) {
		return order.Snapshot{}, ErrTransitionInProgress
	}
	defer c.release(id)

	if err := c.ensureLoaded(ctx, id); err != nil {
		return order.Snapshot{}, err
	}

	at := cmd.RequestedAt()
	if at.IsZero() {
		at = c.now()
	}

	before, after, undo, err := c.view.transition(id, cmd.Target(), at)
	if err != nil {
		return before, err
	}

	log := c.logger.With(
		"order_id", id.String(),
		"order_number", after.Number,
		"from", before.Status.String(),
		"to", after.Status.String(),
	)

	if err = c.write(ctx, before, after); err != nil {
		undo()
		c.refresh(ctx, id, log)
		log.WarnContext(ctx, "transition rolled back", "error", err)
		return order.Snapshot{}, &TransitionError{OrderID: id, From: before.Status, To: after.Status, Err: err}
	}

	log.InfoContext(ctx, "order transitioned")

	c.goBackground(ctx, func(bctx context.Context) { c.publish(bctx, before, after) })
	if after.Status == order.Completed && !after.PointsCredited {
		c.goBackground(ctx, func(bctx context.Context) { c.creditLoyalty(bctx, after) })
	}

	return after, nil
}

func (c *Coordinator) write(ctx context.Context, before, after order.Snapshot) error {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err := uow.OrderRepository().UpdateStatus(ctx, after.ID, before.Status, after.Status, after.StatusChangedAt); err != nil {
		return err
	}

	return uow.Commit(ctx)
}

// refresh replaces the view's copy with the authoritative record. A failed
// fetch leaves the rolled back copy in place for the next fact to correct.
func (c *Coordinator) refresh(ctx context.Context, id kernel.UUID, log *slog.Logger) {
	fresh, err := c.orders.Get(ctx, id)
	if err != nil {
		log.WarnContext(ctx, "refetch after failed transition", "error", err)
		return
	}
	c.view.put(fresh)
}

func (c *Coordinator) ensureLoaded(ctx context.Context, id kernel.UUID) error {
	if _, ok := c.view.status(id); ok {
		return nil
	}
	o, err := c.orders.Get(ctx, id)
	if err != nil {
		return err
	}
	c.view.merge(o)
	return nil
}

func (c *Coordinator) acquire(id kernel.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[id]; busy {
		return false
	}
	c.inFlight[id] = struct{}{}
	return true
}

func (c *Coordinator) release(id kernel.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, id)
}

func (c *Coordinator) busy(id kernel.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[id]
	return ok
}

// goBackground runs fn detached from the caller's cancellation but bounded by
// the side effect timeout. Wait blocks until every task is done.
func (c *Coordinator) goBackground(ctx context.Context, fn func(context.Context)) {
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.sideEffectTimeout)
		defer cancel()
		fn(bctx)
	}()
}

func (c *Coordinator) publish(ctx context.Context, before, after order.Snapshot) {
	if c.events == nil {
		return
	}
	err := c.events.PublishStatusChanged(ctx, ports.StatusChangedEvent{
		OrderID:     after.ID,
		OrderNumber: after.Number,
		MerchantID:  after.MerchantID,
		From:        before.Status,
		To:          after.Status,
		ChangedAt:   after.StatusChangedAt,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "status event not published",
			"order_id", after.ID.String(), "to", after.Status.String(), "error", err)
	}
}

// creditLoyalty is best effort: every failure is logged and dropped.
func (c *Coordinator) creditLoyalty(ctx context.Context, completed order.Snapshot) {
	if c.loyalty == nil {
		return
	}
	log := c.logger.With("order_id", completed.ID.String(), "order_number", completed.Number)

	if err := c.loyalty.Credit(ctx, completed); err != nil {
		log.ErrorContext(ctx, "loyalty credit failed", "error", err)
		return
	}

	if err := c.markPointsCredited(ctx, completed.ID); err != nil {
		if errors.Is(err, order.ErrPointsAlreadyCredited) {
			log.DebugContext(ctx, "points were already credited")
			return
		}
		log.ErrorContext(ctx, "points credited flag not stored", "error", err)
		return
	}
	c.view.markPointsCredited(completed.ID)
	log.InfoContext(ctx, "loyalty points credited")
}

func (c *Coordinator) markPointsCredited(ctx context.Context, id kernel.UUID) error {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err := uow.OrderRepository().MarkPointsCredited(ctx, id); err != nil {
		return err
	}

	return uow.Commit(ctx)
}

// Run consumes the fact streams of the given merchants until ctx ends. Remote
// status changes newer than the view are applied, except for orders with a
// transition in flight; the first Received sighting of an order starts an
// automatic print dispatch in the background.
func (c *Coordinator) Run(ctx context.Context, merchants []kernel.UUID) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	// Each consumer starts right after its Observe so the initial snapshot
	// is drained while the next merchant is still being polled.
	for _, merchantID := range merchants {
		sub, err := c.facts.Observe(gctx, reconcile.MerchantFilter{MerchantID: merchantID})
		if err != nil {
			cancel()
			_ = g.Wait()
			return fmt.Errorf("observe merchant %s: %w", merchantID, err)
		}
		g.Go(func() error {
			defer sub.Close()
			c.consume(gctx, sub)
			return nil
		})
	}

	c.logger.InfoContext(ctx, "consuming order facts", "merchants", len(merchants))
	return g.Wait()
}

func (c *Coordinator) consume(ctx context.Context, sub *reconcile.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case fact, ok := <-sub.Facts():
			if !ok {
				return
			}
			c.Apply(ctx, fact)
		}
	}
}

// Apply folds one fact into the view. It is what Run does per fact and is
// exported for callers that manage their own subscriptions.
func (c *Coordinator) Apply(ctx context.Context, fact reconcile.ChangeFact) {
	log := c.logger.With(
		"order_id", fact.OrderID.String(),
		"status", fact.Status.String(),
		"source", fact.Source.String(),
	)

	if c.busy(fact.OrderID) {
		log.DebugContext(ctx, "fact skipped while a transition is in flight")
		return
	}

	remote, err := order.RestoreOrder(fact.Order)
	if err != nil {
		log.WarnContext(ctx, "fact carries an invalid order", "error", err)
		return
	}

	if changed, added := c.view.merge(remote); changed && !added {
		log.DebugContext(ctx, "remote status applied")
	}

	// The print ledger makes repeated sightings harmless.
	if fact.Kind == reconcile.NewOrder && fact.Status == order.Received {
		snapshot := remote.Snapshot()
		c.goBackground(ctx, func(bctx context.Context) { c.dispatchNew(bctx, snapshot) })
	}
}

func (c *Coordinator) dispatchNew(ctx context.Context, o order.Snapshot) {
	log := c.logger.With("order_id", o.ID.String(), "order_number", o.Number)

	items, err := c.orders.GetItems(ctx, o.ID)
	if err != nil {
		log.WarnContext(ctx, "items not loaded; order left for manual printing", "error", err)
		return
	}

	result := c.dispatcher.Dispatch(ctx, o, items)
	log.DebugContext(ctx, "automatic dispatch finished", "outcome", result.Outcome.String())
}

// CurrentStatus reports the view's status of an order. It lets the dispatch
// engine notice a status that moved on before printing started.
func (c *Coordinator) CurrentStatus(id kernel.UUID) (order.Status, bool) {
	return c.view.status(id)
}

// Snapshot returns the view's copy of an order.
func (c *Coordinator) Snapshot(id kernel.UUID) (order.Snapshot, bool) {
	return c.view.snapshot(id)
}

// Orders lists the view's orders of a merchant, oldest first.
func (c *Coordinator) Orders(merchantID kernel.UUID) []order.Snapshot {
	return c.view.list(merchantID)
}

// Forget drops terminal orders last changed before cutoff from the view.
func (c *Coordinator) Forget(cutoff time.Time) int {
	return c.view.forget(cutoff)
}

// Wait blocks until every background task has finished.
func (c *Coordinator) Wait() {
	c.background.Wait()
}
