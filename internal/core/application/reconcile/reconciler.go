package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
	"cafe/internal/core/ports"

	"github.com/hashicorp/go-multierror"
)

const (
	// OrdersTable is the table whose row changes feed the reconciler.
	OrdersTable = "orders"

	DefaultBufferSize = 64
	DefaultRetention  = 24 * time.Hour
)

// ErrReconcilerClosed is returned by Observe after Close.
var ErrReconcilerClosed = errors.New("reconciler is closed")

// Reconciler merges push notifications and periodic polls of the order
// record store into one deduplicated fact stream per merchant.
type Reconciler struct {
	registry  *Registry
	orders    ports.OrderReader
	logger    *slog.Logger
	buffer    int
	retention time.Duration
	now       func() time.Time

	mu     sync.Mutex
	feeds  map[kernel.UUID]*feed
	closed bool
}

// Option customises a Reconciler.
type Option func(*Reconciler)

// WithBufferSize sets the per-subscriber channel capacity.
func WithBufferSize(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.buffer = n
		}
	}
}

// WithRetention sets how long dedup keys are kept and how far back terminal
// orders are listed by a poll.
func WithRetention(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.retention = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func NewReconciler(registry *Registry, orders ports.OrderReader, logger *slog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		registry:  registry,
		orders:    orders,
		logger:    logger.With("component", "reconciler"),
		buffer:    DefaultBufferSize,
		retention: DefaultRetention,
		now:       time.Now,
		feeds:     make(map[kernel.UUID]*feed),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscription is one consumer's stream of facts. The channel closes only
// after Close or when the Observe context ends.
type Subscription struct {
	reconciler *Reconciler
	feed       *feed
	facts      chan ChangeFact
	dropped    atomic.Int64
	// missed maps orders with dropped facts to the kind owed. Guarded by the
	// feed lock.
	missed map[kernel.UUID]FactKind
	stop   func() bool
	once       sync.Once
}

// Facts is the receive side of the stream.
func (s *Subscription) Facts() <-chan ChangeFact { return s.facts }

// Dropped counts facts lost because the consumer fell behind.
func (s *Subscription) Dropped() int64 { return s.dropped.Load() }

// Close ends the stream. Safe to call more than once.
func (s *Subscription) Close() {
	if s.stop != nil {
		s.stop()
	}
	s.close()
}

func (s *Subscription) close() {
	s.once.Do(func() { s.reconciler.detach(s) })
}

// offer enqueues without blocking. When the buffer is full the oldest fact is
// dropped and offer reports false. Orders whose facts were dropped are
// remembered so the next poll can deliver their current state again. Called
// with the feed lock held.
func (s *Subscription) offer(fact ChangeFact) bool {
	if s.enqueue(fact) {
		return true
	}

	select {
	case old := <-s.facts:
		s.dropped.Add(1)
		s.miss(old)
	default:
	}
	if !s.enqueue(fact) {
		s.dropped.Add(1)
		s.miss(fact)
	}
	return false
}

// enqueue delivers fact if there is room. A fact for an order whose first
// sighting was dropped is upgraded to NewOrder, and delivering it settles
// the order's missed entry.
func (s *Subscription) enqueue(fact ChangeFact) bool {
	if kind, owed := s.missed[fact.OrderID]; owed && kind == NewOrder {
		fact.Kind = NewOrder
	}
	select {
	case s.facts <- fact:
		delete(s.missed, fact.OrderID)
		return true
	default:
		return false
	}
}

func (s *Subscription) miss(fact ChangeFact) {
	if s.missed == nil {
		s.missed = make(map[kernel.UUID]FactKind)
	}
	if kind, ok := s.missed[fact.OrderID]; ok && kind == NewOrder {
		return
	}
	s.missed[fact.OrderID] = fact.Kind
}

// Missed counts orders whose latest fact has not reached the consumer yet.
func (s *Subscription) Missed() int {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	return len(s.missed)
}

// Observe starts a fact stream for one merchant. The first observer of a
// merchant registers for push notifications and seeds the snapshot with a
// poll; later observers share both and start with a replay of the snapshot.
func (r *Reconciler) Observe(ctx context.Context, filter MerchantFilter) (*Subscription, error) {
	if err := filter.MerchantID.Validate(); err != nil {
		return nil, fmt.Errorf("merchant filter: %w", err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrReconcilerClosed
	}

	f, exists := r.feeds[filter.MerchantID]
	if !exists {
		f = newFeed(filter.MerchantID, r.logger)
		lease, err := r.registry.Acquire(ctx, OrdersTable, filter.push(), func(e ports.PushEvent) {
			f.push(e.Order, r.now())
		})
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
		f.lease = lease
		r.feeds[filter.MerchantID] = f
	}

	sub := &Subscription{
		reconciler: r,
		feed:       f,
		facts:      make(chan ChangeFact, r.buffer),
	}
	f.attach(sub)
	r.mu.Unlock()

	sub.stop = context.AfterFunc(ctx, sub.close)

	if !exists {
		if err := r.pollFeed(ctx, f); err != nil {
			r.logger.WarnContext(ctx, "initial poll failed; waiting for push and the next poll",
				"merchant_id", filter.MerchantID.String(), "error", err)
		}
	}

	r.logger.DebugContext(ctx, "fact subscriber attached", "merchant_id", filter.MerchantID.String())
	return sub, nil
}

func (r *Reconciler) detach(sub *Subscription) {
	r.mu.Lock()
	remaining := sub.feed.detach(sub)
	var lease *Lease
	if remaining == 0 && r.feeds[sub.feed.merchantID] == sub.feed {
		delete(r.feeds, sub.feed.merchantID)
		lease = sub.feed.close()
	}
	r.mu.Unlock()

	if lease != nil {
		if err := lease.Release(); err != nil {
			r.logger.Warn("push registration teardown failed", "key", lease.Key(), "error", err)
		}
	}
}

// Poll refreshes every observed merchant, re-delivers facts that slow
// subscribers lost and evicts expired dedup keys.
// Errors for individual merchants are collected; the others still refresh.
func (r *Reconciler) Poll(ctx context.Context) error {
	var merr *multierror.Error
	for _, f := range r.activeFeeds() {
		if err := r.pollFeed(ctx, f); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("merchant %s: %w", f.merchantID, err))
		}
		f.evict(r.now().Add(-r.retention))
	}
	return merr.ErrorOrNil()
}

func (r *Reconciler) pollFeed(ctx context.Context, f *feed) error {
	list, err := r.orders.ListByMerchant(ctx, f.merchantID, r.retention)
	if err != nil {
		return err
	}
	snaps := make([]order.Snapshot, 0, len(list))
	for _, o := range list {
		snaps = append(snaps, o.Snapshot())
	}
	if n := f.poll(snaps, r.now()); n > 0 {
		r.logger.DebugContext(ctx, "poll synthesised facts", "merchant_id", f.merchantID.String(), "facts", n)
	}
	return nil
}

func (r *Reconciler) activeFeeds() []*feed {
	r.mu.Lock()
	defer r.mu.Unlock()
	feeds := make([]*feed, 0, len(r.feeds))
	for _, f := range r.feeds {
		feeds = append(feeds, f)
	}
	return feeds
}

// Merchants lists the merchants currently observed.
func (r *Reconciler) Merchants() []kernel.UUID {
	feeds := r.activeFeeds()
	ids := make([]kernel.UUID, 0, len(feeds))
	for _, f := range feeds {
		ids = append(ids, f.merchantID)
	}
	return ids
}

// Latest returns the reconciled snapshot of an order, if any observed
// merchant has it.
func (r *Reconciler) Latest(orderID kernel.UUID) (order.Snapshot, bool) {
	for _, f := range r.activeFeeds() {
		if s, ok := f.status(orderID); ok {
			return s, true
		}
	}
	return order.Snapshot{}, false
}

// Close ends every subscription and releases all push registrations.
func (r *Reconciler) Close() {
	r.mu.Lock()
	r.closed = true
	var subs []*Subscription
	for _, f := range r.feeds {
		f.mu.Lock()
		for sub := range f.subscribers {
			subs = append(subs, sub)
		}
		f.mu.Unlock()
	}
	r.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
