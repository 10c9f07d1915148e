package reconcile

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
)

// feed is the reconciled view of one merchant's orders. Both sources merge
// here; a key is emitted at most once while it is retained.
type feed struct {
	merchantID kernel.UUID
	logger     *slog.Logger

	mu          sync.Mutex
	snapshot    map[kernel.UUID]order.Snapshot
	seen        map[FactKey]time.Time
	subscribers map[*Subscription]struct{}
	lease       *Lease
	closed      bool
}

func newFeed(merchantID kernel.UUID, logger *slog.Logger) *feed {
	return &feed{
		merchantID:  merchantID,
		logger:      logger.With("merchant_id", merchantID.String()),
		snapshot:    make(map[kernel.UUID]order.Snapshot),
		seen:        make(map[FactKey]time.Time),
		subscribers: make(map[*Subscription]struct{}),
	}
}

// merge folds one observed order into the snapshot and returns the fact to
// emit, if any. Callers hold f.mu.
func (f *feed) merge(s order.Snapshot, source Source, now time.Time) (ChangeFact, bool) {
	key := keyOf(s)
	prev, known := f.snapshot[s.ID]

	if known && s.StatusChangedAt.Before(prev.StatusChangedAt) {
		f.logger.Debug("ignoring older observation",
			"order_id", s.ID.String(), "status", s.Status.String(), "source", source.String())
		return ChangeFact{}, false
	}
	f.snapshot[s.ID] = s

	if _, dup := f.seen[key]; dup {
		return ChangeFact{}, false
	}
	f.seen[key] = now

	kind := StatusChanged
	if !known {
		kind = NewOrder
	}
	return newFact(kind, source, s), true
}

// push merges one push-delivered order and broadcasts the resulting fact.
func (f *feed) push(s order.Snapshot, now time.Time) {
	if !s.MerchantID.IsEqual(f.merchantID) {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	if fact, ok := f.merge(s, FromPush, now); ok {
		f.broadcast(fact)
	}
}

// poll diffs a full listing against the snapshot and broadcasts the changes
// in ascending creation order. Orders missing from the listing are forgotten.
func (f *feed) poll(orders []order.Snapshot, now time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0
	}

	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].PlacedAt.Equal(orders[j].PlacedAt) {
			return orders[i].ID.String() < orders[j].ID.String()
		}
		return orders[i].PlacedAt.Before(orders[j].PlacedAt)
	})

	listed := make(map[kernel.UUID]struct{}, len(orders))
	emitted := 0
	for _, s := range orders {
		listed[s.ID] = struct{}{}
		if fact, ok := f.merge(s, FromPoll, now); ok {
			f.broadcast(fact)
			emitted++
		}
	}
	for id := range f.snapshot {
		if _, ok := listed[id]; !ok {
			delete(f.snapshot, id)
		}
	}
	return emitted + f.resync()
}

// resync hands every subscriber the current state of the orders whose facts
// it lost, as far as its buffer has room; the rest wait for the next poll.
// An order no longer in the snapshot is owed nothing. Callers hold f.mu.
func (f *feed) resync() int {
	redelivered := 0
	for sub := range f.subscribers {
		if len(sub.missed) == 0 {
			continue
		}

		owed := make([]ChangeFact, 0, len(sub.missed))
		for id, kind := range sub.missed {
			s, ok := f.snapshot[id]
			if !ok {
				delete(sub.missed, id)
				continue
			}
			owed = append(owed, newFact(kind, FromPoll, s))
		}
		sort.Slice(owed, func(i, j int) bool { return owed[i].CreatedAt.Before(owed[j].CreatedAt) })

		n := 0
		for _, fact := range owed {
			if !sub.enqueue(fact) {
				break
			}
			n++
		}
		redelivered += n
		if n == 0 {
			continue
		}
		f.logger.Info("re-delivered facts to a slow subscriber", "facts", n, "still_missed", len(sub.missed))
	}
	return redelivered
}

// evict forgets dedup keys first seen before the cutoff.
func (f *feed) evict(before time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, at := range f.seen {
		if at.Before(before) {
			delete(f.seen, key)
		}
	}
}

// attach registers sub and replays the current snapshot to it.
func (f *feed) attach(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.subscribers[sub] = struct{}{}

	current := make([]order.Snapshot, 0, len(f.snapshot))
	for _, s := range f.snapshot {
		current = append(current, s)
	}
	sort.Slice(current, func(i, j int) bool { return current[i].PlacedAt.Before(current[j].PlacedAt) })
	for _, s := range current {
		sub.offer(newFact(NewOrder, FromPoll, s))
	}
}

// detach removes sub and reports how many subscribers remain.
func (f *feed) detach(sub *Subscription) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.subscribers[sub]; ok {
		delete(f.subscribers, sub)
		close(sub.facts)
	}
	return len(f.subscribers)
}

func (f *feed) close() *Lease {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	lease := f.lease
	f.lease = nil
	return lease
}

func (f *feed) broadcast(fact ChangeFact) {
	for sub := range f.subscribers {
		if sub.offer(fact) {
			continue
		}
		f.logger.Warn("slow fact subscriber, dropped oldest fact",
			"order_id", fact.OrderID.String(), "status", fact.Status.String())
	}
}

func (f *feed) status(orderID kernel.UUID) (order.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snapshot[orderID]
	return s, ok
}
