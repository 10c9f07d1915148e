package lifecycle

import (
	"sort"
	"sync"
	"time"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
)

// view is the process-local working copy of known orders. Optimistic
// transitions are applied here first; every aggregate is touched only with
// mu held.
type view struct {
	mu     sync.Mutex
	orders map[kernel.UUID]*order.Order
}

func newView() *view {
	return &view{orders: make(map[kernel.UUID]*order.Order)}
}

func (v *view) snapshot(id kernel.UUID) (order.Snapshot, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	o, ok := v.orders[id]
	if !ok {
		return order.Snapshot{}, false
	}
	return o.Snapshot(), true
}

func (v *view) status(id kernel.UUID) (order.Status, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	o, ok := v.orders[id]
	if !ok {
		return order.Unknown, false
	}
	return o.Status(), true
}

// put replaces whatever the view holds for the order.
func (v *view) put(o *order.Order) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.orders[o.ID()] = o
}

// transition applies target optimistically and returns the state before and
// after together with the compensating action.
func (v *view) transition(id kernel.UUID, target order.Status, at time.Time) (order.Snapshot, order.Snapshot, func(), error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	o, ok := v.orders[id]
	if !ok {
		return order.Snapshot{}, order.Snapshot{}, nil, errOrderNotInView
	}
	before := o.Snapshot()
	undo, err := o.Transition(target, at)
	if err != nil {
		return before, before, nil, err
	}
	after := o.Snapshot()

	return before, after, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.orders[id] == o {
			undo()
		}
	}, nil
}

// merge applies a remote observation when it is newer than the local one.
// It reports whether the view changed and whether the order was unknown.
func (v *view) merge(remote *order.Order) (changed, added bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	local, ok := v.orders[remote.ID()]
	switch {
	case !ok:
		v.orders[remote.ID()] = remote
		return true, true
	case remote.StatusChangedAt().After(local.StatusChangedAt()):
		v.orders[remote.ID()] = remote
		return true, false
	default:
		return false, false
	}
}

func (v *view) markPointsCredited(id kernel.UUID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if o, ok := v.orders[id]; ok && !o.PointsCredited() && o.Status() == order.Completed {
		_ = o.MarkPointsCredited()
	}
}

// list returns the snapshots of one merchant's orders, oldest placement first.
func (v *view) list(merchantID kernel.UUID) []order.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []order.Snapshot
	for _, o := range v.orders {
		if o.MerchantID() == merchantID {
			out = append(out, o.Snapshot())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlacedAt.Equal(out[j].PlacedAt) {
			return out[i].Number < out[j].Number
		}
		return out[i].PlacedAt.Before(out[j].PlacedAt)
	})
	return out
}

// forget drops terminal orders whose last change happened before cutoff.
func (v *view) forget(cutoff time.Time) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for id, o := range v.orders {
		if o.Status().IsTerminal() && o.StatusChangedAt().Before(cutoff) {
			delete(v.orders, id)
			n++
		}
	}
	return n
}

func (v *view) len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.orders)
}
