// Package memory holds in-process implementations of core ports.
package memory

import (
	"context"
	"sync"
	"time"

	"cafe/internal/core/domain/model/kernel"
)

type ledgerEntry struct {
	reservedAt   time.Time
	dispatchedAt time.Time
	dispatched   bool
}

// PrintLedger is a process-local ports.PrintLedger. Records are kept until
// Evict removes them.
type PrintLedger struct {
	mu      sync.Mutex
	entries map[kernel.UUID]ledgerEntry
}

func NewPrintLedger() *PrintLedger {
	return &PrintLedger{entries: make(map[kernel.UUID]ledgerEntry)}
}

// Reserve claims orderID. Only the first caller gets true until the claim is released.
func (l *PrintLedger) Reserve(_ context.Context, orderID kernel.UUID, at time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[orderID]; ok {
		return false, nil
	}
	l.entries[orderID] = ledgerEntry{reservedAt: at}
	return true, nil
}

func (l *PrintLedger) Commit(_ context.Context, orderID kernel.UUID, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[orderID]
	if !ok {
		e.reservedAt = at
	}
	e.dispatched = true
	e.dispatchedAt = at
	l.entries[orderID] = e
	return nil
}

// Release drops an uncommitted reservation. Committed records stay.
func (l *PrintLedger) Release(_ context.Context, orderID kernel.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[orderID]; ok && !e.dispatched {
		delete(l.entries, orderID)
	}
	return nil
}

// Evict removes records reserved before the cutoff.
func (l *PrintLedger) Evict(_ context.Context, before time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for id, e := range l.entries {
		if e.reservedAt.Before(before) {
			delete(l.entries, id)
			n++
		}
	}
	return n, nil
}

// Dispatched reports whether orderID has a committed record.
func (l *PrintLedger) Dispatched(orderID kernel.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[orderID].dispatched
}
