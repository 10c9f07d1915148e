package reconcile

import (
	"context"
	"fmt"
	"sync"

	"cafe/internal/core/ports"
)

// Registry shares push registrations. Every (table, filter) pair has at most
// one registration at the subscriber; interested parties hold a Lease on it
// and the registration is torn down when the last lease is released.
type Registry struct {
	subscriber ports.PushSubscriber

	mu     sync.Mutex
	regs   map[string]*registration
	nextID uint64
}

type registration struct {
	key    string
	handle ports.SubscriptionHandle

	mu        sync.RWMutex
	listeners map[uint64]func(ports.PushEvent)
}

func (r *registration) dispatch(e ports.PushEvent) {
	r.mu.RLock()
	listeners := make([]func(ports.PushEvent), 0, len(r.listeners))
	for _, l := range r.listeners {
		listeners = append(listeners, l)
	}
	r.mu.RUnlock()

	for _, l := range listeners {
		l(e)
	}
}

// Lease is one party's interest in a shared registration.
type Lease struct {
	registry *Registry
	key      string
	id       uint64
	once     sync.Once
}

// Key is the shared registration key, "table?column=eq.value".
func (l *Lease) Key() string { return l.key }

// Release detaches the lease. It is safe to call more than once.
func (l *Lease) Release() error {
	var err error
	l.once.Do(func() { err = l.registry.release(l) })
	return err
}

func NewRegistry(subscriber ports.PushSubscriber) *Registry {
	return &Registry{
		subscriber: subscriber,
		regs:       make(map[string]*registration),
	}
}

func registrationKey(table string, filter ports.PushFilter) string {
	return table + "?" + filter.String()
}

// Acquire attaches callback to the registration for (table, filter),
// subscribing on first use.
func (r *Registry) Acquire(
	ctx context.Context,
	table string,
	filter ports.PushFilter,
	callback func(ports.PushEvent),
) (*Lease, error) {
	key := registrationKey(table, filter)

	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.regs[key]
	if !ok {
		reg = &registration{key: key, listeners: make(map[uint64]func(ports.PushEvent))}
		handle, err := r.subscriber.Subscribe(ctx, table, filter, reg.dispatch)
		if err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", key, err)
		}
		reg.handle = handle
		r.regs[key] = reg
	}

	r.nextID++
	id := r.nextID
	reg.mu.Lock()
	reg.listeners[id] = callback
	reg.mu.Unlock()

	return &Lease{registry: r, key: key, id: id}, nil
}

func (r *Registry) release(l *Lease) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.regs[l.key]
	if !ok {
		return nil
	}

	reg.mu.Lock()
	delete(reg.listeners, l.id)
	remaining := len(reg.listeners)
	reg.mu.Unlock()
	if remaining > 0 {
		return nil
	}

	delete(r.regs, l.key)
	if err := r.subscriber.Unsubscribe(reg.handle); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", l.key, err)
	}
	return nil
}

// Refs returns the number of leases on (table, filter).
func (r *Registry) Refs(table string, filter ports.PushFilter) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.regs[registrationKey(table, filter)]
	if !ok {
		return 0
	}
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.listeners)
}

// Registrations is the number of live registrations at the subscriber.
func (r *Registry) Registrations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.regs)
}
