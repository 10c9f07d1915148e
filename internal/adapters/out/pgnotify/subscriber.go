// Package pgnotify implements the push channel on PostgreSQL LISTEN/NOTIFY.
// The orders_notify_change trigger publishes every inserted or updated order
// row on the "<table>_changes" channel; Subscriber multiplexes one pq.Listener
// across all registrations.
package pgnotify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"cafe/internal/adapters/out/postgres/migrations"
	"cafe/internal/core/ports"

	"github.com/lib/pq"
)

const (
	minReconnectInterval = 500 * time.Millisecond
	maxReconnectInterval = 30 * time.Second
	pingInterval         = 90 * time.Second
)

// ErrSubscriberClosed is returned by Subscribe after Close.
var ErrSubscriberClosed = errors.New("push subscriber is closed")

type handle struct {
	key      string
	table    string
	filter   ports.PushFilter
	callback func(ports.PushEvent)
}

func (h *handle) Key() string { return h.key }

// listener is the subset of *pq.Listener the subscriber uses.
type listener interface {
	Listen(channel string) error
	Unlisten(channel string) error
	Ping() error
	Close() error
	NotificationChannel() <-chan *pq.Notification
}

// Subscriber implements ports.PushSubscriber.
type Subscriber struct {
	listener listener
	logger   *slog.Logger

	mu       sync.RWMutex
	handles  map[string]*handle
	channels map[string]int
	closed   bool

	nextID      atomic.Uint64
	onReconnect func()
}

// Option customises a Subscriber.
type Option func(*Subscriber)

// WithReconnectHook registers fn to run after the listener re-establishes its
// connection. Notifications sent while disconnected are lost, so callers
// typically trigger a poll from here.
func WithReconnectHook(fn func()) Option {
	return func(s *Subscriber) { s.onReconnect = fn }
}

// NewSubscriber opens a pq.Listener on dsn.
func NewSubscriber(dsn string, logger *slog.Logger, opts ...Option) *Subscriber {
	s := newSubscriber(logger, opts...)
	l := pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval, s.listenerEvent)
	s.listener = l
	return s
}

// NewSubscriberWithListener builds a Subscriber around an existing listener. Used by tests.
func NewSubscriberWithListener(l listener, logger *slog.Logger, opts ...Option) *Subscriber {
	s := newSubscriber(logger, opts...)
	s.listener = l
	return s
}

func newSubscriber(logger *slog.Logger, opts ...Option) *Subscriber {
	s := &Subscriber{
		logger:   logger.With("component", "pgnotify"),
		handles:  make(map[string]*handle),
		channels: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers callback for changes on table matching filter.
// The first registration for a table issues LISTEN.
func (s *Subscriber) Subscribe(
	_ context.Context,
	table string,
	filter ports.PushFilter,
	callback func(ports.PushEvent),
) (ports.SubscriptionHandle, error) {
	if callback == nil {
		return nil, errors.New("callback is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSubscriberClosed
	}

	channel := migrations.NotifyChannel(table)
	if s.channels[channel] == 0 {
		if err := s.listener.Listen(channel); err != nil && !errors.Is(err, pq.ErrChannelAlreadyOpen) {
			return nil, fmt.Errorf("listen %s: %w", channel, err)
		}
	}
	s.channels[channel]++

	h := &handle{
		key:      table + "?" + filter.String() + "#" + strconv.FormatUint(s.nextID.Add(1), 10),
		table:    table,
		filter:   filter,
		callback: callback,
	}
	s.handles[h.key] = h

	s.logger.Debug("push registration added", "table", table, "filter", filter.String())
	return h, nil
}

// Unsubscribe removes a registration. The last one for a table issues UNLISTEN.
func (s *Subscriber) Unsubscribe(sh ports.SubscriptionHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[sh.Key()]
	if !ok {
		return nil
	}
	delete(s.handles, h.key)

	channel := migrations.NotifyChannel(h.table)
	s.channels[channel]--
	if s.channels[channel] > 0 {
		return nil
	}
	delete(s.channels, channel)

	if s.closed {
		return nil
	}
	if err := s.listener.Unlisten(channel); err != nil && !errors.Is(err, pq.ErrChannelNotOpen) {
		return fmt.Errorf("unlisten %s: %w", channel, err)
	}
	s.logger.Debug("push channel closed", "channel", channel)
	return nil
}

// Run delivers notifications until ctx is done. Callbacks run on this goroutine.
func (s *Subscriber) Run(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	notifications := s.listener.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			if n == nil {
				// pq sends nil after a reconnect.
				s.reconnected()
				continue
			}
			s.deliver(n)
		case <-ticker.C:
			if err := s.listener.Ping(); err != nil {
				s.logger.Warn("listener ping failed", "error", err)
			}
		}
	}
}

// Close stops listening. Registrations are dropped.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.handles = make(map[string]*handle)
	s.channels = make(map[string]int)
	return s.listener.Close()
}

func (s *Subscriber) deliver(n *pq.Notification) {
	parsed, err := ParseNotification(n.Extra)
	if err != nil {
		s.logger.Warn("dropping undecodable notification", "channel", n.Channel, "error", err)
		return
	}

	s.mu.RLock()
	targets := make([]*handle, 0, len(s.handles))
	for _, h := range s.handles {
		if migrations.NotifyChannel(h.table) == n.Channel && parsed.Matches(h.filter) {
			targets = append(targets, h)
		}
	}
	s.mu.RUnlock()

	for _, h := range targets {
		h.callback(parsed.Event)
	}
}

func (s *Subscriber) reconnected() {
	s.logger.Info("listener reconnected; notifications may have been missed")
	if s.onReconnect != nil {
		s.onReconnect()
	}
}

func (s *Subscriber) listenerEvent(event pq.ListenerEventType, err error) {
	switch event {
	case pq.ListenerEventConnected:
		s.logger.Info("listener connected")
	case pq.ListenerEventDisconnected:
		s.logger.Warn("listener disconnected", "error", err)
	case pq.ListenerEventReconnected:
		s.logger.Info("listener reconnected")
	case pq.ListenerEventConnectionAttemptFailed:
		s.logger.Warn("listener connection attempt failed", "error", err)
	}
}
