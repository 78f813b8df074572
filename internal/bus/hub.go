// Package bus implements the subscription fan-out described in spec §5 "The
// subscription bus is many-producer, many-consumer; subscribers must be
// non-blocking or the bus must offload to a dedicated thread" and spec §2's
// "Subscription bus" component.
//
// Grounded on awstasiuk-market-simulator's exchange/internal/server/hubs.go:
// a map of per-subscriber buffered channels, non-blocking broadcast, and
// eviction of any subscriber whose channel is full (a lagging consumer never
// back-pressures the matching path). Generalized here with a type parameter
// so the dispatcher can run one Hub[Trade] and one Hub[MarketDataDelta]
// instead of hand-duplicating the hub for each event type.
package bus

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Hub is a non-blocking, many-producer/many-consumer broadcaster of events
// of type T.
type Hub[T any] struct {
	mu     sync.RWMutex
	subs   map[int64]chan T
	seq    atomic.Int64
	name   string
	logger *slog.Logger
}

// NewHub constructs an empty hub. name is used only in log lines to tell
// hubs apart (e.g. "trades", "market-data").
func NewHub[T any](name string, logger *slog.Logger) *Hub[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub[T]{subs: make(map[int64]chan T), name: name, logger: logger}
}

// Subscribe registers a new subscriber with a channel buffered to bufSize
// and returns its id (for Unsubscribe) and the receive-only channel.
func (h *Hub[T]) Subscribe(bufSize int) (int64, <-chan T) {
	id := h.seq.Add(1)
	ch := make(chan T, bufSize)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	return id, ch
}

// Unsubscribe removes and closes the subscriber's channel, if present.
func (h *Hub[T]) Unsubscribe(id int64) {
	h.mu.Lock()
	ch, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Broadcast delivers event to every subscriber without blocking. A
// subscriber whose channel is full is evicted and its channel closed — this
// is the "must be non-blocking" contract of spec §5, enforced by dropping
// the slow consumer rather than stalling the matching path.
func (h *Hub[T]) Broadcast(event T) {
	var lagging []int64

	h.mu.RLock()
	for id, ch := range h.subs {
		select {
		case ch <- event:
		default:
			lagging = append(lagging, id)
		}
	}
	h.mu.RUnlock()

	if len(lagging) == 0 {
		return
	}

	h.mu.Lock()
	for _, id := range lagging {
		if ch, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
			h.logger.Warn("bus: disconnected lagging subscriber", slog.String("hub", h.name), slog.Int64("subscriber_id", id))
		}
	}
	h.mu.Unlock()
}

// SubscriberCount reports the current number of live subscribers.
func (h *Hub[T]) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
