// Package broadcast fans ledger events out to live subscribers.
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/metrics"
)

// Prune reasons.
const (
	reasonBufferFull       = "buffer_full"
	reasonMissedHeartbeats = "missed_heartbeats"
	reasonUnsubscribed     = "unsubscribed"
)

// Options tune a Hub. Zero values fall back to defaults.
type Options struct {
	BufferSize        int
	MaxMissed         int
	HeartbeatInterval time.Duration
	Now               func() time.Time
}

func (o *Options) setDefaults() {
	if o.BufferSize <= 0 {
		o.BufferSize = 64
	}
	if o.MaxMissed <= 0 {
		o.MaxMissed = 3
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Subscription is one registered reader. Events is closed when the
// subscriber is removed for any reason.
type Subscription struct {
	ID string

	hub    *Hub
	events chan Event

	// guarded by hub.mu
	outstanding   int
	lastHeartbeat time.Time
	removed       bool
}

// Events returns the subscriber's FIFO event stream.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Ack marks the subscriber as alive. Call it after each event has been
// written to the client.
func (s *Subscription) Ack() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.outstanding = 0
	s.lastHeartbeat = s.hub.opts.Now()
}

// LastHeartbeat returns the time of the most recent Ack.
func (s *Subscription) LastHeartbeat() time.Time {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.lastHeartbeat
}

// Close unsubscribes s.
func (s *Subscription) Close() {
	s.hub.Unsubscribe(s)
}

// Hub is a concurrency-safe subscriber registry. A single mutex orders
// publishes, so each subscriber sees events in publish order.
type Hub struct {
	mu   sync.Mutex
	subs map[string]*Subscription
	opts Options
	log  zerolog.Logger
}

// New creates an empty hub.
func New(opts Options, log zerolog.Logger) *Hub {
	opts.setDefaults()
	return &Hub{
		subs: make(map[string]*Subscription),
		opts: opts,
		log:  log.With().Str("component", "broadcast").Logger(),
	}
}

// Subscribe registers a subscriber and queues its connected event.
// Events published earlier are never replayed.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.opts.Now()
	s := &Subscription{
		ID:            uuid.NewString(),
		hub:           h,
		events:        make(chan Event, h.opts.BufferSize),
		lastHeartbeat: now,
	}
	s.events <- Event{Type: Connected, Payload: map[string]string{"id": s.ID}, Timestamp: now}
	h.subs[s.ID] = s

	metrics.BroadcastSubscribers.Set(float64(len(h.subs)))
	h.log.Debug().Str("subscriber", s.ID).Int("subscribers", len(h.subs)).Msg("subscriber joined")
	return s
}

// Unsubscribe removes s. It is safe to call more than once.
func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s, reasonUnsubscribed)
}

// Publish queues an event for every live subscriber without blocking.
// Subscribers that missed too many heartbeats are pruned first. A full
// buffer removes only that subscriber.
func (h *Hub) Publish(t EventType, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.pruneStaleLocked()
	ev := Event{Type: t, Payload: payload, Timestamp: h.opts.Now()}
	for _, s := range h.subs {
		h.deliverLocked(s, ev)
	}
	metrics.BroadcastEvents.WithLabelValues(string(t)).Inc()
}

// Heartbeat sends a liveness event to every subscriber and counts it as
// outstanding until the subscriber acks.
func (h *Hub) Heartbeat() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.pruneStaleLocked()
	ev := Event{Type: Heartbeat, Timestamp: h.opts.Now()}
	for _, s := range h.subs {
		if h.deliverLocked(s, ev) {
			s.outstanding++
		}
	}
}

// Run sends heartbeats on the configured interval until ctx is done, then
// removes every subscriber.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.opts.HeartbeatInterval)
	defer ticker.Stop()

	h.log.Info().Dur("interval", h.opts.HeartbeatInterval).Msg("heartbeat loop started")
	for {
		select {
		case <-ticker.C:
			h.Heartbeat()
		case <-ctx.Done():
			h.closeAll()
			h.log.Info().Msg("heartbeat loop stopped")
			return
		}
	}
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.subs {
		h.removeLocked(s, reasonUnsubscribed)
	}
}

func (h *Hub) pruneStaleLocked() {
	for _, s := range h.subs {
		if s.outstanding >= h.opts.MaxMissed {
			h.removeLocked(s, reasonMissedHeartbeats)
		}
	}
}

func (h *Hub) deliverLocked(s *Subscription, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	default:
		h.removeLocked(s, reasonBufferFull)
		return false
	}
}

func (h *Hub) removeLocked(s *Subscription, reason string) {
	if s.removed {
		return
	}
	s.removed = true
	delete(h.subs, s.ID)
	close(s.events)

	metrics.BroadcastSubscribers.Set(float64(len(h.subs)))
	if reason != reasonUnsubscribed {
		metrics.BroadcastPruned.WithLabelValues(reason).Inc()
		h.log.Info().Str("subscriber", s.ID).Str("reason", reason).Msg("subscriber pruned")
	}
}
