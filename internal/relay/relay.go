// Package relay mirrors hub events across server instances over Redis pub/sub.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/broadcast"
)

const (
	outboxSize     = 256
	publishTimeout = 2 * time.Second
)

type envelope struct {
	Origin  string              `json:"origin"`
	Type    broadcast.EventType `json:"type"`
	Payload json.RawMessage     `json:"payload,omitempty"`
}

// Relay delivers every event to the local hub immediately and forwards it to
// the other instances through a Redis channel. Events received from other
// instances are republished on the local hub.
type Relay struct {
	rdb     redis.UniversalClient
	channel string
	hub     *broadcast.Hub
	id      string
	outbox  chan []byte
	ready   chan struct{}
	log     zerolog.Logger
}

// New creates a relay bound to hub. Call Run to start forwarding.
func New(rdb redis.UniversalClient, channel string, hub *broadcast.Hub, log zerolog.Logger) *Relay {
	id := uuid.NewString()
	return &Relay{
		rdb:     rdb,
		channel: channel,
		hub:     hub,
		id:      id,
		outbox:  make(chan []byte, outboxSize),
		ready:   make(chan struct{}),
		log:     log.With().Str("component", "relay").Str("instance", id).Logger(),
	}
}

// Ready is closed once the Redis subscription is established.
func (r *Relay) Ready() <-chan struct{} {
	return r.ready
}

// Publish never blocks: if the outbox is full the event still reaches local
// subscribers but is not forwarded.
func (r *Relay) Publish(t broadcast.EventType, payload any) {
	r.hub.Publish(t, payload)

	raw, err := json.Marshal(payload)
	if err != nil {
		r.log.Error().Err(err).Str("type", string(t)).Msg("failed to encode event payload")
		return
	}
	data, err := json.Marshal(envelope{Origin: r.id, Type: t, Payload: raw})
	if err != nil {
		r.log.Error().Err(err).Str("type", string(t)).Msg("failed to encode event")
		return
	}

	select {
	case r.outbox <- data:
	default:
		r.log.Warn().Str("type", string(t)).Msg("relay outbox full, event not forwarded")
	}
}

// Run subscribes to the channel and forwards events until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ps := r.rdb.Subscribe(ctx, r.channel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	close(r.ready)
	r.log.Info().Str("channel", r.channel).Msg("relay subscribed")

	go r.forward(ctx)

	messages := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("relay stopped")
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.receive(msg.Payload)
		}
	}
}

func (r *Relay) receive(data string) {
	var env envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		r.log.Warn().Err(err).Msg("dropping malformed relay message")
		return
	}
	if env.Origin == r.id {
		return
	}
	var payload any
	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		payload = env.Payload
	}
	r.hub.Publish(env.Type, payload)
}

func (r *Relay) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-r.outbox:
			pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
			if err := r.rdb.Publish(pubCtx, r.channel, data).Err(); err != nil {
				r.log.Warn().Err(err).Msg("failed to forward event")
			}
			cancel()
		}
	}
}
