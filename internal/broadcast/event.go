package broadcast

import "time"

// EventType names a hub event.
type EventType string

const (
	TableUpdate   EventType = "table:update"
	SessionStart  EventType = "session:start"
	SessionPause  EventType = "session:pause"
	SessionResume EventType = "session:resume"
	SessionStop   EventType = "session:stop"
	Connected     EventType = "connected"
	Heartbeat     EventType = "heartbeat"
)

// Event is delivered verbatim to subscribers.
type Event struct {
	Type      EventType `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
