// Package bridge coordinates the lifecycle of the WhatsApp client handle.
package bridge

import (
	"time"
)

// EventType represents the type of bridge event.
type EventType int

const (
	EventQRCode EventType = iota
	EventHandleAcquired
	EventAcquireFailed
	EventStatusChange
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventQRCode:
		return "qr_code"
	case EventHandleAcquired:
		return "handle_acquired"
	case EventAcquireFailed:
		return "acquire_failed"
	case EventStatusChange:
		return "status_change"
	default:
		return "unknown"
	}
}

// Event represents a bridge event. Generation identifies the Start call
// that produced it; events from older generations are discarded.
type Event struct {
	Type       EventType
	Generation uint64
	Payload    interface{}
	Timestamp  time.Time
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(t EventType, generation uint64, payload interface{}) Event {
	return Event{
		Type:       t,
		Generation: generation,
		Payload:    payload,
		Timestamp:  time.Now(),
	}
}

// QRCodePayload contains data for QR code events.
type QRCodePayload struct {
	Image string
}

// HandlePayload carries a freshly acquired handle.
type HandlePayload struct {
	Handle Handle
}

// AcquireFailedPayload carries the acquisition error.
type AcquireFailedPayload struct {
	Err error
}

// StatusPayload contains data for status change events.
type StatusPayload struct {
	Status Status
}
