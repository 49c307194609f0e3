// Package store provides data persistence for the WhatsApp dashboard.
package store

import (
	"time"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/state"
)

// MessageStatus is the delivery status of an outbound message.
type MessageStatus string

const (
	StatusPending MessageStatus = "pending"
	StatusSent    MessageStatus = "sent"
	StatusFailed  MessageStatus = "failed"
)

// IsFinal reports whether no further status change is allowed.
func (s MessageStatus) IsFinal() bool {
	return s == StatusSent || s == StatusFailed
}

// MessageRecord is one outbound send attempt.
type MessageRecord struct {
	ID        int64         `json:"id"`
	Phone     string        `json:"phone"`
	Message   string        `json:"message"`
	Status    MessageStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	Error     *string       `json:"error,omitempty"`
}

// ConnectionState is the singleton pairing/session snapshot.
//
// Ready implies ConnectedAt is set. When not ready, ConnectedAt and
// DeviceInfo are nil. QRImage may hold a stale value after a disconnect
// until the next QR is issued.
type ConnectionState struct {
	Ready       bool       `json:"isReady"`
	QRImage     *string    `json:"qrCode,omitempty"`
	ConnectedAt *time.Time `json:"connectedAt,omitempty"`
	DeviceInfo  *string    `json:"deviceInfo,omitempty"`
	SessionID   string     `json:"sessionId"`
}

// NewConnectionState returns the initial not-ready state for a session.
func NewConnectionState(sessionID string) ConnectionState {
	return ConnectionState{SessionID: sessionID}
}

// WithQR returns a copy holding a freshly issued QR image, not ready.
func (s ConnectionState) WithQR(qr string) ConnectionState {
	s.Ready = false
	s.QRImage = &qr
	s.ConnectedAt = nil
	s.DeviceInfo = nil
	return s
}

// Connected returns a copy marked ready at the given time.
func (s ConnectionState) Connected(at time.Time, deviceInfo string) ConnectionState {
	s.Ready = true
	s.ConnectedAt = &at
	s.DeviceInfo = &deviceInfo
	return s
}

// PairingQR returns the QR image to show an operator, or nil while ready.
// The stored image outlives the ready state so a stale code can be shown
// again after a disconnect.
func (s ConnectionState) PairingQR() *string {
	if s.Ready {
		return nil
	}
	return s.QRImage
}

// Disconnected returns a copy marked not ready. The QR image is kept.
func (s ConnectionState) Disconnected() ConnectionState {
	s.Ready = false
	s.ConnectedAt = nil
	s.DeviceInfo = nil
	return s
}

// Transition represents a state machine transition record.
type Transition struct {
	ID        int64       `json:"id"`
	FromState state.State `json:"from_state"`
	ToState   state.State `json:"to_state"`
	Trigger   string      `json:"trigger"`
	Timestamp time.Time   `json:"timestamp"`
}
