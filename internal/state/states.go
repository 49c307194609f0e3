// Package state provides the finite state machine for the WhatsApp pairing lifecycle.
package state

// State represents a connection state in the pairing lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateStarting     State = "starting"
	StateQRPending    State = "qr_pending"
	StateReady        State = "ready"
	StateShuttingDown State = "shutting_down"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsPairing returns true while a handle acquisition is in progress.
func (s State) IsPairing() bool {
	switch s {
	case StateStarting, StateQRPending:
		return true
	default:
		return false
	}
}

// IsOperational returns true if messages may be sent.
func (s State) IsOperational() bool {
	return s == StateReady
}
