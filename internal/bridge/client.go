package bridge

import (
	"context"
)

// Status is a session status reported by a live handle.
type Status string

const (
	StatusConnected    Status = "CONNECTED"
	StatusDisconnected Status = "DISCONNECTED"
	StatusConflict     Status = "CONFLICT"
	StatusUnpaired     Status = "UNPAIRED"
	StatusUnlaunched   Status = "UNLAUNCHED"
)

// IsDisconnect reports whether the status means the session is no longer usable.
// A plain DISCONNECTED is a transient network drop and does not count.
func (s Status) IsDisconnect() bool {
	switch s {
	case StatusConflict, StatusUnpaired, StatusUnlaunched:
		return true
	default:
		return false
	}
}

// Hooks are invoked by a Launcher while an acquisition is in progress.
// Implementations must not block inside a hook.
type Hooks struct {
	OnQR func(image string)
}

// Launcher starts the external WhatsApp client.
// This allows for easy mocking in tests.
type Launcher interface {
	// Acquire blocks until a paired, usable handle exists or acquisition fails.
	// OnQR is called for every pairing QR issued meanwhile.
	Acquire(ctx context.Context, hooks Hooks) (Handle, error)
}

// Handle is a live, paired client session.
type Handle interface {
	Close() error
	// SendText delivers body to a transport-formatted address such as 14155552671@s.whatsapp.net.
	SendText(ctx context.Context, address, body string) error
	DeviceInfo() string
	// OnStateChange registers the status listener. It is called once per handle.
	OnStateChange(fn func(Status))
}
