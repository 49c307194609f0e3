package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/bridge"
)

// ErrNotConnected is returned by SendText while the socket is down.
var ErrNotConnected = errors.New("not connected to WhatsApp")

// handle wraps one whatsmeow client as a bridge.Handle.
type handle struct {
	client *whatsmeow.Client
	log    *slog.Logger

	mu       sync.Mutex
	listener func(bridge.Status)
	// last status seen before a listener was registered
	pending *bridge.Status

	connected     chan struct{}
	connectedOnce sync.Once
	failed        chan error
}

func newHandle(client *whatsmeow.Client, log *slog.Logger) *handle {
	return &handle{
		client:    client,
		log:       log,
		connected: make(chan struct{}),
		failed:    make(chan error, 1),
	}
}

// handleEvent processes events from whatsmeow.
func (h *handle) handleEvent(evt interface{}) {
	h.log.Debug("WhatsApp event", "type", fmt.Sprintf("%T", evt))

	status, ok := statusFor(evt)
	if !ok {
		return
	}

	if status == bridge.StatusConnected {
		h.connectedOnce.Do(func() { close(h.connected) })
	} else if status.IsDisconnect() {
		select {
		case h.failed <- fmt.Errorf("whatsapp refused session: %s", status):
		default:
		}
	}

	h.mu.Lock()
	fn := h.listener
	if fn == nil {
		h.pending = &status
	}
	h.mu.Unlock()
	if fn != nil {
		fn(status)
	}
}

// statusFor maps whatsmeow connection events to bridge statuses.
func statusFor(evt interface{}) (bridge.Status, bool) {
	switch evt.(type) {
	case *events.Connected:
		return bridge.StatusConnected, true
	case *events.Disconnected:
		return bridge.StatusDisconnected, true
	case *events.StreamReplaced:
		return bridge.StatusConflict, true
	case *events.LoggedOut:
		return bridge.StatusUnpaired, true
	case *events.ClientOutdated, *events.TemporaryBan, *events.ConnectFailure:
		return bridge.StatusUnlaunched, true
	default:
		return "", false
	}
}

// waitConnected blocks until the socket is authenticated.
func (h *handle) waitConnected(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.connected:
		return nil
	case err := <-h.failed:
		return err
	case <-timer.C:
		return fmt.Errorf("timed out after %s waiting for connection", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnStateChange registers fn and replays the last status that arrived
// between connecting and registration, so a logout in that window is not lost.
func (h *handle) OnStateChange(fn func(bridge.Status)) {
	h.mu.Lock()
	if h.listener != nil {
		h.log.Warn("state listener already registered, replacing")
	}
	h.listener = fn
	pending := h.pending
	h.pending = nil
	h.mu.Unlock()

	if pending != nil {
		// The caller may hold locks that fn needs.
		go fn(*pending)
	}
}

func (h *handle) SendText(ctx context.Context, address, body string) error {
	if !h.client.IsConnected() {
		return ErrNotConnected
	}

	recipient, err := ParseRecipient(address)
	if err != nil {
		return err
	}

	resp, err := h.client.SendMessage(ctx, recipient, &waE2E.Message{
		Conversation: proto.String(body),
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	h.log.Debug("message sent", "id", resp.ID, "to", recipient.String())
	return nil
}

func (h *handle) DeviceInfo() string {
	store := h.client.Store
	if store == nil || store.ID == nil {
		return describeDevice("", "")
	}
	return describeDevice(store.PushName, store.ID.User)
}

func describeDevice(pushName, user string) string {
	switch {
	case pushName != "" && user != "":
		return fmt.Sprintf("%s (+%s)", pushName, user)
	case user != "":
		return "+" + user
	default:
		return "Connected device"
	}
}

func (h *handle) Close() error {
	h.client.Disconnect()
	return nil
}

var _ bridge.Handle = (*handle)(nil)
