package whatsapp

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/bridge"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		evt  interface{}
		want bridge.Status
		ok   bool
	}{
		{"connected", &events.Connected{}, bridge.StatusConnected, true},
		{"disconnected", &events.Disconnected{}, bridge.StatusDisconnected, true},
		{"stream replaced", &events.StreamReplaced{}, bridge.StatusConflict, true},
		{"logged out", &events.LoggedOut{}, bridge.StatusUnpaired, true},
		{"client outdated", &events.ClientOutdated{}, bridge.StatusUnlaunched, true},
		{"temporary ban", &events.TemporaryBan{}, bridge.StatusUnlaunched, true},
		{"connect failure", &events.ConnectFailure{}, bridge.StatusUnlaunched, true},
		{"unrelated", &events.Message{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := statusFor(tt.evt)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescribeDevice(t *testing.T) {
	assert.Equal(t, "Alice (+14155552671)", describeDevice("Alice", "14155552671"))
	assert.Equal(t, "+14155552671", describeDevice("", "14155552671"))
	assert.Equal(t, "Connected device", describeDevice("", ""))
}

func newTestHandle() *handle {
	return newHandle(nil, slog.Default())
}

func TestHandle_ForwardsStatus(t *testing.T) {
	h := newTestHandle()

	var got []bridge.Status
	h.OnStateChange(func(s bridge.Status) { got = append(got, s) })

	h.handleEvent(&events.Connected{})
	h.handleEvent(&events.Message{})
	h.handleEvent(&events.LoggedOut{})

	assert.Equal(t, []bridge.Status{bridge.StatusConnected, bridge.StatusUnpaired}, got)
}

func TestHandle_ReplaysStatusBeforeListener(t *testing.T) {
	h := newTestHandle()

	h.handleEvent(&events.Connected{})
	h.handleEvent(&events.LoggedOut{})

	got := make(chan bridge.Status, 4)
	h.OnStateChange(func(s bridge.Status) { got <- s })

	select {
	case s := <-got:
		assert.Equal(t, bridge.StatusUnpaired, s)
	case <-time.After(time.Second):
		t.Fatal("status received before registration was not replayed")
	}

	h.handleEvent(&events.Connected{})
	assert.Equal(t, bridge.StatusConnected, <-got)
	assert.Empty(t, got)
}

func TestHandle_NoReplayWithoutStatus(t *testing.T) {
	h := newTestHandle()

	got := make(chan bridge.Status, 1)
	h.OnStateChange(func(s bridge.Status) { got <- s })

	select {
	case s := <-got:
		t.Fatalf("unexpected status %s", s)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHandle_WaitConnected(t *testing.T) {
	h := newTestHandle()

	go h.handleEvent(&events.Connected{})
	require.NoError(t, h.waitConnected(context.Background(), time.Second))

	// A second Connected after a reconnect does not panic
	h.handleEvent(&events.Connected{})
}

func TestHandle_WaitConnected_Refused(t *testing.T) {
	h := newTestHandle()

	h.handleEvent(&events.ConnectFailure{})
	err := h.waitConnected(context.Background(), time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNLAUNCHED")
}

func TestHandle_WaitConnected_Timeout(t *testing.T) {
	h := newTestHandle()
	err := h.waitConnected(context.Background(), 10*time.Millisecond)
	assert.ErrorContains(t, err, "timed out")
}

func TestHandle_WaitConnected_Cancelled(t *testing.T) {
	h := newTestHandle()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.waitConnected(ctx, time.Second), context.Canceled)
}
