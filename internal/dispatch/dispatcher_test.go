package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/bridge"
	"github.com/ihiteshgupta/whatsapp-dashboard/internal/bridge/bridgetest"
	"github.com/ihiteshgupta/whatsapp-dashboard/internal/store"
)

type staticSource struct {
	h bridge.Handle
}

func (s staticSource) CurrentHandle() bridge.Handle {
	return s.h
}

func setupDispatcher(t *testing.T, ready bool) (*Dispatcher, *store.MemoryStore, *bridgetest.FakeHandle) {
	t.Helper()

	st := store.NewMemoryStore("session")
	t.Cleanup(func() { st.Close() })

	cs := store.NewConnectionState("session")
	if ready {
		cs = cs.Connected(time.Now(), "Test (+10000000000)")
	}
	require.NoError(t, st.SaveState(context.Background(), cs))

	h := bridgetest.NewFakeHandle("Test (+10000000000)")
	return NewDispatcher(st, staticSource{h: h}), st, h
}

func listAll(t *testing.T, st store.Store) []store.MessageRecord {
	t.Helper()
	msgs, err := st.ListMessages(context.Background(), 0)
	require.NoError(t, err)
	return msgs
}

func TestSend_NotReady(t *testing.T) {
	d, st, h := setupDispatcher(t, false)

	_, err := d.Send(context.Background(), "+14155552671", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, "WhatsApp client not ready", err.Error())

	assert.Empty(t, listAll(t, st))
	assert.Empty(t, h.Sent())
}

func TestSend_NoHandle(t *testing.T) {
	st := store.NewMemoryStore("session")
	require.NoError(t, st.SaveState(context.Background(),
		store.NewConnectionState("session").Connected(time.Now(), "dev")))
	d := NewDispatcher(st, staticSource{})

	_, err := d.Send(context.Background(), "+14155552671", "hi")
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Empty(t, listAll(t, st))
}

func TestSend_InvalidRequest(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		message string
		field   string
	}{
		{"phone too short", "1234567", "hi", "phone"},
		{"phone too long", strings.Repeat("1", 21), "hi", "phone"},
		{"empty message", "+14155552671", "", "message"},
		{"message too long", "+14155552671", strings.Repeat("a", 4097), "message"},
		{"phone without digits", "+()-- ----", "hi", "phone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, st, h := setupDispatcher(t, true)

			_, err := d.Send(context.Background(), tt.phone, tt.message)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)

			var derr *Error
			require.True(t, errors.As(err, &derr))
			assert.Equal(t, KindInvalidRequest, derr.Kind)
			assert.Contains(t, derr.Fields, tt.field)

			assert.Empty(t, listAll(t, st))
			assert.Empty(t, h.Sent())
		})
	}
}

func TestSend_BoundaryLengthsAccepted(t *testing.T) {
	d, _, h := setupDispatcher(t, true)

	_, err := d.Send(context.Background(), "12345678", "a")
	require.NoError(t, err)
	_, err = d.Send(context.Background(), strings.Repeat("9", 20), strings.Repeat("b", 4096))
	require.NoError(t, err)

	assert.Len(t, h.Sent(), 2)
}

func TestSend_Success(t *testing.T) {
	d, st, h := setupDispatcher(t, true)

	var sent []*store.MessageRecord
	d.WithHooks(Hooks{
		OnSent: func(ctx context.Context, rec *store.MessageRecord) { sent = append(sent, rec) },
	})

	res, err := d.Send(context.Background(), "+1 415 555 2671", "Hello")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.ID)

	require.Len(t, h.Sent(), 1)
	assert.Equal(t, "14155552671@s.whatsapp.net", h.Sent()[0].Address)
	assert.Equal(t, "Hello", h.Sent()[0].Body)

	msgs := listAll(t, st)
	require.Len(t, msgs, 1)
	assert.Equal(t, store.StatusSent, msgs[0].Status)
	assert.Equal(t, "+1 415 555 2671", msgs[0].Phone)
	assert.Nil(t, msgs[0].Error)

	require.Len(t, sent, 1)
	assert.Equal(t, res.ID, sent[0].ID)
}

func TestSend_DeliveryFailure(t *testing.T) {
	d, st, h := setupDispatcher(t, true)
	h.SetSendError(errors.New("timeout"))

	var failed []*store.MessageRecord
	d.WithHooks(Hooks{
		OnFailed: func(ctx context.Context, rec *store.MessageRecord) { failed = append(failed, rec) },
	})

	res, err := d.Send(context.Background(), "+14155552671", "Hello")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrSendFailed)

	var derr *Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, "timeout", derr.Detail)

	msgs := listAll(t, st)
	require.Len(t, msgs, 1)
	assert.Equal(t, store.StatusFailed, msgs[0].Status)
	require.NotNil(t, msgs[0].Error)
	assert.Equal(t, derr.Detail, *msgs[0].Error)
	assert.Equal(t, msgs[0].ID, derr.ID)

	assert.Len(t, failed, 1)
}

func TestSend_IDsMonotonic(t *testing.T) {
	d, st, h := setupDispatcher(t, true)

	first, err := d.Send(context.Background(), "+14155552671", "one")
	require.NoError(t, err)

	h.SetSendError(errors.New("boom"))
	_, err = d.Send(context.Background(), "+14155552671", "two")
	require.Error(t, err)

	h.SetSendError(nil)
	third, err := d.Send(context.Background(), "+14155552671", "three")
	require.NoError(t, err)

	assert.Equal(t, first.ID+2, third.ID)
	assert.Len(t, listAll(t, st), 3)
}

func TestSend_CancelledContextStillRecorded(t *testing.T) {
	d, st, h := setupDispatcher(t, true)
	h.SetSendError(context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Send(ctx, "+14155552671", "Hello")
	assert.ErrorIs(t, err, ErrSendFailed)

	msgs := listAll(t, st)
	require.Len(t, msgs, 1)
	assert.Equal(t, store.StatusFailed, msgs[0].Status)
}

func TestError_Messages(t *testing.T) {
	err := invalidRequest(map[string]string{"phone": "must be at least 8 characters", "message": "x"})
	assert.Equal(t, "invalid request data: message: x, phone: must be at least 8 characters", err.Error())
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.NotErrorIs(t, err, ErrNotReady)

	cause := errors.New("disk full")
	ierr := internal(cause)
	assert.ErrorIs(t, ierr, ErrInternal)
	assert.ErrorIs(t, ierr, cause)
}
