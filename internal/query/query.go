// Package query is the read-only view over connection state and history.
package query

import (
	"context"
	"fmt"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/store"
)

// Surface answers read queries without side effects.
type Surface struct {
	store store.Store
}

func NewSurface(st store.Store) *Surface {
	return &Surface{store: st}
}

// GetState returns a snapshot of the connection state. The QR image is
// omitted while the session is ready.
func (s *Surface) GetState(ctx context.Context) (store.ConnectionState, error) {
	cs, err := s.store.GetState(ctx)
	if err != nil {
		return store.ConnectionState{}, fmt.Errorf("failed to get state: %w", err)
	}
	cs.QRImage = cs.PairingQR()
	return cs, nil
}

// GetMessages returns at most limit records, newest first. A non-positive
// limit means store.DefaultMessageLimit.
func (s *Surface) GetMessages(ctx context.Context, limit int) ([]store.MessageRecord, error) {
	if limit <= 0 {
		limit = store.DefaultMessageLimit
	}
	msgs, err := s.store.ListMessages(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if msgs == nil {
		msgs = []store.MessageRecord{}
	}
	return msgs, nil
}

// GetTransitions returns recent state machine transitions, newest first.
func (s *Surface) GetTransitions(ctx context.Context, limit int) ([]store.Transition, error) {
	if limit <= 0 {
		limit = store.DefaultHistoryLimit
	}
	ts, err := s.store.GetTransitionHistory(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transition history: %w", err)
	}
	if ts == nil {
		ts = []store.Transition{}
	}
	return ts, nil
}
