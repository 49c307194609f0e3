package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/state"
)

// MemoryStore keeps everything in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu sync.RWMutex

	conn     ConnectionState
	messages map[int64]MessageRecord
	nextID   int64

	transitions []Transition
	nextTransID int64

	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store for the given session.
func NewMemoryStore(sessionID string) *MemoryStore {
	return &MemoryStore{
		conn:        NewConnectionState(sessionID),
		messages:    make(map[int64]MessageRecord),
		nextID:      1,
		nextTransID: 1,
		now:         time.Now,
	}
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) GetState(ctx context.Context) (ConnectionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyState(s.conn), nil
}

func (s *MemoryStore) SaveState(ctx context.Context, cs ConnectionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = copyState(cs)
	return nil
}

func (s *MemoryStore) CreateMessage(ctx context.Context, phone, message string) (*MessageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := MessageRecord{
		ID:        s.nextID,
		Phone:     phone,
		Message:   message,
		Status:    StatusPending,
		CreatedAt: s.now(),
	}
	s.nextID++
	s.messages[rec.ID] = rec
	return &rec, nil
}

func (s *MemoryStore) UpdateMessageStatus(ctx context.Context, id int64, status MessageStatus, errMsg *string) (*MessageRecord, error) {
	if err := checkFinalStatus(status); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.Status.IsFinal() {
		return nil, ErrFinalStatus
	}

	rec.Status = status
	rec.Error = nil
	if status == StatusFailed && errMsg != nil {
		e := *errMsg
		rec.Error = &e
	}
	s.messages[id] = rec
	return &rec, nil
}

func (s *MemoryStore) GetMessage(ctx context.Context, id int64) (*MessageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, limit int) ([]MessageRecord, error) {
	limit = normalizeLimit(limit, DefaultMessageLimit)

	s.mu.RLock()
	out := make([]MessageRecord, 0, len(s.messages))
	for _, rec := range s.messages {
		out = append(out, rec)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) LogTransition(ctx context.Context, from, to state.State, trigger string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transitions = append(s.transitions, Transition{
		ID:        s.nextTransID,
		FromState: from,
		ToState:   to,
		Trigger:   trigger,
		Timestamp: s.now(),
	})
	s.nextTransID++
	return nil
}

func (s *MemoryStore) GetTransitionHistory(ctx context.Context, limit int) ([]Transition, error) {
	limit = normalizeLimit(limit, DefaultHistoryLimit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.transitions)
	if n > limit {
		n = limit
	}
	out := make([]Transition, 0, n)
	for i := len(s.transitions) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.transitions[i])
	}
	return out, nil
}

func copyState(cs ConnectionState) ConnectionState {
	out := ConnectionState{Ready: cs.Ready, SessionID: cs.SessionID}
	if cs.QRImage != nil {
		v := *cs.QRImage
		out.QRImage = &v
	}
	if cs.ConnectedAt != nil {
		v := *cs.ConnectedAt
		out.ConnectedAt = &v
	}
	if cs.DeviceInfo != nil {
		v := *cs.DeviceInfo
		out.DeviceInfo = &v
	}
	return out
}
