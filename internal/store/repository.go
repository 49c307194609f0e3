package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/state"
)

// ErrNotFound is returned when a requested item is not found.
var ErrNotFound = errors.New("not found")

// ErrFinalStatus is returned when updating a message that already left pending.
var ErrFinalStatus = errors.New("message status already final")

const (
	// DefaultMessageLimit is used when ListMessages gets a non-positive limit.
	DefaultMessageLimit = 100
	// DefaultHistoryLimit is used when GetTransitionHistory gets a non-positive limit.
	DefaultHistoryLimit = 50
)

// StateRepository defines operations for connection state persistence.
type StateRepository interface {
	GetState(ctx context.Context) (ConnectionState, error)
	SaveState(ctx context.Context, s ConnectionState) error
}

// MessageRepository defines operations for message persistence.
type MessageRepository interface {
	// CreateMessage stores a pending record and returns it with its id.
	CreateMessage(ctx context.Context, phone, message string) (*MessageRecord, error)
	// UpdateMessageStatus moves a pending record to sent or failed.
	UpdateMessageStatus(ctx context.Context, id int64, status MessageStatus, errMsg *string) (*MessageRecord, error)
	GetMessage(ctx context.Context, id int64) (*MessageRecord, error)
	// ListMessages returns newest first, ties broken by descending id.
	ListMessages(ctx context.Context, limit int) ([]MessageRecord, error)
}

// TransitionRepository defines operations for transition history.
type TransitionRepository interface {
	LogTransition(ctx context.Context, from, to state.State, trigger string) error
	GetTransitionHistory(ctx context.Context, limit int) ([]Transition, error)
}

// Store is the full persistence surface used by the service.
type Store interface {
	StateRepository
	MessageRepository
	TransitionRepository
	Close() error
}

func normalizeLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}

func checkFinalStatus(status MessageStatus) error {
	if !status.IsFinal() {
		return fmt.Errorf("invalid target status %q", status)
	}
	return nil
}
