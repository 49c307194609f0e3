// Package cache records delivered messages in a short-lived external cache.
package cache

import (
	"context"
	"time"
)

// MessageCache records a delivered message for short-lived lookups.
type MessageCache interface {
	StoreSent(ctx context.Context, id int64, phone string, sentAt time.Time) error
}
