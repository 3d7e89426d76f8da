package shared

import (
	"context"
	"time"
)

// IdempotencyStore tracks keys that have already been processed so that
// replayed operations (duplicate document imports, retried webhooks) are
// detected and skipped.
type IdempotencyStore interface {
	// MarkProcessed atomically marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it already existed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether a key has already been processed.
	IsProcessed(ctx context.Context, key string) (bool, error)
}
