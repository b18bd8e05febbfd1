package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers request keys so a retried request is not executed twice.
// The ledger's own structural guard protects stock postings; this store only
// short-circuits duplicate client requests before they reach a transaction.
type IdempotencyStore interface {
	// Claim records key with a TTL.
	// Returns true if the key was newly claimed, false if it was already present.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release forgets key so the request can be retried after a failure.
	Release(ctx context.Context, key string) error

	// IsClaimed reports whether key is currently held.
	IsClaimed(ctx context.Context, key string) (bool, error)

	// Close releases resources held by the store.
	Close() error
}
