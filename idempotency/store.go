package idempotency

import (
	"context"
	"time"
)

// DefaultTTL is how long a stored response is replayed for.
const DefaultTTL = 60 * time.Second

// Record is the captured response of the first request that carried a token.
type Record struct {
	Token       string
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store keeps records for a fixed retention window. Implementations must be
// safe for concurrent use.
type Store interface {
	// Get returns the live record for token, if any.
	Get(ctx context.Context, token string) (*Record, bool, error)
	// PutIfAbsent stores rec unless a live record already exists for its token.
	// It returns the record that is now authoritative for the token.
	PutIfAbsent(ctx context.Context, rec Record) (*Record, bool, error)
	// Sweep removes expired records and reports how many were removed.
	Sweep(ctx context.Context) (int, error)
}
