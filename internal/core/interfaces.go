package core

import (
	"context"
	"time"

	"noteria/internal/types"
)

// Authenticator decouples the HTTP layer from the session store so tests can
// resolve tokens without a database.
type Authenticator interface {
	// ResolveToken returns the Actor owning token. It fails with
	// auth_token_invalid for unknown tokens and auth_session_expired for
	// sessions past their expiry.
	ResolveToken(ctx context.Context, token string) (*types.Actor, error)
}

// RateLimitStore abstracts the backing store for per-user rate limiting.
type RateLimitStore interface {
	// IncrementAndCheck consumes one request from key's allowance of limit
	// requests per window and reports whether the request may proceed.
	IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error)
}

// RateLimitResult contains the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	// ResetAt is when the next request would be admitted.
	ResetAt time.Time
}
