// Package ratelimit counts submissions per client identifier inside a fixed
// window. A window that straddles a reset boundary tolerates up to twice the
// limit; that is the accepted contract of a fixed-window counter, not a bug.
package ratelimit

import (
	"context"
	"time"
)

// Rule is one form kind's quota.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Limiter decides whether a request from id may proceed. Allow both decides
// and records: every call counts as an attempt, there is no side-effect-free
// probe. Implementations must be safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, id string) (bool, error)
}

// Default quotas matching the public forms.
var (
	ContactRule = Rule{Limit: 5, Window: 15 * time.Minute}
	QuoteRule   = Rule{Limit: 3, Window: 30 * time.Minute}
)
