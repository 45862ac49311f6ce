// Package limiter blocks clients that repeatedly fail authentication.
package limiter

import (
	"context"
	"crypto/sha256"
	"time"
)

// Limiter tracks failed authentication attempts per client and places temporary lockouts.
type Limiter interface {
	// Allow reports whether the client may attempt authentication and, if not, for how long it is blocked.
	Allow(ctx context.Context, clientHash []byte) (bool, time.Duration, error)
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, clientHash []byte) (bool, time.Duration, error)
}

// Settings configures the sliding window and lockout.
type Settings struct {
	Window   time.Duration
	MaxFails int
	BlockFor time.Duration
}

// Enabled reports whether lockouts are configured.
func (s Settings) Enabled() bool { return s.MaxFails > 0 }

// HashIP returns a stable hash for an IP string to avoid storing raw addresses.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}

// Nop never blocks.
type Nop struct{}

func (Nop) Allow(context.Context, []byte) (bool, time.Duration, error)   { return true, 0, nil }
func (Nop) Failure(context.Context, []byte) (bool, time.Duration, error) { return false, 0, nil }
