package repository

import "context"

// HealthRepository probes the backing store.
type HealthRepository interface {
	// Ping returns nil when the store answers.
	Ping(ctx context.Context) error
}
