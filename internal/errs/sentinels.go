// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service/transport layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated indicates a missing or malformed caller identity.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden indicates an authenticated caller without rights on the target.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation indicates a malformed input payload.
	ErrValidation = errors.New("validation failed")

	// ErrStorage indicates the backing store failed or is unavailable.
	ErrStorage = errors.New("storage failure")

	// ErrRateLimited indicates the client is temporarily blocked.
	ErrRateLimited = errors.New("rate limited")
)
