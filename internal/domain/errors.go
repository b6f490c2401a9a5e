package domain

import "errors"

var (
	// ErrConflict means a creation collided with an existing identity
	// (duplicate email).
	ErrConflict = errors.New("identity already exists")

	// ErrUnauthorized covers bad credentials, invalid/expired/revoked tokens
	// and malformed authorization input. Callers get the same error for every
	// sub-cause so failures don't leak which check tripped.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrProviderVerification means a third-party proof did not verify.
	// The HTTP boundary collapses it into a 401.
	ErrProviderVerification = errors.New("provider verification failed")

	// ErrInternal marks storage or hashing failures not attributable to
	// caller input.
	ErrInternal = errors.New("internal error")
)
