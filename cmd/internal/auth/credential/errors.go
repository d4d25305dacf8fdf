package credential

import "errors"

var (
	// ErrInvalidCredentials is returned when the password does not match
	// the stored hash.
	ErrInvalidCredentials = errors.New("invalid user credentials")

	// ErrInvalidToken is the uniform failure for a missing, malformed,
	// wrongly-signed, or expired token. Verification failures are
	// deliberately collapsed into this one signal so callers cannot
	// probe which check failed.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpiredOrUsed is returned when a structurally valid refresh
	// token no longer matches the stored value: it was rotated away,
	// revoked by logout, or replayed after use.
	ErrTokenExpiredOrUsed = errors.New("refresh token is expired or used")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
