// Package credential implements vidtube's token-based authentication:
// issuance, verification, and rotation of the access/refresh token pair.
//
// Access tokens are short-lived HS256 JWTs and are verified statelessly
// (signature + expiry only, no database round trip). Refresh tokens are
// long-lived HS256 JWTs signed with a separate secret, and are honored
// only while they byte-for-byte equal the single value stored on the
// account record. Rotation overwrites that value, which permanently
// invalidates the presented token; logout clears it.
//
// Rotation deliberately uses no transaction or row lock: the store's
// single-column atomic UPDATE is the only coordination, so two valid
// concurrent rotations may both succeed with the last writer winning.
package credential
