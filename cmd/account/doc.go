// Package account implements vidtube's user account foundation.
//
// It contains the canonical User model, password hashing (argon2id),
// ULID identifiers, normalization rules, and the persistence boundary
// used by the credential and HTTP layers.
//
// The refresh-token column on the users table is the single piece of
// server-side session state: an account holds zero or one live refresh
// token at any time.
package account
