package account

import (
	"errors"

	"vidtube/cmd/security/password"
)

// HashPassword returns a PHC-style argon2id hash string.
//
// The account baseline is a minimum of 8 characters; a stricter policy
// configured via env (security/password) always wins.
func HashPassword(plain string) (string, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		// Invalid env is an operational error, not a weak fallback.
		return "", err
	}
	if cfg.Policy.MinLength < 8 {
		cfg.Policy.MinLength = 8
	}

	enc, err := cfg.Hash(plain)
	if err != nil {
		switch {
		case errors.Is(err, password.ErrPasswordTooShort):
			return "", OpError{Op: "account.HashPassword", Kind: ErrInvalidInput, Msg: "password too short"}
		case errors.Is(err, password.ErrPasswordTooLong):
			return "", OpError{Op: "account.HashPassword", Kind: ErrInvalidInput, Msg: "password too long"}
		case errors.Is(err, password.ErrWeakPassword):
			return "", OpError{Op: "account.HashPassword", Kind: ErrInvalidInput, Msg: "weak password"}
		default:
			return "", err
		}
	}
	return enc, nil
}

// VerifyPassword checks a password against a PHC argon2id hash using a
// constant-time compare. Malformed hashes report an error rather than a
// silent mismatch.
func VerifyPassword(plain string, encodedPHC string) (bool, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		return false, err
	}
	if cfg.Policy.MinLength < 8 {
		cfg.Policy.MinLength = 8
	}

	ok, err := cfg.Verify(encodedPHC, plain)
	if err != nil {
		if errors.Is(err, password.ErrInvalidHash) {
			return false, errors.New("invalid argon2id hash format")
		}
		return false, err
	}
	return ok, nil
}
