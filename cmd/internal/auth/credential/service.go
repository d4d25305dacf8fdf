package credential

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"vidtube/cmd/account"
)

// Service implements the high-level credential operations for vidtube.
//
// It verifies logins against the account store, issues token pairs,
// authenticates access tokens statelessly, performs refresh rotation,
// and revokes the stored refresh token on logout.
type Service struct {
	store  account.Store
	tokens *TokenManager
}

// NewService constructs a Service with the provided store and token manager.
func NewService(store account.Store, tokens *TokenManager) *Service {
	return &Service{store: store, tokens: tokens}
}

// Login verifies an identifier/password pair and issues fresh tokens.
//
// Exactly one of username/email must be non-nil (the handler validates
// shape; this guards the contract). The returned profile excludes the
// hash and refresh token by construction. The issued refresh token is
// persisted on the account, overwriting and thereby invalidating any
// prior one.
func (s *Service) Login(ctx context.Context, now time.Time, username, email *string, password string) (account.User, Pair, error) {
	if (username == nil && email == nil) || strings.TrimSpace(password) == "" {
		return account.User{}, Pair{}, account.OpError{
			Op: "credential.Login", Kind: account.ErrInvalidInput, Msg: "username or email is required",
		}
	}

	var (
		ua  account.UserAuth
		err error
	)
	if username != nil {
		ua, err = s.store.GetUserAuthByUsername(ctx, *username)
	} else {
		ua, err = s.store.GetUserAuthByEmail(ctx, *email)
	}
	if err != nil {
		// NotFound propagates as-is: the API reports a missing account
		// distinctly from a wrong password, as the platform always has.
		return account.User{}, Pair{}, err
	}

	ok, err := account.VerifyPassword(password, ua.PasswordHash)
	if err != nil {
		return account.User{}, Pair{}, err
	}
	if !ok {
		return account.User{}, Pair{}, ErrInvalidCredentials
	}

	pair, err := s.issueAndPersist(ctx, now, ua.ID)
	if err != nil {
		return account.User{}, Pair{}, err
	}
	return ua.User, pair, nil
}

// Authenticate verifies an access token and loads the public profile it
// names. No store mutation, and the stored refresh token is never
// consulted: access verification stays a signature check plus one read.
func (s *Service) Authenticate(ctx context.Context, token string, now time.Time) (account.User, error) {
	accountID, err := s.tokens.VerifyAccess(token, now)
	if err != nil {
		return account.User{}, ErrInvalidToken
	}

	u, err := s.store.GetUserByID(ctx, accountID)
	if err != nil {
		if account.IsNotFound(err) {
			return account.User{}, ErrInvalidToken
		}
		return account.User{}, err
	}
	return u, nil
}

// Rotate exchanges a valid refresh token for a new pair, invalidating
// the presented token.
//
// State machine: a refresh token is valid-current only while it equals
// the stored value. Any successful rotation (or logout) moves it to
// superseded, which is terminal; expiry is time-driven and independent.
//
// The final overwrite is a plain single-column update. Two genuinely
// concurrent valid rotations may both pass the equality check and both
// succeed; the second writer's pair becomes current and the first
// caller's pair is silently superseded. That is the accepted trade-off
// of single-token rotation and must not be "fixed" with locking or
// retries here.
func (s *Service) Rotate(ctx context.Context, now time.Time, presented string) (Pair, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return Pair{}, ErrInvalidToken
	}

	// Signature/expiry failures are indistinguishable to the caller.
	accountID, err := s.tokens.VerifyRefresh(presented, now)
	if err != nil {
		return Pair{}, ErrInvalidToken
	}

	ua, err := s.store.GetUserAuthByID(ctx, accountID)
	if err != nil {
		if account.IsNotFound(err) {
			return Pair{}, ErrInvalidToken
		}
		return Pair{}, err
	}

	// Replay/reuse defense: the token must equal the stored current
	// value byte for byte. A rotated-away or cleared token still passes
	// the signature check above, so this comparison is what enforces
	// single use.
	if ua.RefreshToken == nil || !secureStringEqual(presented, *ua.RefreshToken) {
		return Pair{}, ErrTokenExpiredOrUsed
	}

	return s.issueAndPersist(ctx, now, accountID)
}

// Revoke clears the stored refresh token (logout). Outstanding access
// tokens stay valid until their own expiry; revocation only removes the
// ability to mint new pairs.
func (s *Service) Revoke(ctx context.Context, accountID string, now time.Time) error {
	return s.store.SetRefreshToken(ctx, accountID, nil, now)
}

func (s *Service) issueAndPersist(ctx context.Context, now time.Time, accountID string) (Pair, error) {
	pair, err := s.tokens.Issue(accountID, now)
	if err != nil {
		return Pair{}, err
	}

	// A failed write here leaves the client holding a pair the server
	// never recorded; the caller surfaces it as internal. No retry by
	// design.
	refresh := pair.RefreshToken
	if err := s.store.SetRefreshToken(ctx, accountID, &refresh, now); err != nil {
		return Pair{}, err
	}
	return pair, nil
}

func secureStringEqual(a, b string) bool {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
