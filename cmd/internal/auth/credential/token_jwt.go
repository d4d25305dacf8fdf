package credential

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Pair is an issued access/refresh token pair.
type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenManager signs and verifies both token classes as HS256 JWTs with
// per-class secrets. It is a pure function of (account id, now, secret):
// no store access happens here.
type TokenManager struct {
	issuer    string
	clockSkew time.Duration

	accessSecret []byte
	accessTTL    time.Duration

	refreshSecret []byte
	refreshTTL    time.Duration
}

// NewTokenManager validates the configured secrets and builds a manager.
// Misconfigured secrets are a startup error, never a per-request one.
func NewTokenManager(cfg Config) (*TokenManager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &TokenManager{
		issuer:        cfg.Issuer,
		clockSkew:     cfg.ClockSkew,
		accessSecret:  []byte(cfg.AccessTokenSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		refreshTTL:    cfg.RefreshTokenTTL,
	}, nil
}

// Issue produces a fresh access/refresh pair for an account.
// Signing failure (HMAC over in-memory bytes) indicates a broken runtime
// and is surfaced as-is for the boundary to treat as internal.
func (m *TokenManager) Issue(accountID string, now time.Time) (Pair, error) {
	accessExp := now.Add(m.accessTTL)
	access, err := m.sign(accountID, now, accessExp, m.accessSecret)
	if err != nil {
		return Pair{}, err
	}

	refreshExp := now.Add(m.refreshTTL)
	refresh, err := m.sign(accountID, now, refreshExp, m.refreshSecret)
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess verifies an access token and returns the account id.
// Every failure mode collapses to ErrInvalidToken.
func (m *TokenManager) VerifyAccess(token string, now time.Time) (string, error) {
	return m.verify(token, now, m.accessSecret)
}

// VerifyRefresh verifies a refresh token's signature and expiry and
// returns the account id. Whether the token is still the CURRENT one is
// the Service's concern, not the manager's.
func (m *TokenManager) VerifyRefresh(token string, now time.Time) (string, error) {
	return m.verify(token, now, m.refreshSecret)
}

func (m *TokenManager) sign(accountID string, now, exp time.Time, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (m *TokenManager) verify(token string, now time.Time, secret []byte) (string, error) {
	token = strings.TrimSpace(token)
	// Basic sanity bounds to avoid pathological inputs.
	if token == "" || len(token) > 4096 {
		return "", ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(m.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
