package credential

import (
	"os"
	"time"
)

// Config defines runtime configuration for the credential subsystem.
//
// It controls token TTLs, clock skew tolerance, and the two HMAC signing
// secrets. The secrets MUST differ: an access token must never verify as
// a refresh token or vice versa.
type Config struct {
	// Issuer is the value set in the "iss" claim of both token classes.
	Issuer string

	// AccessTokenTTL is the lifetime of access tokens (minutes-scale).
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the lifetime of refresh tokens (days-scale).
	RefreshTokenTTL time.Duration

	// ClockSkew is the allowed time skew during token validation.
	ClockSkew time.Duration

	// AccessTokenSecret and RefreshTokenSecret are the per-class HMAC
	// signing secrets.
	AccessTokenSecret  string
	RefreshTokenSecret string
}

// minSecretBytes is the minimum accepted HMAC secret length.
const minSecretBytes = 32

// DefaultConfig returns defaults suitable for development.
// Secrets are intentionally absent and must come from the environment.
func DefaultConfig() Config {
	return Config{
		Issuer:          "vidtube",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		ClockSkew:       30 * time.Second,
	}
}

// LoadConfigFromEnv loads credential configuration from environment variables.
//
// Required:
//   - VIDTUBE_ACCESS_TOKEN_SECRET  (>= 32 bytes)
//   - VIDTUBE_REFRESH_TOKEN_SECRET (>= 32 bytes, distinct from access)
//
// Optional (durations must be valid Go duration strings):
//   - VIDTUBE_AUTH_ISSUER
//   - VIDTUBE_AUTH_ACCESS_TTL
//   - VIDTUBE_AUTH_REFRESH_TTL
//   - VIDTUBE_AUTH_CLOCK_SKEW
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("VIDTUBE_AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("VIDTUBE_AUTH_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTokenTTL = d
	}

	if v := os.Getenv("VIDTUBE_AUTH_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenTTL = d
	}

	if v := os.Getenv("VIDTUBE_AUTH_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	cfg.AccessTokenSecret = os.Getenv("VIDTUBE_ACCESS_TOKEN_SECRET")
	cfg.RefreshTokenSecret = os.Getenv("VIDTUBE_REFRESH_TOKEN_SECRET")

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if len(c.AccessTokenSecret) < minSecretBytes {
		return ErrConfig
	}
	if len(c.RefreshTokenSecret) < minSecretBytes {
		return ErrConfig
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return ErrConfig
	}
	// An access token must always outlive a single request but never a
	// refresh window.
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return ErrConfig
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		return ErrConfig
	}
	return nil
}
