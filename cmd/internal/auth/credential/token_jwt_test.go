package credential

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.AccessTokenSecret = strings.Repeat("a", 32)
	cfg.RefreshTokenSecret = strings.Repeat("r", 32)
	return cfg
}

func TestTokenManager_IssueAndVerify(t *testing.T) {
	t.Parallel()

	mgr, err := NewTokenManager(testConfig())
	require.NoError(t, err)

	now := time.Now().UTC()
	pair, err := mgr.Issue("01JC5XH4T1V9GZ1R3A5W7K9Q2D", now)
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.True(t, pair.AccessExpiresAt.After(now))
	assert.True(t, pair.RefreshExpiresAt.After(pair.AccessExpiresAt))

	id, err := mgr.VerifyAccess(pair.AccessToken, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "01JC5XH4T1V9GZ1R3A5W7K9Q2D", id)

	id, err = mgr.VerifyRefresh(pair.RefreshToken, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "01JC5XH4T1V9GZ1R3A5W7K9Q2D", id)
}

func TestTokenManager_ClassesDoNotCross(t *testing.T) {
	t.Parallel()

	mgr, err := NewTokenManager(testConfig())
	require.NoError(t, err)

	now := time.Now().UTC()
	pair, err := mgr.Issue("acc-1", now)
	require.NoError(t, err)

	// An access token must never verify as a refresh token and vice versa.
	_, err = mgr.VerifyRefresh(pair.AccessToken, now)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = mgr.VerifyAccess(pair.RefreshToken, now)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_VerifyFailures(t *testing.T) {
	t.Parallel()

	mgr, err := NewTokenManager(testConfig())
	require.NoError(t, err)

	other := testConfig()
	other.AccessTokenSecret = strings.Repeat("x", 32)
	foreign, err := NewTokenManager(other)
	require.NoError(t, err)

	now := time.Now().UTC()
	pair, err := mgr.Issue("acc-1", now)
	require.NoError(t, err)
	foreignPair, err := foreign.Issue("acc-1", now)
	require.NoError(t, err)

	cases := []struct {
		name  string
		token string
		at    time.Time
	}{
		{name: "empty", token: "", at: now},
		{name: "malformed", token: "not.a.jwt", at: now},
		{name: "wrong secret", token: foreignPair.AccessToken, at: now},
		{name: "expired", token: pair.AccessToken, at: now.Add(16*time.Minute + time.Minute)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := mgr.VerifyAccess(tc.token, tc.at)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenManager_ClockSkewTolerated(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.ClockSkew = 30 * time.Second
	mgr, err := NewTokenManager(cfg)
	require.NoError(t, err)

	now := time.Now().UTC()
	pair, err := mgr.Issue("acc-1", now)
	require.NoError(t, err)

	// Just past expiry but within leeway.
	_, err = mgr.VerifyAccess(pair.AccessToken, pair.AccessExpiresAt.Add(10*time.Second))
	assert.NoError(t, err)

	// Well past leeway.
	_, err = mgr.VerifyAccess(pair.AccessToken, pair.AccessExpiresAt.Add(time.Minute))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenManager_RejectsBadSecrets(t *testing.T) {
	t.Parallel()

	short := testConfig()
	short.AccessTokenSecret = "too-short"
	_, err := NewTokenManager(short)
	assert.ErrorIs(t, err, ErrConfig)

	same := testConfig()
	same.RefreshTokenSecret = same.AccessTokenSecret
	_, err = NewTokenManager(same)
	assert.ErrorIs(t, err, ErrConfig)
}
