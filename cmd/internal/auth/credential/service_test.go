package credential

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidtube/cmd/account"
)

// memStore is an in-memory account.Store for unit tests.
type memStore struct {
	mu    sync.Mutex
	users map[string]*account.UserAuth
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*account.UserAuth{}}
}

func (m *memStore) addUser(t *testing.T, username, email, password string) account.User {
	t.Helper()

	hash, err := account.HashPassword(password)
	require.NoError(t, err)

	now := time.Now().UTC()
	id, err := account.NewULID(now)
	require.NoError(t, err)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = &account.UserAuth{
		User: account.User{
			ID: id, Username: username, Email: email, FullName: username,
			CreatedAt: now, UpdatedAt: now,
		},
		PasswordHash: hash,
	}
	return m.users[id].User
}

func (m *memStore) storedRefresh(id string) *string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ua, ok := m.users[id]; ok {
		return ua.RefreshToken
	}
	return nil
}

func (m *memStore) CreateUser(_ context.Context, in account.CreateUserInput) (account.User, error) {
	hash, err := account.HashPassword(in.Password)
	if err != nil {
		return account.User{}, err
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := account.NewULID(now)
	if err != nil {
		return account.User{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ua := range m.users {
		if account.NormalizeUsername(ua.Username) == account.NormalizeUsername(in.Username) {
			return account.User{}, account.ConflictError{Op: "mem.CreateUser", Field: "username"}
		}
		if account.NormalizeEmail(ua.Email) == account.NormalizeEmail(in.Email) {
			return account.User{}, account.ConflictError{Op: "mem.CreateUser", Field: "email"}
		}
	}
	m.users[id] = &account.UserAuth{
		User: account.User{
			ID: id, Username: in.Username, Email: in.Email, FullName: in.FullName,
			CreatedAt: now, UpdatedAt: now,
		},
		PasswordHash: hash,
	}
	return m.users[id].User, nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (account.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ua, ok := m.users[id]; ok {
		return ua.User, nil
	}
	return account.User{}, account.NotFoundError{Op: "mem.GetUserByID", Resource: "user"}
}

func (m *memStore) GetUserAuthByID(_ context.Context, id string) (account.UserAuth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ua, ok := m.users[id]; ok {
		return *ua, nil
	}
	return account.UserAuth{}, account.NotFoundError{Op: "mem.GetUserAuthByID", Resource: "user"}
}

func (m *memStore) GetUserAuthByUsername(_ context.Context, username string) (account.UserAuth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	norm := account.NormalizeUsername(username)
	for _, ua := range m.users {
		if account.NormalizeUsername(ua.Username) == norm {
			return *ua, nil
		}
	}
	return account.UserAuth{}, account.NotFoundError{Op: "mem.GetUserAuthByUsername", Resource: "user"}
}

func (m *memStore) GetUserAuthByEmail(_ context.Context, email string) (account.UserAuth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	norm := account.NormalizeEmail(email)
	for _, ua := range m.users {
		if account.NormalizeEmail(ua.Email) == norm {
			return *ua, nil
		}
	}
	return account.UserAuth{}, account.NotFoundError{Op: "mem.GetUserAuthByEmail", Resource: "user"}
}

func (m *memStore) SetRefreshToken(_ context.Context, userID string, token *string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ua, ok := m.users[userID]
	if !ok {
		return account.NotFoundError{Op: "mem.SetRefreshToken", Resource: "user"}
	}
	ua.RefreshToken = token
	ua.UpdatedAt = now
	return nil
}

func (m *memStore) UpdatePasswordHash(_ context.Context, userID string, hash string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ua, ok := m.users[userID]
	if !ok {
		return account.NotFoundError{Op: "mem.UpdatePasswordHash", Resource: "user"}
	}
	ua.PasswordHash = hash
	ua.UpdatedAt = now
	return nil
}

func (m *memStore) UpdateProfile(_ context.Context, in account.UpdateProfileInput) (account.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ua, ok := m.users[in.UserID]
	if !ok {
		return account.User{}, account.NotFoundError{Op: "mem.UpdateProfile", Resource: "user"}
	}
	ua.FullName = in.FullName
	ua.Email = in.Email
	ua.UpdatedAt = in.Now
	return ua.User, nil
}

func (m *memStore) SetAvatarURL(_ context.Context, userID string, url string, now time.Time) (account.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ua, ok := m.users[userID]
	if !ok {
		return account.User{}, account.NotFoundError{Op: "mem.SetAvatarURL", Resource: "user"}
	}
	ua.AvatarURL = &url
	ua.UpdatedAt = now
	return ua.User, nil
}

func (m *memStore) SetCoverImageURL(_ context.Context, userID string, url string, now time.Time) (account.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ua, ok := m.users[userID]
	if !ok {
		return account.User{}, account.NotFoundError{Op: "mem.SetCoverImageURL", Resource: "user"}
	}
	ua.CoverImageURL = &url
	ua.UpdatedAt = now
	return ua.User, nil
}

func fastArgon2(t *testing.T) {
	t.Helper()
	// Keep unit tests cheap; production cost comes from env/defaults.
	t.Setenv("VIDTUBE_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("VIDTUBE_ARGON2_ITERATIONS", "1")
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	fastArgon2(t)

	mgr, err := NewTokenManager(testConfig())
	require.NoError(t, err)
	st := newMemStore()
	return NewService(st, mgr), st
}

func strPtr(s string) *string { return &s }

func TestLogin_IssuesPairAndPersistsRefresh(t *testing.T) {
	svc, st := newTestService(t)
	u := st.addUser(t, "alice", "alice@example.com", "correct horse battery")

	now := time.Now().UTC()
	got, pair, err := svc.Login(context.Background(), now, strPtr("alice"), nil, "correct horse battery")
	require.NoError(t, err)

	assert.Equal(t, u.ID, got.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	stored := st.storedRefresh(u.ID)
	require.NotNil(t, stored)
	assert.Equal(t, pair.RefreshToken, *stored)
}

func TestLogin_ByEmail(t *testing.T) {
	svc, st := newTestService(t)
	st.addUser(t, "alice", "alice@example.com", "correct horse battery")

	_, pair, err := svc.Login(context.Background(), time.Now().UTC(), nil, strPtr("Alice@Example.COM"), "correct horse battery")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestLogin_Failures(t *testing.T) {
	svc, st := newTestService(t)
	st.addUser(t, "alice", "alice@example.com", "correct horse battery")

	ctx := context.Background()
	now := time.Now().UTC()

	_, _, err := svc.Login(ctx, now, nil, nil, "whatever-pass")
	assert.True(t, account.IsInvalidInput(err), "missing identifier: %v", err)

	_, _, err = svc.Login(ctx, now, strPtr("nobody"), nil, "whatever-pass")
	assert.True(t, account.IsNotFound(err), "unknown user: %v", err)

	_, _, err = svc.Login(ctx, now, strPtr("alice"), nil, "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_OverwritesPriorRefreshToken(t *testing.T) {
	svc, st := newTestService(t)
	u := st.addUser(t, "alice", "alice@example.com", "correct horse battery")

	ctx := context.Background()
	_, first, err := svc.Login(ctx, time.Now().UTC(), strPtr("alice"), nil, "correct horse battery")
	require.NoError(t, err)

	// Second login from another device supersedes the first session.
	_, second, err := svc.Login(ctx, time.Now().UTC().Add(time.Second), strPtr("alice"), nil, "correct horse battery")
	require.NoError(t, err)

	stored := st.storedRefresh(u.ID)
	require.NotNil(t, stored)
	assert.Equal(t, second.RefreshToken, *stored)

	_, err = svc.Rotate(ctx, time.Now().UTC(), first.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenExpiredOrUsed)
}

func TestRotate_SucceedsOnceThenRejectsReplay(t *testing.T) {
	svc, st := newTestService(t)
	u := st.addUser(t, "alice", "alice@example.com", "correct horse battery")

	ctx := context.Background()
	_, pair, err := svc.Login(ctx, time.Now().UTC(), strPtr("alice"), nil, "correct horse battery")
	require.NoError(t, err)

	rotated, err := svc.Rotate(ctx, time.Now().UTC().Add(time.Second), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, rotated.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	stored := st.storedRefresh(u.ID)
	require.NotNil(t, stored)
	assert.Equal(t, rotated.RefreshToken, *stored)

	// Rotation is not idempotent: replaying the consumed token must fail
	// even though its signature and expiry are still fine.
	_, err = svc.Rotate(ctx, time.Now().UTC().Add(2*time.Second), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenExpiredOrUsed)

	// The rotated-to token keeps working.
	again, err := svc.Rotate(ctx, time.Now().UTC().Add(3*time.Second), rotated.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, rotated.RefreshToken, again.RefreshToken)
}

func TestRotate_UniformUnauthorized(t *testing.T) {
	svc, st := newTestService(t)
	st.addUser(t, "alice", "alice@example.com", "correct horse battery")

	ctx := context.Background()
	now := time.Now().UTC()

	_, err := svc.Rotate(ctx, now, "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Rotate(ctx, now, "garbage.token.value")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Token signed for an account that no longer exists.
	mgr, err := NewTokenManager(testConfig())
	require.NoError(t, err)
	ghost, err := mgr.Issue("01JC5XH4T1V9GZ1R3A5W7K9Q2D", now)
	require.NoError(t, err)
	_, err = svc.Rotate(ctx, now, ghost.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevoke_ClearsStoredTokenButNotAccess(t *testing.T) {
	svc, st := newTestService(t)
	u := st.addUser(t, "alice", "alice@example.com", "correct horse battery")

	ctx := context.Background()
	now := time.Now().UTC()
	_, pair, err := svc.Login(ctx, now, strPtr("alice"), nil, "correct horse battery")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, u.ID, now))
	assert.Nil(t, st.storedRefresh(u.ID))

	// Refresh is dead immediately.
	_, err = svc.Rotate(ctx, now.Add(time.Second), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenExpiredOrUsed)

	// But the already-issued access token rides out its own expiry.
	got, err := svc.Authenticate(ctx, pair.AccessToken, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestAuthenticate_Failures(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := svc.Authenticate(ctx, "", now)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Valid signature, deleted account.
	mgr, err := NewTokenManager(testConfig())
	require.NoError(t, err)
	pair, err := mgr.Issue("01JC5XH4T1V9GZ1R3A5W7K9Q2D", now)
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, pair.AccessToken, now)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
