package account

import (
	"context"
	"time"
)

// User is vidtube's canonical principal: a channel owner.
// PasswordHash and RefreshToken never leave the store boundary; the
// public profile is everything on this struct.
type User struct {
	ID       string
	Username string
	Email    string
	FullName string

	AvatarURL     *string
	CoverImageURL *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserAuth carries the credential material needed by the login and
// refresh flows. It must never be serialized into an API response.
type UserAuth struct {
	User
	PasswordHash string

	// RefreshToken is the single currently-honored refresh token for
	// this account, or nil when the account has no live session.
	RefreshToken *string
}

// CreateUserInput describes a registration request. All fields are
// required; Password arrives in plain text and is hashed by the store.
type CreateUserInput struct {
	Username string
	Email    string
	FullName string
	Password string
	Now      time.Time
}

// UpdateProfileInput updates the mutable profile fields.
type UpdateProfileInput struct {
	UserID   string
	FullName string
	Email    string
	Now      time.Time
}

// Store is the account persistence boundary.
//
// SetRefreshToken is the only session-state mutation in the system: a
// single-row, single-column overwrite. Implementations rely on the
// database's per-row atomicity; callers must not wrap it in additional
// locking (two concurrent rotations are allowed to race, last writer
// wins).
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserAuthByID(ctx context.Context, id string) (UserAuth, error)
	GetUserAuthByUsername(ctx context.Context, username string) (UserAuth, error)
	GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error)

	// SetRefreshToken overwrites the stored refresh token. A nil token
	// clears it (revocation).
	SetRefreshToken(ctx context.Context, userID string, token *string, now time.Time) error

	UpdatePasswordHash(ctx context.Context, userID string, hash string, now time.Time) error
	UpdateProfile(ctx context.Context, in UpdateProfileInput) (User, error)
	SetAvatarURL(ctx context.Context, userID string, url string, now time.Time) (User, error)
	SetCoverImageURL(ctx context.Context, userID string, url string, now time.Time) (User, error)
}
