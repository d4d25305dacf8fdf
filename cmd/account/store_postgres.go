package account

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements account persistence over PostgreSQL.
//
// Design notes:
//   - The pgx pool is owned by the caller; this store must NOT close it.
//   - Schema/table identifiers are safely quoted to avoid SQL injection
//     via identifiers.
//   - SetRefreshToken is a single-row UPDATE; the row-level atomicity of
//     Postgres is the only coordination the refresh-rotation protocol
//     relies on.
//   - Errors are mapped to account sentinel kinds where appropriate.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the account store (default "vidtube").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("account: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("account: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore with secure defaults.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "vidtube",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("account: nil pool")
	}
	return st, nil
}

const userColumns = `id, username, email, full_name, avatar_url, cover_image_url, created_at, updated_at`

// CreateUser hashes the password and inserts the user row.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "account.CreateUser"

	if s == nil || s.pool == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	fullName := strings.TrimSpace(in.FullName)

	if username == "" || email == "" || fullName == "" {
		return User{}, pgInvalid(op, "username, email and full name are required")
	}
	if strings.TrimSpace(in.Password) == "" {
		return User{}, pgInvalid(op, "password is required")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	usernameNorm := NormalizeUsername(username)
	emailNorm := NormalizeEmail(email)

	pwHash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}

	userID, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	users := pgIdent(s.schema, "users")

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+users+` (
		     id, username, username_norm, email, email_norm,
		     full_name, password_hash, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		userID, username, usernameNorm, email, emailNorm, fullName, pwHash, now,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}

	return User{
		ID:        userID,
		Username:  username,
		Email:     email,
		FullName:  fullName,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetUserByID loads the public profile.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "account.GetUserByID"

	if strings.TrimSpace(id) == "" {
		return User{}, pgInvalid(op, "missing id")
	}

	users := pgIdent(s.schema, "users")
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+users+` WHERE id = $1`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}
	return u, nil
}

// GetUserAuthByID loads the profile plus credential material.
func (s *PostgresStore) GetUserAuthByID(ctx context.Context, id string) (UserAuth, error) {
	const op = "account.GetUserAuthByID"

	if strings.TrimSpace(id) == "" {
		return UserAuth{}, pgInvalid(op, "missing id")
	}
	return s.getUserAuth(ctx, op, `id = $1`, id)
}

// GetUserAuthByUsername resolves via the normalized username.
func (s *PostgresStore) GetUserAuthByUsername(ctx context.Context, username string) (UserAuth, error) {
	const op = "account.GetUserAuthByUsername"

	norm := NormalizeUsername(username)
	if norm == "" {
		return UserAuth{}, pgInvalid(op, "missing username")
	}
	return s.getUserAuth(ctx, op, `username_norm = $1`, norm)
}

// GetUserAuthByEmail resolves via the normalized email.
func (s *PostgresStore) GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error) {
	const op = "account.GetUserAuthByEmail"

	norm := NormalizeEmail(email)
	if norm == "" {
		return UserAuth{}, pgInvalid(op, "missing email")
	}
	return s.getUserAuth(ctx, op, `email_norm = $1`, norm)
}

func (s *PostgresStore) getUserAuth(ctx context.Context, op, where string, arg any) (UserAuth, error) {
	if s == nil || s.pool == nil {
		return UserAuth{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}

	users := pgIdent(s.schema, "users")
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+`, password_hash, refresh_token
		   FROM `+users+` WHERE `+where, arg)

	var ua UserAuth
	err := row.Scan(
		&ua.ID, &ua.Username, &ua.Email, &ua.FullName,
		&ua.AvatarURL, &ua.CoverImageURL, &ua.CreatedAt, &ua.UpdatedAt,
		&ua.PasswordHash, &ua.RefreshToken,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
		}
		return UserAuth{}, err
	}
	return ua, nil
}

// SetRefreshToken overwrites (or clears, when token is nil) the single
// stored refresh token. Plain UPDATE, no lock: concurrent rotations are
// resolved last-writer-wins at the row level.
func (s *PostgresStore) SetRefreshToken(ctx context.Context, userID string, token *string, now time.Time) error {
	const op = "account.SetRefreshToken"

	if s == nil || s.pool == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if strings.TrimSpace(userID) == "" {
		return pgInvalid(op, "missing user_id")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	users := pgIdent(s.schema, "users")
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+users+` SET refresh_token = $2, updated_at = $3 WHERE id = $1`,
		userID, token, now,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// UpdatePasswordHash swaps the credential hash.
func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, userID string, hash string, now time.Time) error {
	const op = "account.UpdatePasswordHash"

	if strings.TrimSpace(userID) == "" {
		return pgInvalid(op, "missing user_id")
	}
	if strings.TrimSpace(hash) == "" {
		return pgInvalid(op, "missing password hash")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	users := pgIdent(s.schema, "users")
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+users+` SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		userID, hash, now,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// UpdateProfile updates full name and email, returning the fresh row.
func (s *PostgresStore) UpdateProfile(ctx context.Context, in UpdateProfileInput) (User, error) {
	const op = "account.UpdateProfile"

	fullName := strings.TrimSpace(in.FullName)
	email := strings.TrimSpace(in.Email)
	if strings.TrimSpace(in.UserID) == "" {
		return User{}, pgInvalid(op, "missing user_id")
	}
	if fullName == "" || email == "" {
		return User{}, pgInvalid(op, "full name and email are required")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	users := pgIdent(s.schema, "users")
	row := s.pool.QueryRow(ctx,
		`UPDATE `+users+`
		    SET full_name = $2, email = $3, email_norm = $4, updated_at = $5
		  WHERE id = $1
		  RETURNING `+userColumns,
		in.UserID, fullName, email, NormalizeEmail(email), now,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}
	return u, nil
}

// SetAvatarURL records a freshly uploaded avatar object URL.
func (s *PostgresStore) SetAvatarURL(ctx context.Context, userID string, url string, now time.Time) (User, error) {
	return s.setImageURL(ctx, "account.SetAvatarURL", "avatar_url", userID, url, now)
}

// SetCoverImageURL records a freshly uploaded cover image object URL.
func (s *PostgresStore) SetCoverImageURL(ctx context.Context, userID string, url string, now time.Time) (User, error) {
	return s.setImageURL(ctx, "account.SetCoverImageURL", "cover_image_url", userID, url, now)
}

func (s *PostgresStore) setImageURL(ctx context.Context, op, column, userID, url string, now time.Time) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, pgInvalid(op, "missing user_id")
	}
	if strings.TrimSpace(url) == "" {
		return User{}, pgInvalid(op, "missing url")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	users := pgIdent(s.schema, "users")
	// column is one of two compile-time constants, never user input.
	row := s.pool.QueryRow(ctx,
		`UPDATE `+users+` SET `+column+` = $2, updated_at = $3 WHERE id = $1 RETURNING `+userColumns,
		userID, url, now,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}
	return u, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FullName,
		&u.AvatarURL, &u.CoverImageURL, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// ---- pg helpers ----

func pgIdent(schema, table string) string {
	return fmt.Sprintf("%q.%q", schema, table)
}

func pgInvalid(op, msg string) error {
	return OpError{Op: op, Kind: ErrInvalidInput, Msg: msg}
}

// pgClassifyUniqueViolation maps a unique-violation error to the logical
// field it protects.
func pgClassifyUniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" {
		return "", false
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "username"):
		return "username", true
	case strings.Contains(pgErr.ConstraintName, "email"):
		return "email", true
	default:
		return "unknown", true
	}
}
