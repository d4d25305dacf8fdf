// Package authapi exposes the user account and credential endpoints
// under /api/v1/users. It owns the HTTP envelope, cookie transport, and
// the mapping from service errors to status codes; business rules live
// in the account and credential packages.
package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"vidtube/cmd/account"
	"vidtube/cmd/internal/auth/credential"
)

// MediaStore mints presigned upload URLs and resolves uploaded keys to
// public URLs. Nil when object storage is not configured.
type MediaStore interface {
	PresignUpload(ctx context.Context, prefix string) (key string, url string, err error)
	ObjectURL(key string) string
}

// Handler wires the user HTTP endpoints to the account store and
// credential service.
type Handler struct {
	log *slog.Logger
	cfg Config

	accounts account.Store
	creds    *credential.Service
	media    MediaStore
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithMediaStore enables the profile image upload endpoints.
func WithMediaStore(store MediaStore) HandlerOption {
	return func(h *Handler) {
		if h == nil || store == nil {
			return
		}
		h.media = store
	}
}

// NewHandler constructs the user API handler.
func NewHandler(log *slog.Logger, accounts account.Store, creds *credential.Service, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if accounts == nil {
		return nil, errors.New("authapi: nil account store")
	}
	if creds == nil {
		return nil, errors.New("authapi: nil credential service")
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		accounts: accounts,
		creds:    creds,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires the user routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/v1/users/register", h.handleRegister)
	mux.HandleFunc("/api/v1/users/login", h.handleLogin)
	mux.HandleFunc("/api/v1/users/refresh-token", h.handleRefreshToken)
	mux.HandleFunc("/api/v1/users/logout", h.handleLogout)
	mux.HandleFunc("/api/v1/users/change-password", h.handleChangePassword)
	mux.HandleFunc("/api/v1/users/current-user", h.handleCurrentUser)
	mux.HandleFunc("/api/v1/users/update-account", h.handleUpdateAccount)
	mux.HandleFunc("/api/v1/users/avatar", h.handleAvatar)
	mux.HandleFunc("/api/v1/users/avatar/upload-url", h.handleAvatarUploadURL)
	mux.HandleFunc("/api/v1/users/cover-image", h.handleCoverImage)
	mux.HandleFunc("/api/v1/users/cover-image/upload-url", h.handleCoverImageUploadURL)
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.FullName) == "" ||
		strings.TrimSpace(req.Username) == "" ||
		strings.TrimSpace(req.Email) == "" ||
		strings.TrimSpace(req.Password) == "" {
		writeError(w, http.StatusBadRequest, "all fields are required")
		return
	}

	u, err := h.accounts.CreateUser(r.Context(), account.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
		Now:      time.Now().UTC(),
	})
	if err != nil {
		switch {
		case account.IsConflict(err):
			writeError(w, http.StatusConflict, "user with email or username already exists")
		case account.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid input")
		default:
			h.log.Error("users.register.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, "user registered successfully", toUserResponse(u))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username := trimPtr(req.Username)
	email := trimPtr(req.Email)
	if username == nil && email == nil {
		writeError(w, http.StatusBadRequest, "username or email is required")
		return
	}
	if strings.TrimSpace(req.Password) == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}
	// When both are sent the username wins.
	if username != nil {
		email = nil
	}

	now := time.Now().UTC()
	u, pair, err := h.creds.Login(r.Context(), now, username, email, req.Password)
	if err != nil {
		switch {
		case account.IsNotFound(err):
			writeError(w, http.StatusNotFound, "user does not exist")
		case errors.Is(err, credential.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid user credentials")
		case account.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid input")
		default:
			h.log.Error("users.login.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, "user logged in successfully", loginData{
		User:         toUserResponse(u),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req refreshRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	// Cookie first, JSON body as the fallback for non-browser clients.
	token, _ := h.refreshTokenFromCookie(r)
	if token == "" {
		token = strings.TrimSpace(req.RefreshToken)
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	pair, err := h.creds.Rotate(r.Context(), time.Now().UTC(), token)
	if err != nil {
		switch {
		case errors.Is(err, credential.ErrTokenExpiredOrUsed):
			writeError(w, http.StatusUnauthorized, "refresh token is expired or used")
		case errors.Is(err, credential.ErrInvalidToken):
			writeError(w, http.StatusUnauthorized, "unauthorized request")
		default:
			h.log.Error("users.refresh.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, "access token refreshed", refreshData{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	u, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	if err := h.creds.Revoke(r.Context(), u.ID, time.Now().UTC()); err != nil {
		h.log.Error("users.logout.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.clearAuthCookies(w)
	writeJSON(w, http.StatusOK, "user logged out", nil)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	u, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.OldPassword) == "" || strings.TrimSpace(req.NewPassword) == "" {
		writeError(w, http.StatusBadRequest, "old and new password are required")
		return
	}

	ctx := r.Context()
	ua, err := h.accounts.GetUserAuthByID(ctx, u.ID)
	if err != nil {
		h.log.Error("users.change_password.load.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	okPw, err := account.VerifyPassword(req.OldPassword, ua.PasswordHash)
	if err != nil {
		h.log.Error("users.change_password.verify.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !okPw {
		writeError(w, http.StatusBadRequest, "invalid old password")
		return
	}

	hash, err := account.HashPassword(req.NewPassword)
	if err != nil {
		if account.IsInvalidInput(err) {
			writeError(w, http.StatusBadRequest, "new password does not meet the policy")
			return
		}
		h.log.Error("users.change_password.hash.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.accounts.UpdatePasswordHash(ctx, u.ID, hash, time.Now().UTC()); err != nil {
		h.log.Error("users.change_password.update.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, "password changed successfully", nil)
}

func (h *Handler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	u, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, "current user fetched successfully", toUserResponse(u))
}

func (h *Handler) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	u, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.FullName) == "" || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "full name and email are required")
		return
	}

	updated, err := h.accounts.UpdateProfile(r.Context(), account.UpdateProfileInput{
		UserID:   u.ID,
		FullName: req.FullName,
		Email:    req.Email,
		Now:      time.Now().UTC(),
	})
	if err != nil {
		switch {
		case account.IsConflict(err):
			writeError(w, http.StatusConflict, "email already in use")
		case account.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid input")
		case account.IsNotFound(err):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			h.log.Error("users.update_account.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, "account details updated successfully", toUserResponse(updated))
}

func (h *Handler) handleAvatarUploadURL(w http.ResponseWriter, r *http.Request) {
	h.handleUploadURL(w, r, "avatars")
}

func (h *Handler) handleCoverImageUploadURL(w http.ResponseWriter, r *http.Request) {
	h.handleUploadURL(w, r, "covers")
}

func (h *Handler) handleUploadURL(w http.ResponseWriter, r *http.Request, kind string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.media == nil {
		writeError(w, http.StatusServiceUnavailable, "media storage not configured")
		return
	}

	u, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	key, url, err := h.media.PresignUpload(r.Context(), kind+"/"+u.ID)
	if err != nil {
		h.log.Error("users.upload_url.fail", "kind", kind, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, "upload url issued", uploadURLData{
		FileKey:   key,
		UploadURL: url,
	})
}

func (h *Handler) handleAvatar(w http.ResponseWriter, r *http.Request) {
	h.handleSetImage(w, r, "avatars", h.accounts.SetAvatarURL, "avatar updated successfully")
}

func (h *Handler) handleCoverImage(w http.ResponseWriter, r *http.Request) {
	h.handleSetImage(w, r, "covers", h.accounts.SetCoverImageURL, "cover image updated successfully")
}

func (h *Handler) handleSetImage(
	w http.ResponseWriter,
	r *http.Request,
	kind string,
	set func(ctx context.Context, userID, url string, now time.Time) (account.User, error),
	okMsg string,
) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.media == nil {
		writeError(w, http.StatusServiceUnavailable, "media storage not configured")
		return
	}

	u, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	var req setImageRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	key := strings.TrimSpace(req.FileKey)
	if key == "" {
		writeError(w, http.StatusBadRequest, "fileKey is required")
		return
	}
	// The key must come from this account's own upload-url grant.
	if !strings.HasPrefix(key, kind+"/"+u.ID+"/") {
		writeError(w, http.StatusForbidden, "file key does not belong to this account")
		return
	}

	updated, err := set(r.Context(), u.ID, h.media.ObjectURL(key), time.Now().UTC())
	if err != nil {
		if account.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.log.Error("users.set_image.fail", "kind", kind, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, okMsg, toUserResponse(updated))
}

// ---- helpers ----

func (h *Handler) requireAuth(w http.ResponseWriter, r *http.Request) (account.User, bool) {
	token := h.accessTokenFromRequest(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized request")
		return account.User{}, false
	}

	u, err := h.creds.Authenticate(r.Context(), token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, credential.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "invalid access token")
			return account.User{}, false
		}
		h.log.Error("users.auth.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return account.User{}, false
	}
	return u, true
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
