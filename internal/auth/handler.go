package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ayush/pawpal-api/internal/httpx"
	"github.com/ayush/pawpal-api/internal/logging"
	"github.com/ayush/pawpal-api/internal/middleware"
	"github.com/ayush/pawpal-api/internal/models"
	"github.com/ayush/pawpal-api/internal/store"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

const (
	msgFieldsRequired       = "All fields are required"
	msgInvalidEmail         = "Please enter a valid email address"
	msgPasswordTooShort     = "Password must be at least 6 characters long"
	msgPasswordMismatch     = "Passwords do not match"
	msgPasswordTooLong      = "Password must be at most 72 bytes long"
	msgNameTooLong          = "Name must be at most 100 characters long"
	msgEmailTooLong         = "Email must be at most 120 characters long"
	msgEmailTaken           = "An account with this email already exists"
	msgCredentialsRequired  = "Email and password are required"
	msgInvalidCredentials   = "Invalid email or password"
	msgAccountDisabled      = "Account is disabled"
	msgWrongCurrentPassword = "Current password is incorrect"
	msgNewPasswordTooShort  = "New password must be at least 6 characters long"
	msgNewPasswordMismatch  = "New passwords do not match"
	msgNewPasswordTooLong   = "New password must be at most 72 bytes long"
	msgUserUnavailable      = "User not found or inactive"
)

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users  UserStore
	hasher PasswordHasher
	tokens *TokenCodec
	log    logging.Logger

	// dummyHash is verified against when a login email is unknown, so both
	// failure branches pay for one hash check.
	dummyHash string
}

func NewHandler(users UserStore, hasher PasswordHasher, tokens *TokenCodec, log logging.Logger) (*Handler, error) {
	dummy, err := hasher.Hash("pawpal-login-placeholder")
	if err != nil {
		return nil, fmt.Errorf("auth: dummy hash: %w", err)
	}
	return &Handler{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		log:       log.With("component", "auth"),
		dummyHash: dummy,
	}, nil
}

// authenticatedUser is the user record plus a freshly minted token.
type authenticatedUser struct {
	*models.User
	Token string `json:"token"`
}

type authResponse struct {
	Message string            `json:"message"`
	User    authenticatedUser `json:"user"`
}

// Signup creates a new user and returns it with a token.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.SignupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}

	name := strings.TrimSpace(req.Name)
	email := store.NormalizeEmail(req.Email)

	switch {
	case !allPresent(req.Name, req.Email, req.Password, req.ConfirmPassword):
		httpx.WriteError(ctx, w, h.log, httpx.Validation(msgFieldsRequired))
		return
	case !validEmail(email):
		httpx.WriteError(ctx, w, h.log, httpx.Validation(msgInvalidEmail))
		return
	case !validPassword(req.Password):
		httpx.WriteError(ctx, w, h.log, httpx.Validation(msgPasswordTooShort))
		return
	case req.Password != req.ConfirmPassword:
		httpx.WriteError(ctx, w, h.log, httpx.Validation(msgPasswordMismatch))
		return
	case !passwordFits(req.Password):
		httpx.WriteError(ctx, w, h.log, httpx.Validation(msgPasswordTooLong))
		return
	case !fits(name, maxNameLength):
		httpx.WriteError(ctx, w, h.log, httpx.Validation(msgNameTooLong))
		return
	case !fits(email, maxEmailLength):
		httpx.WriteError(ctx, w, h.log, httpx.Validation(msgEmailTooLong))
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		httpx.WriteError(ctx, w, h.log, fmt.Errorf("hash password: %w", err))
		return
	}

	user, err := h.users.CreateUser(ctx, name, email, hash)
	if errors.Is(err, store.ErrConflict) {
		httpx.WriteError(ctx, w, h.log, httpx.Conflict(msgEmailTaken))
		return
	}
	if err != nil {
		httpx.WriteError(ctx, w, h.log, fmt.Errorf("create user: %w", err))
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		httpx.WriteError(ctx, w, h.log, fmt.Errorf("issue token: %w", err))
		return
	}

	h.log.Info(ctx, "user signed up", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusCreated, authResponse{
		Message: "Account created successfully",
		User:    authenticatedUser{User: user, Token: token},
	})
}

// Login checks credentials and returns the user with a new token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}
	if !allPresent(req.Email, req.Password) {
		httpx.WriteError(ctx, w, h.log, httpx.Validation(msgCredentialsRequired))
		return
	}

	user, err := h.users.GetUserByEmail(ctx, store.NormalizeEmail(req.Email))
	if errors.Is(err, store.ErrNotFound) {
		h.hasher.Verify(req.Password, h.dummyHash)
		httpx.WriteError(ctx, w, h.log, httpx.Unauthorized(msgInvalidCredentials))
		return
	}
	if err != nil {
		httpx.WriteError(ctx, w, h.log, fmt.Errorf("lookup user: %w", err))
		return
	}

	if !h.hasher.Verify(req.Password, user.PasswordHash) {
		httpx.WriteError(ctx, w, h.log, httpx.Unauthorized(msgInvalidCredentials))
		return
	}
	if !user.IsActive {
		httpx.WriteError(ctx, w, h.log, httpx.Unauthorized(msgAccountDisabled))
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		httpx.WriteError(ctx, w, h.log, fmt.Errorf("issue token: %w", err))
		return
	}

	h.log.Info(ctx, "user logged in", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusOK, authResponse{
		Message: "Login successful",
		User:    authenticatedUser{User: user, Token: token},
	})
}

// Logout acknowledges the request. Tokens are stateless, so the client
// discarding its token is the whole operation.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if user, ok := middleware.UserFromContext(r.Context()); ok {
		h.log.Info(r.Context(), "user logged out", "user_id", user.ID)
	}
	httpx.WriteMessage(w, http.StatusOK, "Logout successful")
}

// Me returns the currently authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(r.Context(), w, h.log, httpx.Unauthorized(msgUserUnavailable))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]*models.User{"user": user})
}

// ChangePassword verifies the current password before anything else, then
// stores a hash of the new one. Issued tokens stay valid.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	current, ok := middleware.UserFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, h.log, httpx.Unauthorized(msgUserUnavailable))
		return
	}

	var req models.ChangePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}
	if !allPresent(req.CurrentPassword, req.NewPassword, req.ConfirmPassword) {
		httpx.WriteError(ctx, w, h.log, httpx.Validation(msgFieldsRequired))
		return
	}

	// the gate's copy may come from the cache, which never holds the hash
	user, err := h.users.GetUserByEmail(ctx, current.Email)
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(ctx, w, h.log, httpx.Unauthorized(msgUserUnavailable))
		return
	}
	if err != nil {
		httpx.WriteError(ctx, w, h.log, fmt.Errorf("reload user: %w", err))
		return
	}

	switch {
	case !h.hasher.Verify(req.CurrentPassword, user.PasswordHash):
		httpx.WriteError(ctx, w, h.log, httpx.Validation(msgWrongCurrentPassword))
		return
	case !validPassword(req.NewPassword):
		httpx.WriteError(ctx, w, h.log, httpx.Validation(msgNewPasswordTooShort))
		return
	case !passwordFits(req.NewPassword):
		httpx.WriteError(ctx, w, h.log, httpx.Validation(msgNewPasswordTooLong))
		return
	case req.NewPassword != req.ConfirmPassword:
		httpx.WriteError(ctx, w, h.log, httpx.Validation(msgNewPasswordMismatch))
		return
	}

	hash, err := h.hasher.Hash(req.NewPassword)
	if err != nil {
		httpx.WriteError(ctx, w, h.log, fmt.Errorf("hash password: %w", err))
		return
	}
	if err := h.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		httpx.WriteError(ctx, w, h.log, fmt.Errorf("update password: %w", err))
		return
	}

	h.log.Info(ctx, "password changed", "user_id", user.ID)
	httpx.WriteMessage(w, http.StatusOK, "Password changed successfully")
}
