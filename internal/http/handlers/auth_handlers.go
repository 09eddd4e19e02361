package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"stationsync/internal/auth"
	"stationsync/internal/models"
	"stationsync/internal/session"
	"stationsync/internal/store"
)

// AuthHandlers covers registration, login, session info and password reset.
type AuthHandlers struct {
	auth     *auth.Service
	store    store.Store
	sessions *session.Tracker
	logger   *zap.Logger
}

// NewAuthHandlers returns the handler set.
func NewAuthHandlers(authSvc *auth.Service, st store.Store, sessions *session.Tracker, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{auth: authSvc, store: st, sessions: sessions, logger: logger}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"createdAt"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt}
}

// Register handles POST /api/register.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			writeError(w, http.StatusConflict, "username already exists")
			return
		}
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// Login handles POST /api/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.sessions.Save(r.Context(), session.ActiveSession{
		Username:  user.Username,
		LoginAt:   models.NowISO(),
		UserAgent: r.UserAgent(),
	}); err != nil {
		h.logger.Warn("failed to track session", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  toUserResponse(user),
	})
}

// Users handles GET /api/users.
func (h *AuthHandlers) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		writeStoreError(w, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// Session handles GET /api/session, describing the authenticated caller.
func (h *AuthHandlers) Session(w http.ResponseWriter, r *http.Request) {
	username, _ := UsernameFromContext(r.Context())

	resp := map[string]interface{}{"username": username}
	if active, err := h.sessions.Get(r.Context(), username); err == nil && active != nil {
		resp["loginAt"] = active.LoginAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/logout, dropping the tracked session.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	username, _ := UsernameFromContext(r.Context())
	if err := h.sessions.Delete(r.Context(), username); err != nil {
		h.logger.Warn("failed to drop session", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// ForgotPassword handles POST /api/forgot-password. The token is returned in
// the response; there is no mail delivery.
func (h *AuthHandlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.auth.IssueResetToken(r.Context(), req.Username)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"resetToken": token})
}

// ResetPassword handles POST /api/reset-password.
func (h *AuthHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrResetTokenInvalid) {
			writeError(w, http.StatusBadRequest, "invalid or expired reset token")
			return
		}
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

type contextKey string

const usernameKey contextKey = "username"

// WithUsername stores the authenticated username in the request context.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

// UsernameFromContext retrieves the authenticated username.
func UsernameFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(usernameKey)
	if val == nil {
		return "", false
	}
	name, ok := val.(string)
	return name, ok
}
