package handlers

import (
	"net/http"

	"github.com/isdelr/expense-tracker-be/internal/apperr"
	"github.com/isdelr/expense-tracker-be/internal/auth"
	"github.com/isdelr/expense-tracker-be/internal/services"
	"github.com/rs/zerolog/hlog"
)

// UserHandler handles HTTP requests for accounts and sessions.
type UserHandler struct {
	service services.UserServiceProvider
	tokens  *auth.TokenIssuer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, tokens *auth.TokenIssuer) *UserHandler {
	return &UserHandler{service: service, tokens: tokens}
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput
	if err := decodeJSON(w, r, &input); err != nil {
		WriteError(w, r, err)
		return
	}

	user, err := h.service.Register(r.Context(), input)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully.",
		"user":    user.Profile(),
	})
}

// Login handles user authentication and token issuance.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput
	if err := decodeJSON(w, r, &input); err != nil {
		WriteError(w, r, err)
		return
	}

	user, err := h.service.Authenticate(r.Context(), input)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		WriteError(w, r, apperr.Internal(err))
		return
	}

	hlog.FromRequest(r).Info().Int64("user_id", user.ID).Msg("User logged in")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Login successful.",
		"user":      user.Profile(),
		"token":     token,
		"expiresIn": int64(h.tokens.TTL().Seconds()),
	})
}

// Profile returns the authenticated user.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	user, err := h.service.GetUserByID(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Profile())
}

// ChangePassword handles changing the authenticated user's password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var input services.ChangePasswordInput
	if err := decodeJSON(w, r, &input); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), id, input); err != nil {
		WriteError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password updated successfully.")
}
