package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/isdelr/expense-tracker-be/internal/apperr"
	"github.com/isdelr/expense-tracker-be/internal/auth"
	"github.com/rs/zerolog/hlog"
)

// Request bodies larger than this are rejected.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// WriteError maps err to its status code and writes {"message": ...}.
// Internal causes are logged, never sent.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.StatusCode(err)
	logger := hlog.FromRequest(r)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}
	writeMessage(w, status, apperr.PublicMessage(err))
}

// RejectToken answers a request the auth middleware refused.
func RejectToken(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, auth.ErrMissingToken) {
		WriteError(w, r, apperr.Unauthenticated("Access Denied. No token provided."))
		return
	}
	WriteError(w, r, apperr.Forbidden("Invalid or expired token."))
}

// NotFound answers requests for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, "Route not found: "+r.URL.Path)
}

// MethodNotAllowed answers requests with an unsupported method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusMethodNotAllowed, "Method "+r.Method+" not allowed on "+r.URL.Path)
}

// decodeJSON reads a JSON body into dst. An empty, oversized or malformed
// body is a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("Request body is required.")
		}
		return apperr.Validation("Invalid request body.")
	}
	return nil
}

// userID returns the authenticated caller. Routes behind the auth middleware
// always have one.
func userID(r *http.Request) (int64, error) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		return 0, apperr.Unauthenticated("Access Denied. No token provided.")
	}
	return principal.UserID, nil
}
