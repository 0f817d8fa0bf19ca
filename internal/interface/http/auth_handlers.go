package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/application/command"
	"github.com/human-catalyst/catalyst-hub/internal/application/query"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
	"github.com/human-catalyst/catalyst-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// userIDContextKey carries the authenticated user ID through the request.
const userIDContextKey contextKey = "user_id"

// authenticated wraps a handler with bearer-token session authentication.
// Each request that passes extends the session TTL (sliding expiry).
func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing bearer token")
			return
		}

		session, err := s.deps.Sessions.Get(r.Context(), token)
		if err != nil {
			if !errors.Is(err, shared.ErrSessionNotFound) {
				s.logger.Error("session lookup failed", logger.Err(err))
			}
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired session")
			return
		}
		if session.IsExpired(time.Now()) {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired session")
			return
		}

		if s.config.SessionTTL > 0 {
			if err := s.deps.Sessions.Touch(r.Context(), token, s.config.SessionTTL); err != nil {
				// Renewal failure is not fatal; the session is still valid.
				s.logger.Warn("session touch failed", logger.Err(err))
			}
		}

		ctx := context.WithValue(r.Context(), userIDContextKey, session.UserID)
		next(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}

// userIDFrom returns the authenticated user ID set by the middleware.
func userIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(userIDContextKey).(string)
	return id
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// registerRequest is the POST /api/v1/auth/register payload.
type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// sessionResponse is returned by register and login.
type sessionResponse struct {
	Profile      *query.ProfileDTO `json:"profile"`
	SessionToken string            `json:"session_token"`
	ExpiresAt    time.Time         `json:"expires_at"`
}

// handleRegister handles POST /api/v1/auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.RegisterUserCommand{
		Email:         req.Email,
		Password:      req.Password,
		DisplayName:   req.DisplayName,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.RegisterUserHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "register user")
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		Profile:      query.NewProfileDTO(result.Profile),
		SessionToken: result.SessionToken,
		ExpiresAt:    result.ExpiresAt,
	})
}

// loginRequest is the POST /api/v1/auth/login payload.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin handles POST /api/v1/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.AuthenticateCommand{
		Email:    req.Email,
		Password: req.Password,
	}

	result, err := s.deps.AuthenticateHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "authenticate")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Profile:      query.NewProfileDTO(result.Profile),
		SessionToken: result.SessionToken,
		ExpiresAt:    result.ExpiresAt,
	})
}

// handleLogout handles POST /api/v1/auth/logout
//
// Revokes the bearer session. Always answers 200 so a retried logout with an
// already-dead token does not surface as an error.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing bearer token")
		return
	}

	if err := s.deps.LogoutHandler.Handle(r.Context(), command.LogoutCommand{Token: token}); err != nil {
		if !errors.Is(err, shared.ErrSessionNotFound) {
			s.writeDomainError(w, r, err, "logout")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
