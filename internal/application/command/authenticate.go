package command

import (
	"context"
	"fmt"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/profile"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"

	"golang.org/x/crypto/bcrypt"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATE COMMAND
// Verifies credentials and opens a session. A wrong email and a wrong
// password both surface as ErrInvalidCredentials so callers cannot probe
// which accounts exist.
// ══════════════════════════════════════════════════════════════════════════════

// AuthenticateCommand contains login credentials.
type AuthenticateCommand struct {
	// Email is the login identity.
	Email string

	// Password in plain text.
	Password string
}

// Validate validates the command.
func (c AuthenticateCommand) Validate() error {
	if c.Email == "" {
		return fmt.Errorf("%w: authenticate: email is required", shared.ErrValidation)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: authenticate: password is required", shared.ErrValidation)
	}
	return nil
}

// AuthenticateResult contains the opened session.
type AuthenticateResult struct {
	// Profile is the authenticated profile.
	Profile *profile.Profile

	// SessionToken is the opaque bearer token.
	SessionToken string

	// ExpiresAt is when the session token expires.
	ExpiresAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AuthenticateHandler handles the AuthenticateCommand.
type AuthenticateHandler struct {
	profileRepo profile.Repository
	sessions    profile.SessionStore
	sessionTTL  time.Duration
}

// NewAuthenticateHandler creates a new AuthenticateHandler.
func NewAuthenticateHandler(
	profileRepo profile.Repository,
	sessions profile.SessionStore,
	sessionTTL time.Duration,
) *AuthenticateHandler {
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	return &AuthenticateHandler{
		profileRepo: profileRepo,
		sessions:    sessions,
		sessionTTL:  sessionTTL,
	}
}

// Handle executes the authenticate command.
func (h *AuthenticateHandler) Handle(ctx context.Context, cmd AuthenticateCommand) (*AuthenticateResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("authenticate: validation failed: %w", err)
	}

	email, err := shared.NewEmail(cmd.Email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}

	p, err := h.profileRepo.GetByEmail(ctx, email.String())
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: failed to load profile: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(cmd.Password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	session := profile.Session{
		Token:     newSessionToken(),
		UserID:    p.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(h.sessionTTL),
	}
	if err := h.sessions.Save(ctx, session, h.sessionTTL); err != nil {
		return nil, fmt.Errorf("authenticate: failed to save session: %w", err)
	}

	return &AuthenticateResult{
		Profile:      p,
		SessionToken: session.Token,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LOGOUT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// LogoutCommand revokes a single session.
type LogoutCommand struct {
	// Token is the session to revoke.
	Token string
}

// LogoutHandler handles the LogoutCommand.
type LogoutHandler struct {
	sessions profile.SessionStore
}

// NewLogoutHandler creates a new LogoutHandler.
func NewLogoutHandler(sessions profile.SessionStore) *LogoutHandler {
	return &LogoutHandler{sessions: sessions}
}

// Handle executes the logout command. Revoking an unknown token is not
// an error.
func (h *LogoutHandler) Handle(ctx context.Context, cmd LogoutCommand) error {
	if cmd.Token == "" {
		return fmt.Errorf("%w: logout: token is required", shared.ErrValidation)
	}
	if err := h.sessions.Delete(ctx, cmd.Token); err != nil && !shared.IsNotFound(err) {
		return fmt.Errorf("logout: failed to delete session: %w", err)
	}
	return nil
}
