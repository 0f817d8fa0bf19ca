// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/profile"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER USER COMMAND
// Creates a profile with signup defaults and opens the first session.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserCommand contains the data to register a new user.
type RegisterUserCommand struct {
	// Email is the login identity. Normalized to lower case.
	Email string

	// Password in plain text. Hashed before storage, never persisted as-is.
	Password string

	// DisplayName is optional. Falls back to the mailbox name.
	DisplayName string

	// CorrelationID for tracing.
	CorrelationID string
}

// MinPasswordLength is the shortest password accepted at signup.
const MinPasswordLength = 8

// Validate validates the command.
func (c RegisterUserCommand) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return fmt.Errorf("%w: register_user: email is required", shared.ErrValidation)
	}
	if len(c.Password) < MinPasswordLength {
		return fmt.Errorf("%w: register_user: password must be at least %d characters", shared.ErrValidation, MinPasswordLength)
	}
	return nil
}

// RegisterUserResult contains the result of registration.
type RegisterUserResult struct {
	// Profile is the newly created profile.
	Profile *profile.Profile

	// SessionToken is the opaque bearer token for the first session.
	SessionToken string

	// ExpiresAt is when the session token expires.
	ExpiresAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserHandler handles the RegisterUserCommand.
type RegisterUserHandler struct {
	profileRepo    profile.Repository
	sessions       profile.SessionStore
	eventPublisher shared.EventPublisher
	sessionTTL     time.Duration
	bcryptCost     int
}

// NewRegisterUserHandler creates a new RegisterUserHandler.
func NewRegisterUserHandler(
	profileRepo profile.Repository,
	sessions profile.SessionStore,
	eventPublisher shared.EventPublisher,
	sessionTTL time.Duration,
) *RegisterUserHandler {
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	return &RegisterUserHandler{
		profileRepo:    profileRepo,
		sessions:       sessions,
		eventPublisher: eventPublisher,
		sessionTTL:     sessionTTL,
		bcryptCost:     bcrypt.DefaultCost,
	}
}

// Handle executes the register user command.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*RegisterUserResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("register_user: validation failed: %w", err)
	}

	email, err := shared.NewEmail(cmd.Email)
	if err != nil {
		return nil, err
	}

	exists, err := h.profileRepo.ExistsByEmail(ctx, email.String())
	if err != nil {
		return nil, fmt.Errorf("register_user: failed to check email: %w", err)
	}
	if exists {
		return nil, shared.ErrProfileAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), h.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("register_user: failed to hash password: %w", err)
	}

	p, err := profile.NewProfile(profile.NewProfileParams{
		ID:           uuid.NewString(),
		Email:        email.String(),
		PasswordHash: string(hash),
		DisplayName:  cmd.DisplayName,
	})
	if err != nil {
		return nil, err
	}

	if err := h.profileRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("register_user: failed to create profile: %w", err)
	}

	session, err := h.openSession(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	event := shared.NewProfileRegisteredEvent(p.ID, p.Email, p.DisplayName, string(p.Role))
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	return &RegisterUserResult{
		Profile:      p,
		SessionToken: session.Token,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

func (h *RegisterUserHandler) openSession(ctx context.Context, userID string) (profile.Session, error) {
	now := time.Now().UTC()
	session := profile.Session{
		Token:     newSessionToken(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(h.sessionTTL),
	}
	if err := h.sessions.Save(ctx, session, h.sessionTTL); err != nil {
		return profile.Session{}, fmt.Errorf("register_user: failed to save session: %w", err)
	}
	return session, nil
}

// newSessionToken builds an opaque token. Two UUIDs give 256 bits of
// randomness without a custom encoder.
func newSessionToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
