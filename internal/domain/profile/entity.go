// Package profile contains the core user profile model of Catalyst Hub.
// This is the heart of the business logic - no external dependencies here.
package profile

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Role determines what a user can access on the platform.
type Role string

const (
	// RoleFree - signed up but has no paid subscription.
	RoleFree Role = "Free"
	// RoleStudent - paying subscriber on the student plan.
	RoleStudent Role = "Student"
	// RoleTeacher - paying subscriber on the teacher plan.
	RoleTeacher Role = "Teacher"
	// RoleAdmin - platform staff, assigned manually, never by billing.
	RoleAdmin Role = "Admin"
)

// IsValid checks that the role is one of the known values.
func (r Role) IsValid() bool {
	switch r {
	case RoleFree, RoleStudent, RoleTeacher, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsPaid returns true for roles that require an active subscription.
func (r Role) IsPaid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// CanAccessPremium returns true if the role unlocks premium content.
func (r Role) CanAccessPremium() bool {
	return r.IsPaid() || r == RoleAdmin
}

// CanManageContent returns true if the role can author platform content.
func (r Role) CanManageContent() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// CanAdminister returns true for staff roles only.
func (r Role) CanAdminister() bool {
	return r == RoleAdmin
}

// RoleForPlan maps a checkout plan tag to the role it grants.
// Anything other than the teacher tag grants the student role.
func RoleForPlan(planTag string) Role {
	if strings.EqualFold(planTag, "teacher") {
		return RoleTeacher
	}
	return RoleStudent
}

// SubscriptionStatus mirrors the billing provider's view of the subscription.
type SubscriptionStatus string

const (
	// SubscriptionNone - no subscription was ever started.
	SubscriptionNone SubscriptionStatus = "none"
	// SubscriptionActive - paid and current.
	SubscriptionActive SubscriptionStatus = "active"
	// SubscriptionPastDue - a renewal payment failed, access grace period.
	SubscriptionPastDue SubscriptionStatus = "past_due"
	// SubscriptionCancelled - subscription ended at the provider.
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// IsValid checks that the status is one of the known values.
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionNone, SubscriptionActive, SubscriptionPastDue, SubscriptionCancelled:
		return true
	default:
		return false
	}
}

// GrantsAccess returns true while we honor the subscription.
// Past due keeps access until the provider cancels.
func (s SubscriptionStatus) GrantsAccess() bool {
	return s == SubscriptionActive || s == SubscriptionPastDue
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// Profile is the central entity of the system, one row per registered user.
type Profile struct {
	// ID - internal unique identifier (UUID in string form).
	ID string

	// Email - login identity, unique, stored lowercase.
	Email string

	// PasswordHash - bcrypt hash of the password. Never exposed over HTTP.
	PasswordHash string

	// DisplayName - name shown on the dashboard and in the member directory.
	DisplayName string

	// AvatarURL - optional profile picture.
	AvatarURL string

	// Role - access tier, driven by billing reconciliation.
	Role Role

	// Level - current level, derived from TotalXPEarned and the levels table.
	Level int

	// CurrentXP - XP accumulated toward the next level.
	CurrentXP int

	// TotalXPEarned - lifetime XP, never decreases.
	TotalXPEarned int

	// StripeCustomerID - billing customer reference, empty until first checkout.
	StripeCustomerID string

	// SubscriptionID - current subscription reference, empty when none.
	SubscriptionID string

	// SubscriptionStatus - mirror of the provider's subscription state.
	SubscriptionStatus SubscriptionStatus

	// CreatedAt - when the account was created.
	CreatedAt time.Time

	// UpdatedAt - last modification time.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidEmail - malformed email address.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidDisplayName - display name out of bounds.
	ErrInvalidDisplayName = errors.New("invalid display name: must be 1-100 chars")

	// ErrInvalidRole - unknown role value.
	ErrInvalidRole = errors.New("invalid role")

	// ErrInvalidSubscriptionStatus - unknown subscription status value.
	ErrInvalidSubscriptionStatus = errors.New("invalid subscription status")

	// ErrMissingPasswordHash - profile created without a password hash.
	ErrMissingPasswordHash = errors.New("password hash is required")

	// ErrNoBillingCustomer - operation requires a Stripe customer.
	ErrNoBillingCustomer = errors.New("profile has no billing customer")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewProfileParams contains the inputs for creating a profile.
type NewProfileParams struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
}

// NewProfile creates a profile with signup defaults: free role,
// level 1, zero XP, no subscription.
func NewProfile(params NewProfileParams) (*Profile, error) {
	if params.ID == "" {
		return nil, errors.New("profile id is required")
	}

	email := strings.ToLower(strings.TrimSpace(params.Email))
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	if params.PasswordHash == "" {
		return nil, ErrMissingPasswordHash
	}

	displayName := strings.TrimSpace(params.DisplayName)
	if displayName == "" {
		// Fall back to the mailbox name, same as the web signup form.
		displayName = email[:strings.Index(email, "@")]
	}
	if len(displayName) > 100 {
		return nil, ErrInvalidDisplayName
	}

	now := time.Now().UTC()

	return &Profile{
		ID:                 params.ID,
		Email:              email,
		PasswordHash:       params.PasswordHash,
		DisplayName:        displayName,
		Role:               RoleFree,
		Level:              1,
		CurrentXP:          0,
		TotalXPEarned:      0,
		SubscriptionStatus: SubscriptionNone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func isValidEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return len(email) <= 254 && strings.Contains(email[at+1:], ".")
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// AttachCustomer records the billing customer reference. Idempotent:
// attaching the same customer twice is a no-op.
func (p *Profile) AttachCustomer(customerID string) error {
	if customerID == "" {
		return errors.New("customer id is required")
	}
	if p.StripeCustomerID == customerID {
		return nil
	}
	p.StripeCustomerID = customerID
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// ApplySubscription updates the profile after a paid checkout. The plan
// tag from the session metadata decides the role. Admin role is never
// downgraded by billing.
func (p *Profile) ApplySubscription(subscriptionID string, status SubscriptionStatus, planTag string) error {
	if !status.IsValid() {
		return ErrInvalidSubscriptionStatus
	}

	p.SubscriptionID = subscriptionID
	p.SubscriptionStatus = status

	if p.Role != RoleAdmin {
		if status.GrantsAccess() {
			p.Role = RoleForPlan(planTag)
		} else {
			p.Role = RoleFree
		}
	}

	p.UpdatedAt = time.Now().UTC()
	return nil
}

// SyncSubscriptionState mirrors a provider subscription update onto the
// profile. Only the subscription reference and status move. The role was
// decided at checkout and a renewal must not recompute it: the provider
// reports the billing cadence there, not the purchased tier.
func (p *Profile) SyncSubscriptionState(subscriptionID string, status SubscriptionStatus) error {
	if !status.IsValid() {
		return ErrInvalidSubscriptionStatus
	}

	if subscriptionID != "" {
		p.SubscriptionID = subscriptionID
	}
	p.SubscriptionStatus = status
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// CancelSubscription drops the user back to the free tier. The customer
// reference is kept so a future resubscribe reuses it.
func (p *Profile) CancelSubscription() {
	p.SubscriptionID = ""
	p.SubscriptionStatus = SubscriptionCancelled
	if p.Role != RoleAdmin {
		p.Role = RoleFree
	}
	p.UpdatedAt = time.Now().UTC()
}

// MarkPastDue records a failed renewal payment without revoking access.
func (p *Profile) MarkPastDue() {
	p.SubscriptionStatus = SubscriptionPastDue
	p.UpdatedAt = time.Now().UTC()
}

// RecoverPayment clears a past-due flag after a successful renewal.
// The role is untouched.
func (p *Profile) RecoverPayment() {
	p.SubscriptionStatus = SubscriptionActive
	p.UpdatedAt = time.Now().UTC()
}

// AwardXP adds XP to both the level counter and the lifetime total.
// Returns an error for non-positive amounts.
func (p *Profile) AwardXP(amount int) error {
	if amount <= 0 {
		return errors.New("xp amount must be positive")
	}
	p.CurrentXP += amount
	p.TotalXPEarned += amount
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// SetLevel records a recomputed level. Levels only ever move up.
func (p *Profile) SetLevel(level int) {
	if level > p.Level {
		p.Level = level
		p.UpdatedAt = time.Now().UTC()
	}
}

// UpdateDetails changes the editable profile fields.
func (p *Profile) UpdateDetails(displayName, avatarURL string) error {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" || len(displayName) > 100 {
		return ErrInvalidDisplayName
	}
	p.DisplayName = displayName
	p.AvatarURL = avatarURL
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// HasActiveAccess returns true if the user currently gets paid features.
func (p *Profile) HasActiveAccess() bool {
	return p.Role == RoleAdmin || (p.Role.IsPaid() && p.SubscriptionStatus.GrantsAccess())
}

// String returns a log-friendly representation. The password hash and
// billing identifiers are deliberately left out.
func (p *Profile) String() string {
	return fmt.Sprintf(
		"Profile{ID: %s, Email: %s, Role: %s, Level: %d, XP: %d}",
		p.ID, p.Email, p.Role, p.Level, p.TotalXPEarned,
	)
}

// Clone creates a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}

	clone := *p
	return &clone
}
