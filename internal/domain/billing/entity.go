// Package billing contains the subscription model and the reconciliation
// contract between the billing provider and Catalyst Hub profiles.
package billing

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// PlanType describes the billing cadence of a subscription.
type PlanType string

const (
	// PlanMonthly - billed every month. The default when the provider
	// reports an unknown interval.
	PlanMonthly PlanType = "monthly"
	// PlanYearly - billed once a year.
	PlanYearly PlanType = "yearly"
)

// IsValid checks that the plan type is one of the known values.
func (p PlanType) IsValid() bool {
	return p == PlanMonthly || p == PlanYearly
}

// Tier identifies which product a subscription buys, independent of the
// billing cadence. The tier tag rides in checkout session metadata and
// decides the role the reconciler grants; the cadence only decides the
// price and the Subscription row's plan type.
type Tier string

const (
	// TierStudent - the standard learner subscription.
	TierStudent Tier = "student"
	// TierTeacher - the content-authoring subscription.
	TierTeacher Tier = "teacher"
)

// IsValid checks that the tier is one of the known values.
func (t Tier) IsValid() bool {
	return t == TierStudent || t == TierTeacher
}

// NormalizeTier maps a raw tier tag onto a Tier. An empty tag means the
// caller did not pick one and gets the student tier.
func NormalizeTier(raw string) Tier {
	tag := Tier(strings.ToLower(strings.TrimSpace(raw)))
	if tag == "" {
		return TierStudent
	}
	return tag
}

// PlanTypeFromInterval maps a provider price interval to a plan type.
// Anything other than "year" falls back to monthly.
func PlanTypeFromInterval(interval string) PlanType {
	if interval == "year" {
		return PlanYearly
	}
	return PlanMonthly
}

// Status mirrors the provider's subscription lifecycle states we care about.
type Status string

const (
	StatusActive    Status = "active"
	StatusPastDue   Status = "past_due"
	StatusCancelled Status = "cancelled"
)

// IsValid checks that the status is one of the known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPastDue, StatusCancelled:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: SUBSCRIPTION
// ══════════════════════════════════════════════════════════════════════════════

// Subscription is our local record of a provider subscription,
// kept in sync through webhook reconciliation.
type Subscription struct {
	// ID - internal unique identifier (UUID in string form).
	ID string

	// UserID - the profile this subscription belongs to.
	UserID string

	// StripeSubscriptionID - the provider's subscription reference.
	StripeSubscriptionID string

	// StripeCustomerID - the provider's customer reference.
	StripeCustomerID string

	// Status - current lifecycle state.
	Status Status

	// PlanType - billing cadence.
	PlanType PlanType

	// CurrentPeriodEnd - when the paid period runs out.
	CurrentPeriodEnd time.Time

	// CreatedAt - when we first recorded the subscription.
	CreatedAt time.Time

	// UpdatedAt - last reconciliation write.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrSubscriptionNotFound - no local record of the subscription.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrInvalidStatus - unknown lifecycle state.
	ErrInvalidStatus = errors.New("invalid subscription status")

	// ErrMissingReference - subscription without provider references.
	ErrMissingReference = errors.New("provider subscription and customer references are required")

	// ErrEventAlreadyProcessed - webhook event handled before.
	ErrEventAlreadyProcessed = errors.New("billing event already processed")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewSubscriptionParams contains the inputs for recording a subscription.
type NewSubscriptionParams struct {
	ID                   string
	UserID               string
	StripeSubscriptionID string
	StripeCustomerID     string
	Status               Status
	PlanType             PlanType
	CurrentPeriodEnd     time.Time
}

// NewSubscription creates a local subscription record.
func NewSubscription(params NewSubscriptionParams) (*Subscription, error) {
	if params.ID == "" {
		return nil, errors.New("subscription id is required")
	}
	if params.UserID == "" {
		return nil, errors.New("user id is required")
	}
	if params.StripeSubscriptionID == "" || params.StripeCustomerID == "" {
		return nil, ErrMissingReference
	}
	if !params.Status.IsValid() {
		return nil, ErrInvalidStatus
	}

	planType := params.PlanType
	if !planType.IsValid() {
		planType = PlanMonthly
	}

	now := time.Now().UTC()

	return &Subscription{
		ID:                   params.ID,
		UserID:               params.UserID,
		StripeSubscriptionID: params.StripeSubscriptionID,
		StripeCustomerID:     params.StripeCustomerID,
		Status:               params.Status,
		PlanType:             planType,
		CurrentPeriodEnd:     params.CurrentPeriodEnd,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// Sync applies the provider's current view of the subscription.
func (s *Subscription) Sync(status Status, planType PlanType, periodEnd time.Time) error {
	if !status.IsValid() {
		return ErrInvalidStatus
	}
	s.Status = status
	if planType.IsValid() {
		s.PlanType = planType
	}
	if !periodEnd.IsZero() {
		s.CurrentPeriodEnd = periodEnd
	}
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel marks the subscription as ended at the provider.
func (s *Subscription) Cancel() {
	s.Status = StatusCancelled
	s.UpdatedAt = time.Now().UTC()
}

// IsCurrent returns true while the paid period has not lapsed.
func (s *Subscription) IsCurrent(now time.Time) bool {
	return s.Status == StatusActive && now.Before(s.CurrentPeriodEnd)
}

// String returns a log-friendly representation.
func (s *Subscription) String() string {
	return fmt.Sprintf(
		"Subscription{ID: %s, User: %s, Status: %s, Plan: %s}",
		s.ID, s.UserID, s.Status, s.PlanType,
	)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROVIDER VIEW
// ══════════════════════════════════════════════════════════════════════════════

// ProviderSubscription is the provider's authoritative view of a
// subscription, fetched when a webhook payload carries only its ID.
type ProviderSubscription struct {
	ID               string
	CustomerID       string
	Status           string
	PriceInterval    string
	CurrentPeriodEnd time.Time
}

// PlanType derives our plan type from the provider's price interval.
func (p ProviderSubscription) PlanType() PlanType {
	return PlanTypeFromInterval(p.PriceInterval)
}
