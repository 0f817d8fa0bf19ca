package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/human-catalyst/catalyst-hub/internal/domain/billing"
	"github.com/human-catalyst/catalyst-hub/internal/domain/profile"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// BILLING CHECKOUT & PORTAL
// ══════════════════════════════════════════════════════════════════════════════

// BillingGateway defines the interface to the payment provider.
type BillingGateway interface {
	// CreateCustomer registers the user with the provider and returns
	// the provider customer ID.
	CreateCustomer(ctx context.Context, email, userID string) (string, error)

	// CreateCheckoutSession starts a subscription checkout and returns
	// the session for the user to complete. The tier picks the product,
	// the cadence picks the price.
	CreateCheckoutSession(ctx context.Context, customerID, userID string, tier billing.Tier, cadence billing.PlanType) (*CheckoutSessionData, error)

	// GetCheckoutSession fetches a completed session for confirmation.
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSessionData, error)

	// CreatePortalSession returns a URL to the provider's self-service
	// billing portal for an existing customer.
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
}

// CheckoutSessionData represents a provider checkout session. PlanTag is
// the tier the user bought and Cadence the billing interval, both echoed
// back from the session metadata.
type CheckoutSessionData struct {
	SessionID      string
	URL            string
	CustomerID     string
	SubscriptionID string
	PaymentStatus  string
	UserID         string
	PlanTag        string
	Cadence        string
}

// Paid reports whether the session's payment went through.
func (d *CheckoutSessionData) Paid() bool {
	return strings.EqualFold(d.PaymentStatus, "paid")
}

// ─────────────────────────────────────────────────────────────────────────────
// Ensure customer
// ─────────────────────────────────────────────────────────────────────────────

// EnsureCustomerCommand creates the provider customer for a profile if it
// does not have one yet.
type EnsureCustomerCommand struct {
	UserID string
}

// Validate checks the command.
func (c EnsureCustomerCommand) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("%w: user_id is required", shared.ErrValidation)
	}
	return nil
}

// EnsureCustomerResult contains the provider customer reference.
type EnsureCustomerResult struct {
	CustomerID string
	Created    bool
}

// EnsureCustomerHandler links profiles to provider customers.
type EnsureCustomerHandler struct {
	profileRepo profile.Repository
	gateway     BillingGateway
}

// NewEnsureCustomerHandler creates a new handler.
func NewEnsureCustomerHandler(profileRepo profile.Repository, gateway BillingGateway) *EnsureCustomerHandler {
	return &EnsureCustomerHandler{profileRepo: profileRepo, gateway: gateway}
}

// Handle creates the customer if missing. Idempotent: a profile that
// already has a customer just returns it.
func (h *EnsureCustomerHandler) Handle(ctx context.Context, cmd EnsureCustomerCommand) (*EnsureCustomerResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	p, err := h.profileRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("ensure customer: failed to load profile: %w", err)
	}

	if p.StripeCustomerID != "" {
		return &EnsureCustomerResult{CustomerID: p.StripeCustomerID}, nil
	}

	customerID, err := h.gateway.CreateCustomer(ctx, p.Email, p.ID)
	if err != nil {
		return nil, err
	}
	if err := p.AttachCustomer(customerID); err != nil {
		return nil, err
	}
	if err := h.profileRepo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("ensure customer: failed to save profile: %w", err)
	}

	return &EnsureCustomerResult{CustomerID: customerID, Created: true}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Start checkout
// ─────────────────────────────────────────────────────────────────────────────

// StartCheckoutCommand begins a subscription checkout for a user. Tier is
// the product being bought and Cadence how often it bills.
type StartCheckoutCommand struct {
	UserID  string
	Tier    billing.Tier
	Cadence billing.PlanType
}

// Validate checks the command.
func (c StartCheckoutCommand) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("%w: user_id is required", shared.ErrValidation)
	}
	if !c.Tier.IsValid() {
		return fmt.Errorf("%w: tier must be student or teacher", shared.ErrValidation)
	}
	if !c.Cadence.IsValid() {
		return fmt.Errorf("%w: plan must be monthly or yearly", shared.ErrValidation)
	}
	return nil
}

// StartCheckoutResult contains the redirect target.
type StartCheckoutResult struct {
	SessionID   string
	CheckoutURL string
}

// StartCheckoutHandler creates provider checkout sessions.
type StartCheckoutHandler struct {
	ensureCustomer *EnsureCustomerHandler
	gateway        BillingGateway
}

// NewStartCheckoutHandler creates a new handler.
func NewStartCheckoutHandler(ensureCustomer *EnsureCustomerHandler, gateway BillingGateway) *StartCheckoutHandler {
	return &StartCheckoutHandler{ensureCustomer: ensureCustomer, gateway: gateway}
}

// Handle ensures the customer exists and opens a checkout session.
func (h *StartCheckoutHandler) Handle(ctx context.Context, cmd StartCheckoutCommand) (*StartCheckoutResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	customer, err := h.ensureCustomer.Handle(ctx, EnsureCustomerCommand{UserID: cmd.UserID})
	if err != nil {
		return nil, err
	}

	session, err := h.gateway.CreateCheckoutSession(ctx, customer.CustomerID, cmd.UserID, cmd.Tier, cmd.Cadence)
	if err != nil {
		return nil, err
	}

	return &StartCheckoutResult{SessionID: session.SessionID, CheckoutURL: session.URL}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Confirm checkout
// ─────────────────────────────────────────────────────────────────────────────

// ConfirmCheckoutCommand applies a paid checkout session to the profile
// without waiting for the webhook. The return from the provider's success
// URL lands here, so the user sees their upgrade immediately. The webhook
// reconciler remains the source of truth and re-applying is harmless.
type ConfirmCheckoutCommand struct {
	UserID    string
	SessionID string
}

// Validate checks the command.
func (c ConfirmCheckoutCommand) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("%w: user_id is required", shared.ErrValidation)
	}
	if c.SessionID == "" {
		return fmt.Errorf("%w: session_id is required", shared.ErrValidation)
	}
	return nil
}

// ConfirmCheckoutResult reports the resulting profile state.
type ConfirmCheckoutResult struct {
	Paid    bool
	Role    string
	PlanTag string
}

// ConfirmCheckoutHandler verifies and applies checkout sessions.
type ConfirmCheckoutHandler struct {
	profileRepo profile.Repository
	subRepo     billing.Repository
	gateway     BillingGateway
	publisher   shared.EventPublisher
}

// NewConfirmCheckoutHandler creates a new handler.
func NewConfirmCheckoutHandler(
	profileRepo profile.Repository,
	subRepo billing.Repository,
	gateway BillingGateway,
	publisher shared.EventPublisher,
) *ConfirmCheckoutHandler {
	return &ConfirmCheckoutHandler{
		profileRepo: profileRepo,
		subRepo:     subRepo,
		gateway:     gateway,
		publisher:   publisher,
	}
}

// Handle fetches the session from the provider and, if it is paid and
// belongs to the caller, applies the subscription to the profile.
func (h *ConfirmCheckoutHandler) Handle(ctx context.Context, cmd ConfirmCheckoutCommand) (*ConfirmCheckoutResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	session, err := h.gateway.GetCheckoutSession(ctx, cmd.SessionID)
	if err != nil {
		return nil, err
	}
	// The session's own metadata decides ownership, never the caller's claim.
	if session.UserID != cmd.UserID {
		return nil, fmt.Errorf("%w: checkout session belongs to another user", shared.ErrForbidden)
	}
	if !session.Paid() {
		return &ConfirmCheckoutResult{Paid: false, PlanTag: session.PlanTag}, nil
	}

	p, err := h.profileRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("confirm checkout: failed to load profile: %w", err)
	}

	if err := p.AttachCustomer(session.CustomerID); err != nil {
		return nil, err
	}
	if err := p.ApplySubscription(session.SubscriptionID, profile.SubscriptionActive, session.PlanTag); err != nil {
		return nil, err
	}
	if err := h.profileRepo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("confirm checkout: failed to save profile: %w", err)
	}

	plan := cadencePlan(session.Cadence)
	if session.SubscriptionID != "" {
		if err := h.upsertSubscription(ctx, p.ID, session, plan); err != nil {
			return nil, err
		}
	}

	if h.publisher != nil {
		_ = h.publisher.Publish(shared.NewSubscriptionUpdatedEvent(
			p.ID, session.SubscriptionID, string(billing.StatusActive), string(plan), p.UpdatedAt,
		))
	}

	return &ConfirmCheckoutResult{Paid: true, Role: string(p.Role), PlanTag: session.PlanTag}, nil
}

func (h *ConfirmCheckoutHandler) upsertSubscription(ctx context.Context, userID string, session *CheckoutSessionData, plan billing.PlanType) error {
	sub, err := h.subRepo.GetByProviderID(ctx, session.SubscriptionID)
	if err != nil {
		sub, err = billing.NewSubscription(billing.NewSubscriptionParams{
			ID:                   uuid.NewString(),
			UserID:               userID,
			StripeSubscriptionID: session.SubscriptionID,
			StripeCustomerID:     session.CustomerID,
			Status:               billing.StatusActive,
			PlanType:             plan,
		})
		if err != nil {
			return err
		}
	} else if err := sub.Sync(billing.StatusActive, plan, sub.CurrentPeriodEnd); err != nil {
		return err
	}
	return h.subRepo.Upsert(ctx, sub)
}

// ─────────────────────────────────────────────────────────────────────────────
// Billing portal
// ─────────────────────────────────────────────────────────────────────────────

// OpenPortalCommand opens the provider's self-service billing portal.
type OpenPortalCommand struct {
	UserID string
}

// Validate checks the command.
func (c OpenPortalCommand) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("%w: user_id is required", shared.ErrValidation)
	}
	return nil
}

// OpenPortalResult contains the redirect target.
type OpenPortalResult struct {
	PortalURL string
}

// OpenPortalHandler creates billing portal sessions.
type OpenPortalHandler struct {
	profileRepo profile.Repository
	gateway     BillingGateway
}

// NewOpenPortalHandler creates a new handler.
func NewOpenPortalHandler(profileRepo profile.Repository, gateway BillingGateway) *OpenPortalHandler {
	return &OpenPortalHandler{profileRepo: profileRepo, gateway: gateway}
}

// Handle returns a portal URL. Profiles that never checked out have no
// customer and cannot open the portal.
func (h *OpenPortalHandler) Handle(ctx context.Context, cmd OpenPortalCommand) (*OpenPortalResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	p, err := h.profileRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("open portal: failed to load profile: %w", err)
	}
	if p.StripeCustomerID == "" {
		return nil, profile.ErrNoBillingCustomer
	}

	url, err := h.gateway.CreatePortalSession(ctx, p.StripeCustomerID)
	if err != nil {
		return nil, err
	}
	return &OpenPortalResult{PortalURL: url}, nil
}
