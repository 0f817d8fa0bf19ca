package command

import (
	"context"
	"testing"

	"github.com/human-catalyst/catalyst-hub/internal/domain/billing"
	"github.com/human-catalyst/catalyst-hub/internal/domain/profile"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBillingGateway struct {
	customersCreated int
	session          *CheckoutSessionData
	lastTier         billing.Tier
	lastCadence      billing.PlanType
}

func (g *fakeBillingGateway) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	g.customersCreated++
	return "cus_new", nil
}

func (g *fakeBillingGateway) CreateCheckoutSession(ctx context.Context, customerID, userID string, tier billing.Tier, cadence billing.PlanType) (*CheckoutSessionData, error) {
	g.lastTier = tier
	g.lastCadence = cadence
	return &CheckoutSessionData{
		SessionID:  "cs_123",
		URL:        "https://checkout.example.com/cs_123",
		CustomerID: customerID,
		UserID:     userID,
		PlanTag:    string(tier),
		Cadence:    string(cadence),
	}, nil
}

func (g *fakeBillingGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSessionData, error) {
	return g.session, nil
}

func (g *fakeBillingGateway) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	return "https://portal.example.com/" + customerID, nil
}

func TestEnsureCustomer_CreatesOnce(t *testing.T) {
	p := newTestProfile(t, "user-1", "alex@example.com")
	profiles := newFakeProfileRepo(p)
	gateway := &fakeBillingGateway{}
	h := NewEnsureCustomerHandler(profiles, gateway)

	first, err := h.Handle(context.Background(), EnsureCustomerCommand{UserID: "user-1"})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "cus_new", first.CustomerID)

	second, err := h.Handle(context.Background(), EnsureCustomerCommand{UserID: "user-1"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, "cus_new", second.CustomerID)
	assert.Equal(t, 1, gateway.customersCreated)
}

func TestStartCheckout_ReturnsSessionURL(t *testing.T) {
	p := newTestProfile(t, "user-1", "alex@example.com")
	profiles := newFakeProfileRepo(p)
	gateway := &fakeBillingGateway{}
	h := NewStartCheckoutHandler(NewEnsureCustomerHandler(profiles, gateway), gateway)

	result, err := h.Handle(context.Background(), StartCheckoutCommand{UserID: "user-1", Tier: billing.TierStudent, Cadence: billing.PlanMonthly})
	require.NoError(t, err)
	assert.Equal(t, "cs_123", result.SessionID)
	assert.Equal(t, "https://checkout.example.com/cs_123", result.CheckoutURL)
}

func TestStartCheckout_CarriesTeacherTier(t *testing.T) {
	p := newTestProfile(t, "user-1", "alex@example.com")
	profiles := newFakeProfileRepo(p)
	gateway := &fakeBillingGateway{}
	h := NewStartCheckoutHandler(NewEnsureCustomerHandler(profiles, gateway), gateway)

	_, err := h.Handle(context.Background(), StartCheckoutCommand{UserID: "user-1", Tier: billing.TierTeacher, Cadence: billing.PlanYearly})
	require.NoError(t, err)
	assert.Equal(t, billing.TierTeacher, gateway.lastTier)
	assert.Equal(t, billing.PlanYearly, gateway.lastCadence)
}

func TestStartCheckout_RejectsUnknownPlan(t *testing.T) {
	h := NewStartCheckoutHandler(nil, nil)
	_, err := h.Handle(context.Background(), StartCheckoutCommand{UserID: "user-1", Tier: billing.TierStudent, Cadence: "weekly"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestStartCheckout_RejectsUnknownTier(t *testing.T) {
	h := NewStartCheckoutHandler(nil, nil)
	_, err := h.Handle(context.Background(), StartCheckoutCommand{UserID: "user-1", Tier: "platinum", Cadence: billing.PlanMonthly})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestConfirmCheckout_AppliesPaidSession(t *testing.T) {
	p := newTestProfile(t, "user-1", "alex@example.com")
	profiles := newFakeProfileRepo(p)
	subs := newFakeSubscriptionRepo()
	gateway := &fakeBillingGateway{session: &CheckoutSessionData{
		SessionID:      "cs_123",
		CustomerID:     "cus_123",
		SubscriptionID: "sub_456",
		PaymentStatus:  "paid",
		UserID:         "user-1",
		PlanTag:        "student",
		Cadence:        "yearly",
	}}
	h := NewConfirmCheckoutHandler(profiles, subs, gateway, &capturingPublisher{})

	result, err := h.Handle(context.Background(), ConfirmCheckoutCommand{UserID: "user-1", SessionID: "cs_123"})
	require.NoError(t, err)
	assert.True(t, result.Paid)
	assert.Equal(t, string(profile.RoleStudent), result.Role)

	got, err := profiles.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "cus_123", got.StripeCustomerID)
	assert.Equal(t, profile.SubscriptionActive, got.SubscriptionStatus)

	sub, err := subs.GetByProviderID(context.Background(), "sub_456")
	require.NoError(t, err)
	assert.Equal(t, billing.PlanYearly, sub.PlanType)
}

func TestConfirmCheckout_TeacherSessionGrantsTeacherRole(t *testing.T) {
	p := newTestProfile(t, "user-1", "alex@example.com")
	profiles := newFakeProfileRepo(p)
	subs := newFakeSubscriptionRepo()
	gateway := &fakeBillingGateway{session: &CheckoutSessionData{
		SessionID:      "cs_123",
		CustomerID:     "cus_123",
		SubscriptionID: "sub_456",
		PaymentStatus:  "paid",
		UserID:         "user-1",
		PlanTag:        "teacher",
		Cadence:        "monthly",
	}}
	h := NewConfirmCheckoutHandler(profiles, subs, gateway, &capturingPublisher{})

	result, err := h.Handle(context.Background(), ConfirmCheckoutCommand{UserID: "user-1", SessionID: "cs_123"})
	require.NoError(t, err)
	assert.True(t, result.Paid)
	assert.Equal(t, string(profile.RoleTeacher), result.Role)
	assert.Equal(t, "teacher", result.PlanTag)

	// The subscription row records the cadence, not the tier.
	sub, err := subs.GetByProviderID(context.Background(), "sub_456")
	require.NoError(t, err)
	assert.Equal(t, billing.PlanMonthly, sub.PlanType)
}

func TestConfirmCheckout_RejectsForeignSession(t *testing.T) {
	p := newTestProfile(t, "user-1", "alex@example.com")
	profiles := newFakeProfileRepo(p)
	gateway := &fakeBillingGateway{session: &CheckoutSessionData{
		SessionID:     "cs_123",
		PaymentStatus: "paid",
		UserID:        "someone-else",
	}}
	h := NewConfirmCheckoutHandler(profiles, newFakeSubscriptionRepo(), gateway, nil)

	_, err := h.Handle(context.Background(), ConfirmCheckoutCommand{UserID: "user-1", SessionID: "cs_123"})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestConfirmCheckout_UnpaidSessionChangesNothing(t *testing.T) {
	p := newTestProfile(t, "user-1", "alex@example.com")
	profiles := newFakeProfileRepo(p)
	gateway := &fakeBillingGateway{session: &CheckoutSessionData{
		SessionID:     "cs_123",
		PaymentStatus: "unpaid",
		UserID:        "user-1",
	}}
	h := NewConfirmCheckoutHandler(profiles, newFakeSubscriptionRepo(), gateway, nil)

	result, err := h.Handle(context.Background(), ConfirmCheckoutCommand{UserID: "user-1", SessionID: "cs_123"})
	require.NoError(t, err)
	assert.False(t, result.Paid)

	got, err := profiles.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, profile.RoleFree, got.Role)
	assert.Empty(t, got.StripeCustomerID)
}

func TestOpenPortal_RequiresCustomer(t *testing.T) {
	p := newTestProfile(t, "user-1", "alex@example.com")
	profiles := newFakeProfileRepo(p)
	h := NewOpenPortalHandler(profiles, &fakeBillingGateway{})

	_, err := h.Handle(context.Background(), OpenPortalCommand{UserID: "user-1"})
	assert.ErrorIs(t, err, profile.ErrNoBillingCustomer)
}

func TestOpenPortal_ReturnsURL(t *testing.T) {
	p := newTestProfile(t, "user-1", "alex@example.com")
	require.NoError(t, p.AttachCustomer("cus_123"))
	profiles := newFakeProfileRepo(p)
	h := NewOpenPortalHandler(profiles, &fakeBillingGateway{})

	result, err := h.Handle(context.Background(), OpenPortalCommand{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example.com/cus_123", result.PortalURL)
}
