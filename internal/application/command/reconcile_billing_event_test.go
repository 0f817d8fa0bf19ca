package command

import (
	"context"
	"testing"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/billing"
	"github.com/human-catalyst/catalyst-hub/internal/domain/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProfile(t *testing.T, id, email string) *profile.Profile {
	t.Helper()
	p, err := profile.NewProfile(profile.NewProfileParams{
		ID:           id,
		Email:        email,
		PasswordHash: "$2a$10$hash",
		DisplayName:  "Test User",
	})
	require.NoError(t, err)
	return p
}

func newReconcileHarness(t *testing.T, seed ...*profile.Profile) (*ReconcileBillingEventHandler, *fakeProfileRepo, *fakeSubscriptionRepo, *fakeEventLog, *capturingPublisher) {
	t.Helper()
	profiles := newFakeProfileRepo(seed...)
	subs := newFakeSubscriptionRepo()
	eventLog := newFakeEventLog()
	uow := &fakeUnitOfWork{profiles: profiles, subs: subs, eventLog: eventLog}
	publisher := &capturingPublisher{}
	h := NewReconcileBillingEventHandler(profiles, subs, eventLog, uow, publisher, nil)
	return h, profiles, subs, eventLog, publisher
}

func TestReconcileCheckoutCompleted_ActivatesSubscription(t *testing.T) {
	p := newTestProfile(t, "user-1", "alex@example.com")
	h, profiles, subs, eventLog, publisher := newReconcileHarness(t, p)

	event := billing.NewCheckoutCompleted("evt_1", time.Now().UTC(), "user-1", "student", "yearly", "cus_123", "sub_456")
	require.NoError(t, h.Handle(context.Background(), event))

	got, err := profiles.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "cus_123", got.StripeCustomerID)
	assert.Equal(t, "sub_456", got.SubscriptionID)
	assert.Equal(t, profile.SubscriptionActive, got.SubscriptionStatus)
	assert.Equal(t, profile.RoleStudent, got.Role)

	sub, err := subs.GetByProviderID(context.Background(), "sub_456")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusActive, sub.Status)
	assert.Equal(t, billing.PlanYearly, sub.PlanType)

	processed, err := eventLog.IsProcessed(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Len(t, publisher.published(), 1)
}

func TestReconcileCheckoutCompleted_TeacherPlanGrantsTeacherRole(t *testing.T) {
	p := newTestProfile(t, "user-1", "alex@example.com")
	h, profiles, _, _, _ := newReconcileHarness(t, p)

	event := billing.NewCheckoutCompleted("evt_1", time.Now().UTC(), "user-1", "teacher", "monthly", "cus_123", "sub_456")
	require.NoError(t, h.Handle(context.Background(), event))

	got, err := profiles.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, profile.RoleTeacher, got.Role)
}

func TestReconcileCheckoutCompleted_FallsBackToCustomerLookup(t *testing.T) {
	p := newTestProfile(t, "user-1", "alex@example.com")
	require.NoError(t, p.AttachCustomer("cus_123"))
	h, profiles, _, _, _ := newReconcileHarness(t, p)

	// Metadata user ID missing, the customer link still resolves it.
	event := billing.NewCheckoutCompleted("evt_1", time.Now().UTC(), "", "student", "monthly", "cus_123", "sub_456")
	require.NoError(t, h.Handle(context.Background(), event))

	got, err := profiles.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "sub_456", got.SubscriptionID)
}

func TestReconcileSubscriptionUpdated_MapsStatusAndPlan(t *testing.T) {
	p := newTestProfile(t, "user-1", "alex@example.com")
	require.NoError(t, p.AttachCustomer("cus_123"))
	h, profiles, subs, _, _ := newReconcileHarness(t, p)

	periodEnd := time.Now().UTC().Add(365 * 24 * time.Hour)
	event := billing.NewSubscriptionUpdated("evt_2", time.Now().UTC(), "sub_456", "cus_123", "past_due", "year", periodEnd)
	require.NoError(t, h.Handle(context.Background(), event))

	got, err := profiles.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, profile.SubscriptionPastDue, got.SubscriptionStatus)

	sub, err := subs.GetByProviderID(context.Background(), "sub_456")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPastDue, sub.Status)
	assert.Equal(t, billing.PlanYearly, sub.PlanType)
	assert.True(t, sub.CurrentPeriodEnd.Equal(periodEnd))
}

func TestReconcileSubscriptionUpdated_RenewalKeepsRole(t *testing.T) {
	p := newTestProfile(t, "user-1", "alex@example.com")
	require.NoError(t, p.AttachCustomer("cus_123"))
	require.NoError(t, p.ApplySubscription("sub_456", profile.SubscriptionActive, "teacher"))
	h, profiles, _, _, _ := newReconcileHarness(t, p)

	// A routine renewal reports the billing interval, not the tier.
	event := billing.NewSubscriptionUpdated("evt_2", time.Now().UTC(), "sub_456", "cus_123", "active", "month", time.Now().UTC().Add(30*24*time.Hour))
	require.NoError(t, h.Handle(context.Background(), event))

	got, err := profiles.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, profile.RoleTeacher, got.Role)
	assert.Equal(t, profile.SubscriptionActive, got.SubscriptionStatus)
}

func TestReconcileSubscriptionUpdated_UnknownCustomerIsNoOp(t *testing.T) {
	h, _, subs, eventLog, publisher := newReconcileHarness(t)

	event := billing.NewSubscriptionUpdated("evt_2", time.Now().UTC(), "sub_456", "cus_unknown", "active", "month", time.Now().UTC())
	require.NoError(t, h.Handle(context.Background(), event))

	_, err := subs.GetByProviderID(context.Background(), "sub_456")
	assert.ErrorIs(t, err, billing.ErrSubscriptionNotFound)

	// Still acknowledged so the provider stops retrying.
	processed, err := eventLog.IsProcessed(context.Background(), "evt_2")
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Empty(t, publisher.published())
}

func TestReconcileSubscriptionDeleted_DropsToFreeKeepsCustomer(t *testing.T) {
	p := newTestProfile(t, "user-1", "alex@example.com")
	require.NoError(t, p.AttachCustomer("cus_123"))
	require.NoError(t, p.ApplySubscription("sub_456", profile.SubscriptionActive, "yearly"))
	h, profiles, _, _, publisher := newReconcileHarness(t, p)

	event := billing.NewSubscriptionDeleted("evt_3", time.Now().UTC(), "sub_456", "cus_123")
	require.NoError(t, h.Handle(context.Background(), event))

	got, err := profiles.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, profile.RoleFree, got.Role)
	assert.Equal(t, profile.SubscriptionCancelled, got.SubscriptionStatus)
	assert.Empty(t, got.SubscriptionID)
	// The customer reference survives for a later resubscribe.
	assert.Equal(t, "cus_123", got.StripeCustomerID)
	assert.Len(t, publisher.published(), 1)
}

func TestReconcilePaymentFailed_MarksPastDue(t *testing.T) {
	p := newTestProfile(t, "user-1", "alex@example.com")
	require.NoError(t, p.AttachCustomer("cus_123"))
	require.NoError(t, p.ApplySubscription("sub_456", profile.SubscriptionActive, "monthly"))
	h, profiles, _, _, _ := newReconcileHarness(t, p)

	event := billing.NewPaymentFailed("evt_4", time.Now().UTC(), "cus_123", "in_789")
	require.NoError(t, h.Handle(context.Background(), event))

	got, err := profiles.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, profile.SubscriptionPastDue, got.SubscriptionStatus)
	// Past due keeps access during the grace period.
	assert.True(t, got.HasActiveAccess())
}

func TestReconcilePaymentSucceeded_RecoversPastDue(t *testing.T) {
	p := newTestProfile(t, "user-1", "alex@example.com")
	require.NoError(t, p.AttachCustomer("cus_123"))
	require.NoError(t, p.ApplySubscription("sub_456", profile.SubscriptionActive, "teacher"))
	p.MarkPastDue()
	h, profiles, _, _, _ := newReconcileHarness(t, p)

	event := billing.NewPaymentSucceeded("evt_5", time.Now().UTC(), "cus_123", "in_789", 2900)
	require.NoError(t, h.Handle(context.Background(), event))

	got, err := profiles.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, profile.SubscriptionActive, got.SubscriptionStatus)
	// Recovery never touches the role.
	assert.Equal(t, profile.RoleTeacher, got.Role)
}

func TestReconcileReplayedEventIsIdempotent(t *testing.T) {
	p := newTestProfile(t, "user-1", "alex@example.com")
	h, profiles, _, _, publisher := newReconcileHarness(t, p)

	event := billing.NewCheckoutCompleted("evt_1", time.Now().UTC(), "user-1", "student", "monthly", "cus_123", "sub_456")
	require.NoError(t, h.Handle(context.Background(), event))
	first, err := profiles.GetByID(context.Background(), "user-1")
	require.NoError(t, err)

	// Same delivery again: consumed without another write or publish.
	require.NoError(t, h.Handle(context.Background(), event))
	second, err := profiles.GetByID(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
	assert.Len(t, publisher.published(), 1)
}

func TestReconcileUnhandledEventIsSkipped(t *testing.T) {
	h, _, _, eventLog, _ := newReconcileHarness(t)

	event := billing.NewUnhandled("evt_9", time.Now().UTC(), "customer.updated")
	require.NoError(t, h.Handle(context.Background(), event))

	// Unrecognized types are not even logged as processed.
	processed, err := eventLog.IsProcessed(context.Background(), "evt_9")
	require.NoError(t, err)
	assert.False(t, processed)
}
